package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chaincore/evm"
	"chaincore/trie"
)

var tracer trace.Tracer = otel.Tracer("chaincore")

// TracedCommit wraps a Trie.Commit call with a span and records its latency
// in trie_commit_seconds; the collator worker calls it in place of
// t.Commit().
func TracedCommit(ctx context.Context, t *trie.Trie) ([32]byte, error) {
	ctx, span := tracer.Start(ctx, "trie.Commit")
	defer span.End()

	start := time.Now()
	root, err := t.Commit()
	CoreMetrics().ObserveTrieCommit(time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return root, err
	}
	span.SetAttributes(attribute.String("trie.root", hexRoot(root)))
	return root, nil
}

// TracedExec wraps an Interpreter.Exec call with a span and records its
// step count and gas usage in evm_steps_total/evm_gas_used_total.
func TracedExec(ctx context.Context, in *evm.Interpreter, ext evm.Ext) (evm.GasLeft, error) {
	ctx, span := tracer.Start(ctx, "evm.Exec")
	defer span.End()

	result, err := in.Exec(ext)
	gasUsed := in.GasLimit() - result.Remaining
	CoreMetrics().ObserveExec(in.StepCount(), gasUsed)

	span.SetAttributes(
		attribute.Int64("evm.gas_used", int64(gasUsed)),
		attribute.Int64("evm.steps", int64(in.StepCount())),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func hexRoot(root [32]byte) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 2+len(root)*2)
	buf[0], buf[1] = '0', 'x'
	for i, b := range root {
		buf[2+i*2] = hexDigits[b>>4]
		buf[3+i*2] = hexDigits[b&0x0f]
	}
	return string(buf)
}
