package collator

import (
	"context"
	"fmt"
	"time"

	"chaincore/consensus/pow"
	"chaincore/core/types"
	"chaincore/evm"
	"chaincore/observability"
	"chaincore/primitives"
	"chaincore/storage"
	"chaincore/trie"
)

const (
	defaultBlockInterval = 2 * time.Second
	initialDifficulty    = 8
)

// Worker drains a Collator on a timer or size trigger, executing the batch
// against the world trie and emitting finished blocks on Blocks.
type Worker struct {
	collator      *Collator
	store         storage.Database
	schedule      *evm.Schedule
	blockSize     int
	blockInterval time.Duration
	difficulty    pow.Window
	validator     primitives.Address160

	parentHash     primitives.Hash256
	stateRoot      primitives.Hash256
	height         uint64
	lastBits       uint8
	lastSealedAt   time.Time

	Blocks chan *types.Block
	quit   chan struct{}
}

// NewWorker builds a worker over collator, persisting trie nodes to store
// and sealing blocks starting at initialDifficulty. blockSize and blockInterval follow
// the batching rule: flush when either bound is hit, whichever comes
// first.
func NewWorker(c *Collator, store storage.Database, schedule *evm.Schedule, validator primitives.Address160, blockSize int, blockInterval time.Duration) *Worker {
	if blockInterval <= 0 {
		blockInterval = defaultBlockInterval
	}
	if blockSize <= 0 {
		blockSize = 1
	}
	return &Worker{
		collator:      c,
		store:         store,
		schedule:      schedule,
		blockSize:     blockSize,
		blockInterval: blockInterval,
		difficulty:    pow.Window{TargetBlockSeconds: uint32(blockInterval.Seconds())}.WithDefault(),
		validator:     validator,
		stateRoot:     primitives.Hash256(trie.EmptyRootHash()),
		lastBits:      initialDifficulty,
		Blocks:        make(chan *types.Block, 16),
		quit:          make(chan struct{}),
	}
}

// Start runs the batching loop in its own goroutine until Stop is called.
func (w *Worker) Start() {
	go w.run()
}

// Stop signals the batching loop to exit; it is safe to call more than
// once.
func (w *Worker) Stop() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
}

func (w *Worker) run() {
	// sizePollInterval is how often the pending-set size is checked against
	// blockSize between interval ticks.
	const sizePollInterval = 50 * time.Millisecond
	ticker := time.NewTicker(w.blockInterval)
	defer ticker.Stop()
	poll := time.NewTicker(sizePollInterval)
	defer poll.Stop()
	for {
		select {
		case <-ticker.C:
			w.flushIfAny()
		case <-poll.C:
			if w.collator.Size() >= w.blockSize {
				w.flushIfAny()
			}
		case <-w.quit:
			return
		}
	}
}

func (w *Worker) flushIfAny() {
	txs := w.collator.DumpAndClear()
	if len(txs) == 0 {
		return
	}
	block, err := w.produceBlock(txs)
	if err != nil {
		// A malformed batch does not halt the chain: the transactions are
		// dropped and collation resumes on the next tick.
		fmt.Printf("collator: dropping batch of %d transactions: %v\n", len(txs), err)
		return
	}
	w.Blocks <- block
}

// produceBlock executes every transaction in txs against the world trie,
// commits the resulting state root, seals the header with a trivial
// proof-of-work nonce, and returns the finished block.
func (w *Worker) produceBlock(txs []*types.Transaction) (*types.Block, error) {
	t := trie.Open(w.store, [32]byte(w.stateRoot))

	for _, tx := range txs {
		if err := w.execute(t, tx); err != nil {
			// A failed call does not abort the rest of the batch; it still
			// occupies its slot in the block.
			fmt.Printf("collator: tx %s failed: %v\n", tx.Hash(), err)
		}
	}

	root, err := observability.TracedCommit(context.Background(), t)
	if err != nil {
		return nil, fmt.Errorf("collator: committing state trie: %w", err)
	}

	now := time.Now()
	header := &types.Header{
		Height:     w.height + 1,
		Timestamp:  uint64(now.Unix()),
		PrevHash:   w.parentHash,
		StateRoot:  primitives.Hash256(root),
		TxRoot:     txRoot(txs),
		Validator:  w.validator,
		Difficulty: w.nextDifficulty(now),
	}
	nonce, err := pow.Seal(header.Encode(), header.Difficulty, 0, 1<<32)
	if err != nil {
		return nil, fmt.Errorf("collator: sealing block %d: %w", header.Height, err)
	}
	header.Nonce = nonce

	block := types.NewBlock(header, txs)
	w.parentHash = block.Hash()
	w.stateRoot = header.StateRoot
	w.height = header.Height
	w.lastBits = header.Difficulty
	w.lastSealedAt = now
	return block, nil
}

// nextDifficulty retargets from the previous block's observed interval, the
// same basis-points tolerance window the chain uses between any two
// blocks. The first block in a run has no prior timestamp to compare
// against, so it seals at the worker's starting difficulty unchanged.
func (w *Worker) nextDifficulty(now time.Time) uint8 {
	if w.lastSealedAt.IsZero() {
		return w.lastBits
	}
	observed := uint32(now.Sub(w.lastSealedAt).Seconds())
	return w.difficulty.NextDifficulty(w.lastBits, observed)
}

// execute runs a single transaction's call data as EVM code against the
// recipient's storage partition in t. Any storage writes the call made
// before a gas-out or an invalid opcode stay in t: there is no per-call
// snapshot/revert here, only the batch-level logging produceBlock does
// around this call.
func (w *Worker) execute(t *trie.Trie, tx *types.Transaction) error {
	if len(tx.Data) == 0 {
		return nil
	}
	params := evm.ActionParams{
		CodeAddress: tx.To,
		Address:     tx.To,
		Gas:         tx.GasLimit,
		GasPrice:    tx.GasPrice,
		Value:       evm.Transfer(tx.Value),
		InputData:   tx.Data,
		CallType:    evm.CallTypeCall,
	}
	interp, err := evm.New(tx.Data, params)
	if err != nil {
		return err
	}
	ext := newTrieExt(t, tx.To, w.schedule)
	_, err = observability.TracedExec(context.Background(), interp, ext)
	return err
}

// txRoot hashes the concatenation of every transaction hash in order, a
// minimal commitment sufficient for S1-class inclusion checks without
// building a second trie per block.
func txRoot(txs []*types.Transaction) primitives.Hash256 {
	hashes := make([][]byte, len(txs))
	for i, tx := range txs {
		h := tx.Hash()
		hashes[i] = h[:]
	}
	return primitives.Keccak256(hashes...)
}
