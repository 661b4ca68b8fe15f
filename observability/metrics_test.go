package observability

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCoreMetricsIsASingleton(t *testing.T) {
	require.Same(t, CoreMetrics(), CoreMetrics())
}

func TestObserveTrieCommitRecordsSample(t *testing.T) {
	m := CoreMetrics()
	var before dto.Metric
	require.NoError(t, m.trieCommitSeconds.Write(&before))
	beforeCount := before.GetHistogram().GetSampleCount()

	m.ObserveTrieCommit(5 * time.Millisecond)

	var after dto.Metric
	require.NoError(t, m.trieCommitSeconds.Write(&after))
	require.Equal(t, beforeCount+1, after.GetHistogram().GetSampleCount())
}

func TestObserveExecAccumulatesSteps(t *testing.T) {
	m := CoreMetrics()
	before := testutil.ToFloat64(m.evmSteps)
	m.ObserveExec(7, 21000)
	require.Equal(t, before+7, testutil.ToFloat64(m.evmSteps))
}

func TestNilMetricsObserveIsANoOp(t *testing.T) {
	var m *coreMetrics
	require.NotPanics(t, func() {
		m.ObserveTrieCommit(time.Second)
		m.ObserveExec(1, 1)
	})
}
