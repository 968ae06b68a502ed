package railsim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulation_Run_NoContention(t *testing.T) {
	m := testModel(t)
	sim := NewSimulation(m)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	report, err := sim.Run(ctx, RunConfig{DetectorInterval: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Stats.Completions)
	assert.Equal(t, int64(0), report.Stats.Preemptions)
}

func TestSimulation_Run_OpposingRoutesComplete(t *testing.T) {
	// Train0: A then B. Train1: B then A. Both are exclusive and the
	// detector is running. A train releases each intersection before it
	// acquires the next, so the opposing routes contend for A and B without
	// ever forming a hold-and-wait cycle; both trains must complete and the
	// run must report ALL TRAINS FINISHED without hanging.
	m := deadlockModel(t)
	sim := NewSimulation(m)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sink := &CollectingSink{}
	report, err := sim.Run(ctx, RunConfig{
		DetectorInterval: time.Millisecond,
		Traversal:        func(int, int) uint64 { return 5 },
		Sink:             sink,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Stats.Completions)

	events := sink.Snapshot()
	var sawFinished bool
	for _, e := range events {
		if e.Kind == EventAllFinished {
			sawFinished = true
		}
	}
	assert.True(t, sawFinished)
}

func TestSimulation_Run_CancelledContextIsReported(t *testing.T) {
	m := testModel(t)
	sim := NewSimulation(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Run(ctx, RunConfig{DetectorInterval: time.Millisecond})
	assert.Error(t, err)
}
