package railsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, model *Model) (*Scheduler, *AllocationState, chan Request, []chan Response, chan preemption, *Stats) {
	t.Helper()
	state := NewAllocationState(model)
	stats := &Stats{}
	reqCh := make(chan Request, 1)
	respChs := make([]chan Response, len(model.Trains))
	for i := range respChs {
		respChs[i] = make(chan Response, 1)
	}
	preempts := make(chan preemption, 1)
	s := NewScheduler(model, state, NopSink{}, stats, reqCh, respChs, preempts)
	return s, state, reqCh, respChs, preempts, stats
}

func TestScheduler_AcquireGrant(t *testing.T) {
	m := testModel(t)
	s, _, _, respChs, _, stats := newTestScheduler(t, m)

	done := s.handleRequest(Request{Tag: Acquire, TrainName: "Train0", IntersectionName: "A"})
	assert.False(t, done)

	resp := <-respChs[0]
	assert.Equal(t, Grant, resp.Verdict)
	assert.Equal(t, int64(1), stats.Snapshot().Grants)
}

func TestScheduler_AcquireWaitThenWakeOnRelease(t *testing.T) {
	m := testModel(t)
	s, _, _, respChs, _, stats := newTestScheduler(t, m)

	require.False(t, s.handleRequest(Request{Tag: Acquire, TrainName: "Train0", IntersectionName: "A"}))
	<-respChs[0]

	require.False(t, s.handleRequest(Request{Tag: Acquire, TrainName: "Train1", IntersectionName: "A"}))
	waitResp := <-respChs[1]
	assert.Equal(t, Wait, waitResp.Verdict)
	assert.Equal(t, int64(1), stats.Snapshot().Waits)

	require.False(t, s.handleRequest(Request{Tag: Release, TrainName: "Train0", IntersectionName: "A"}))
	grantResp := <-respChs[1]
	assert.Equal(t, Grant, grantResp.Verdict)
	assert.Equal(t, int64(2), stats.Snapshot().Grants)
}

func TestScheduler_DenyMalformed_UnknownTrain(t *testing.T) {
	m := testModel(t)
	s, _, _, _, _, stats := newTestScheduler(t, m)

	// an unknown train name has no response channel to route a Deny onto;
	// handleRequest must not block or panic.
	require.False(t, s.handleRequest(Request{Tag: Acquire, TrainName: "Ghost", IntersectionName: "A"}))
	assert.Equal(t, int64(1), stats.Snapshot().Denied)
}

func TestScheduler_DenyMalformed_UnknownIntersection(t *testing.T) {
	m := testModel(t)
	s, _, _, respChs, _, stats := newTestScheduler(t, m)

	require.False(t, s.handleRequest(Request{Tag: Acquire, TrainName: "Train0", IntersectionName: "Ghost"}))
	resp := <-respChs[0]
	assert.Equal(t, Deny, resp.Verdict)
	assert.Equal(t, int64(1), stats.Snapshot().Denied)
}

func TestScheduler_DoneCompletion(t *testing.T) {
	m := testModel(t)
	s, _, _, _, _, stats := newTestScheduler(t, m)

	assert.False(t, s.handleRequest(Request{Tag: Done, TrainName: "Train0"}))
	assert.False(t, s.handleRequest(Request{Tag: Done, TrainName: "Train1"}))
	assert.True(t, s.handleRequest(Request{Tag: Done, TrainName: "Train2"}))
	assert.Equal(t, int64(3), stats.Snapshot().Completions)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done() channel not closed after all trains reported Done")
	}
}

func TestScheduler_HandlePreemption(t *testing.T) {
	m := testModel(t)
	s, state, _, respChs, _, stats := newTestScheduler(t, m)

	require.Equal(t, Granted, state.TryAcquire(0, 0))
	state.EnqueueWait(1, 0)

	done := make(chan struct{})
	s.handlePreemption(preemption{train: 0, intersection: 0, cycle: []string{"Train0", "A", "Train1"}, done: done})

	select {
	case <-done:
	default:
		t.Fatal("preemption done channel not closed")
	}
	assert.Equal(t, int64(1), stats.Snapshot().Preemptions)

	resp := <-respChs[1]
	assert.Equal(t, Grant, resp.Verdict)
	assert.ElementsMatch(t, []int{1}, state.HoldersOf(0))
}
