package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railsim/railsim/internal/railsim"
)

func TestSink_Emit_RendersTextContract(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, logrus.InfoLevel)

	sink.Emit(railsim.Event{Kind: railsim.EventGranted, Tick: 5, Train: "Train0", Intersection: "A"})

	line := buf.String()
	require.Contains(t, line, "[00:00:05]")
	require.Contains(t, line, "SERVER:")
	assert.Contains(t, line, "GRANTED A to Train0")
}

func TestSink_Emit_WarnLevelForDeny(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, logrus.InfoLevel)

	sink.Emit(railsim.Event{Kind: railsim.EventRecvDeny, Tick: 0, Train: "Train0", Intersection: "A"})
	assert.Contains(t, buf.String(), "RECV DENY A")
}

func TestSink_Emit_SuppressedBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, logrus.ErrorLevel)

	sink.Emit(railsim.Event{Kind: railsim.EventGranted, Tick: 0, Train: "Train0", Intersection: "A"})
	assert.Empty(t, buf.String())
}

func TestSink_Warnf(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, logrus.InfoLevel)
	sink.Warnf("skipping %s", "line")
	assert.Contains(t, buf.String(), "skipping line")
}
