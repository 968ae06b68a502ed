package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWarner struct {
	messages []string
}

func (r *recordingWarner) Warnf(format string, args ...any) {
	r.messages = append(r.messages, format)
}

func TestIntersections_Valid(t *testing.T) {
	r := strings.NewReader("A:1\nB:2\n\n  C : 3  \n")
	out, err := Intersections(r, nil)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, 1, out[0].Capacity)
	assert.Equal(t, "C", out[2].Name)
	assert.Equal(t, 3, out[2].Capacity)
}

func TestIntersections_SkipsMalformed(t *testing.T) {
	warner := &recordingWarner{}
	r := strings.NewReader("A:1\nnocolon\nB:notanumber\nC:0\nD:2\n")
	out, err := Intersections(r, warner)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, "D", out[1].Name)
	assert.Len(t, warner.messages, 3)
}

func TestTrains_Valid(t *testing.T) {
	r := strings.NewReader("Train0:A,B,C\nTrain1: X , Y \n")
	out, err := Trains(r, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"A", "B", "C"}, out[0].Route)
	assert.Equal(t, []string{"X", "Y"}, out[1].Route)
}

func TestTrains_SkipsMalformed(t *testing.T) {
	warner := &recordingWarner{}
	r := strings.NewReader("Train0:A,B\nnocolon\nTrain1:\nTrain2:C\n")
	out, err := Trains(r, warner)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Train0", out[0].Name)
	assert.Equal(t, "Train2", out[1].Name)
	assert.Len(t, warner.messages, 2)
}
