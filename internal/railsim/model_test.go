package railsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel_Valid(t *testing.T) {
	m, err := NewModel(
		[]Intersection{{Name: "A", Capacity: 1}, {Name: "B", Capacity: 2}},
		[]Train{{Name: "Train0", Route: []string{"A", "B"}}, {Name: "Train1", Route: []string{"B"}}},
	)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, 0, m.Intersections[0].Index)
	assert.Equal(t, 1, m.Intersections[1].Index)
	assert.Equal(t, Exclusive, m.Intersections[0].Kind())
	assert.Equal(t, Counting, m.Intersections[1].Kind())

	idx, ok := m.IntersectionIndex("B")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	assert.Equal(t, []int{0, 1}, m.Route(0))
	assert.Equal(t, []int{1}, m.Route(1))
}

func TestNewModel_Errors(t *testing.T) {
	for _, tc := range [...]struct {
		name          string
		intersections []Intersection
		trains        []Train
	}{
		{"no intersections", nil, []Train{{Name: "Train0", Route: []string{"A"}}}},
		{"no trains", []Intersection{{Name: "A", Capacity: 1}}, nil},
		{"non-positive capacity", []Intersection{{Name: "A", Capacity: 0}}, []Train{{Name: "Train0", Route: []string{"A"}}}},
		{"duplicate intersection", []Intersection{{Name: "A", Capacity: 1}, {Name: "A", Capacity: 1}}, []Train{{Name: "Train0", Route: []string{"A"}}}},
		{"duplicate train", []Intersection{{Name: "A", Capacity: 1}}, []Train{{Name: "Train0", Route: []string{"A"}}, {Name: "Train0", Route: []string{"A"}}}},
		{"empty route", []Intersection{{Name: "A", Capacity: 1}}, []Train{{Name: "Train0", Route: nil}}},
		{"unknown intersection in route", []Intersection{{Name: "A", Capacity: 1}}, []Train{{Name: "Train0", Route: []string{"B"}}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewModel(tc.intersections, tc.trains)
			assert.Nil(t, m)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
