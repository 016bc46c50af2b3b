package probability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPartitionRejectsBadGroups(t *testing.T) {
	tests := []struct {
		name   string
		groups []Group
	}{
		{"missing id", []Group{{Keys: []string{"a", "b"}}}},
		{"duplicate id", []Group{{ID: "g", Keys: []string{"a", "b"}}, {ID: "g", Keys: []string{"c", "d"}}}},
		{"single key", []Group{{ID: "g", Keys: []string{"a"}}}},
		{"empty key", []Group{{ID: "g", Keys: []string{"a", ""}}}},
		{"shared key", []Group{{ID: "g", Keys: []string{"a", "b"}}, {ID: "h", Keys: []string{"b", "c"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPartition(tt.groups...)
			assert.Error(t, err)
		})
	}
}

func TestPartitionGroupOf(t *testing.T) {
	p := testPartition(t)

	g, ok := p.GroupOf("b")
	require.True(t, ok)
	assert.Equal(t, "abc", g.ID)

	_, ok = p.GroupOf("solo")
	assert.False(t, ok)
}

func TestPartitionGroupsReturnsCopy(t *testing.T) {
	p := testPartition(t)
	groups := p.Groups()
	groups[0].Keys[0] = "mutated"

	g, ok := p.GroupOf("a")
	require.True(t, ok)
	assert.Equal(t, "a", g.Keys[0])
}

func TestPartitionValidate(t *testing.T) {
	p := testPartition(t)

	require.NoError(t, p.Validate(testVector()))

	t.Run("group does not sum to one", func(t *testing.T) {
		v := testVector()
		v["a"] = 0.5
		assert.Error(t, p.Validate(v))
	})

	t.Run("missing grouped key", func(t *testing.T) {
		v := testVector()
		delete(v, "c")
		assert.ErrorIs(t, p.Validate(v), ErrUnknownKey)
	})

	t.Run("out of range ungrouped value", func(t *testing.T) {
		v := testVector()
		v["solo"] = 1.2
		assert.ErrorIs(t, p.Validate(v), ErrInvalidValue)
	})
}

func TestPartitionSums(t *testing.T) {
	p := testPartition(t)
	sums := p.Sums(testVector())
	assert.Len(t, sums, 2)
	assert.InDelta(t, 1.0, sums["abc"], tol)
	assert.InDelta(t, 1.0, sums["xy"], tol)
}
