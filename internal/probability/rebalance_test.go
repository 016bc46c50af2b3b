package probability

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-12

func testPartition(t *testing.T) *Partition {
	t.Helper()
	p, err := NewPartition(
		Group{ID: "abc", Keys: []string{"a", "b", "c"}},
		Group{ID: "xy", Keys: []string{"x", "y"}},
	)
	require.NoError(t, err)
	return p
}

func testVector() Vector {
	return Vector{"a": 0.6, "b": 0.3, "c": 0.1, "x": 0.25, "y": 0.75, "solo": 0.88, "other": 0.5}
}

func TestSetValueProportionalScenario(t *testing.T) {
	r := NewRebalancer(testPartition(t))

	res, err := r.SetValue(testVector(), testVector(), "a", 0.8)
	require.NoError(t, err)

	assert.Equal(t, BranchProportional, res.Branch)
	assert.Equal(t, "abc", res.Group)
	assert.InDelta(t, 0.8, res.Values["a"], tol)
	assert.InDelta(t, 0.15, res.Values["b"], tol)
	assert.InDelta(t, 0.05, res.Values["c"], tol)
	assert.InDelta(t, 1.0, res.Values.Sum([]string{"a", "b", "c"}), SumTolerance)
}

func TestSetValueBaselineFallbackScenario(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	current := Vector{"a": 0, "b": 0, "c": 1.0}
	baseline := Vector{"a": 0.5, "b": 0.3, "c": 0.2}

	res, err := r.SetValue(current, baseline, "c", 0.4)
	require.NoError(t, err)

	assert.Equal(t, BranchBaseline, res.Branch)
	assert.InDelta(t, 0.375, res.Values["a"], tol)
	assert.InDelta(t, 0.225, res.Values["b"], tol)
	assert.InDelta(t, 0.4, res.Values["c"], tol)
}

func TestSetValueFallbackIsNotEqualSplit(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	current := Vector{"a": 0, "b": 0, "c": 1.0}
	baseline := Vector{"a": 0.5, "b": 0.3, "c": 0.2}

	res, err := r.SetValue(current, baseline, "c", 0.5)
	require.NoError(t, err)

	assert.InDelta(t, 0.3125, res.Values["a"], tol)
	assert.InDelta(t, 0.1875, res.Values["b"], tol)
	assert.NotEqual(t, res.Values["a"], res.Values["b"])
}

func TestSetValueEqualSplitWhenBaselineEmpty(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	current := Vector{"a": 0, "b": 0, "c": 1.0}
	baseline := Vector{"a": 0, "b": 0, "c": 1.0}

	res, err := r.SetValue(current, baseline, "c", 0.4)
	require.NoError(t, err)

	assert.Equal(t, BranchEqual, res.Branch)
	assert.InDelta(t, 0.3, res.Values["a"], tol)
	assert.InDelta(t, 0.3, res.Values["b"], tol)
}

func TestSetValueNearZeroOthersUseFallback(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	current := Vector{"a": 0.0004, "b": 0.0004, "c": 0.9992}
	baseline := Vector{"a": 0.5, "b": 0.3, "c": 0.2}

	res, err := r.SetValue(current, baseline, "c", 0.2)
	require.NoError(t, err)

	assert.Equal(t, BranchBaseline, res.Branch)
	assert.InDelta(t, 0.5, res.Values["a"], tol)
	assert.InDelta(t, 0.3, res.Values["b"], tol)
}

func TestSetValueSaturation(t *testing.T) {
	r := NewRebalancer(testPartition(t))

	res, err := r.SetValue(testVector(), testVector(), "b", 1.0)
	require.NoError(t, err)

	assert.Equal(t, BranchSaturated, res.Branch)
	assert.Equal(t, 1.0, res.Values["b"])
	assert.Equal(t, 0.0, res.Values["a"])
	assert.Equal(t, 0.0, res.Values["c"])
}

func TestSetValueClampsOutOfRange(t *testing.T) {
	r := NewRebalancer(testPartition(t))

	t.Run("above one", func(t *testing.T) {
		res, err := r.SetValue(testVector(), testVector(), "a", 1.7)
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.Value)
		assert.Equal(t, 0.0, res.Values["b"])
		assert.Equal(t, 0.0, res.Values["c"])
	})

	t.Run("below zero", func(t *testing.T) {
		res, err := r.SetValue(testVector(), testVector(), "a", -0.4)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.Value)
		assert.InDelta(t, 0.75, res.Values["b"], tol)
		assert.InDelta(t, 0.25, res.Values["c"], tol)
	})

	t.Run("infinite", func(t *testing.T) {
		res, err := r.SetValue(testVector(), testVector(), "solo", math.Inf(1))
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.Values["solo"])
	})
}

func TestSetValueRatioPreserved(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	current := Vector{"a": 0.2, "b": 0.5, "c": 0.3}

	res, err := r.SetValue(current, current, "a", 0.6)
	require.NoError(t, err)

	assert.InDelta(t, 0.5/0.3, res.Values["b"]/res.Values["c"], 1e-9)
}

func TestSetValueSingleOtherMember(t *testing.T) {
	r := NewRebalancer(testPartition(t))

	res, err := r.SetValue(testVector(), testVector(), "x", 0.9)
	require.NoError(t, err)

	assert.InDelta(t, 0.9, res.Values["x"], tol)
	assert.InDelta(t, 0.1, res.Values["y"], tol)
}

func TestSetValueIdempotent(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	v := testVector()

	for _, key := range []string{"a", "b", "c", "x", "solo"} {
		res, err := r.SetValue(v, v, key, v[key])
		require.NoError(t, err)
		for k, want := range v {
			assert.InDelta(t, want, res.Values[k], 1e-9, "key %s after re-setting %s", k, key)
		}
	}
}

func TestSetValueUngroupedKey(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	v := testVector()

	res, err := r.SetValue(v, v, "solo", 0.42)
	require.NoError(t, err)

	assert.Equal(t, BranchUngrouped, res.Branch)
	assert.Empty(t, res.Group)
	assert.Equal(t, 0.42, res.Values["solo"])
	for _, k := range []string{"a", "b", "c", "x", "y", "other"} {
		assert.Equal(t, v[k], res.Values[k], k)
	}
}

func TestSetValueDoesNotMutateInputs(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	v := testVector()
	base := testVector()

	_, err := r.SetValue(v, base, "a", 0.1)
	require.NoError(t, err)

	assert.Equal(t, testVector(), v)
	assert.Equal(t, testVector(), base)
}

func TestSetValueLeavesOtherGroupsUntouched(t *testing.T) {
	r := NewRebalancer(testPartition(t))
	v := testVector()

	res, err := r.SetValue(v, v, "a", 0.05)
	require.NoError(t, err)

	assert.Equal(t, v["x"], res.Values["x"])
	assert.Equal(t, v["y"], res.Values["y"])
	assert.Equal(t, v["solo"], res.Values["solo"])
}

func TestSetValueErrors(t *testing.T) {
	r := NewRebalancer(testPartition(t))

	_, err := r.SetValue(testVector(), testVector(), "missing", 0.5)
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = r.SetValue(testVector(), testVector(), "a", math.NaN())
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestWithEpsilon(t *testing.T) {
	p := testPartition(t)
	assert.Equal(t, DefaultEpsilon, NewRebalancer(p).Epsilon())
	assert.Equal(t, 0.05, NewRebalancer(p, WithEpsilon(0.05)).Epsilon())
	assert.Equal(t, DefaultEpsilon, NewRebalancer(p, WithEpsilon(-1)).Epsilon())

	// With a large epsilon the 0.04 other-sum counts as degenerate.
	current := Vector{"a": 0.02, "b": 0.02, "c": 0.96}
	baseline := Vector{"a": 0.1, "b": 0.3, "c": 0.6}
	res, err := NewRebalancer(p, WithEpsilon(0.05)).SetValue(current, baseline, "c", 0.6)
	require.NoError(t, err)
	assert.Equal(t, BranchBaseline, res.Branch)
	assert.InDelta(t, 0.1, res.Values["a"], tol)
	assert.InDelta(t, 0.3, res.Values["b"], tol)
}

func TestInvariantsHoldOverRandomEdits(t *testing.T) {
	p := testPartition(t)
	r := NewRebalancer(p)
	rng := rand.New(rand.NewSource(42))
	keys := []string{"a", "b", "c", "x", "y", "solo", "other"}
	base := testVector()
	v := testVector()

	for i := 0; i < 5000; i++ {
		key := keys[rng.Intn(len(keys))]
		var value float64
		switch rng.Intn(6) {
		case 0:
			value = 0
		case 1:
			value = 1
		case 2:
			value = rng.Float64()*3 - 1
		default:
			value = rng.Float64()
		}

		res, err := r.SetValue(v, base, key, value)
		require.NoError(t, err)
		v = res.Values

		for _, g := range p.Groups() {
			require.InDelta(t, 1.0, v.Sum(g.Keys), SumTolerance, "group %s after edit %d", g.ID, i)
		}
		for k, val := range v {
			require.GreaterOrEqual(t, val, 0.0, k)
			require.LessOrEqual(t, val, 1.0, k)
		}
	}
}
