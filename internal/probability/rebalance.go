package probability

import (
	"fmt"
	"math"
)

// DefaultEpsilon is the other-member total at or below which the current
// values carry no usable ratio and baseline weights are used instead.
const DefaultEpsilon = 0.001

// Branch names the redistribution path taken by an update.
type Branch string

const (
	BranchUngrouped    Branch = "ungrouped"
	BranchSaturated    Branch = "saturated"
	BranchProportional Branch = "proportional"
	BranchBaseline     Branch = "baseline"
	BranchEqual        Branch = "equal"
)

// Result is the outcome of a single SetValue call.
type Result struct {
	Values Vector
	Group  string
	Branch Branch
	// Value is the edited key's value after clamping.
	Value float64
}

// Rebalancer applies single-key edits while keeping every group summing to 1.0.
type Rebalancer struct {
	partition *Partition
	epsilon   float64
}

type Option func(*Rebalancer)

// WithEpsilon overrides DefaultEpsilon. Non-positive values are ignored.
func WithEpsilon(eps float64) Option {
	return func(r *Rebalancer) {
		if eps > 0 {
			r.epsilon = eps
		}
	}
}

func NewRebalancer(p *Partition, opts ...Option) *Rebalancer {
	r := &Rebalancer{partition: p, epsilon: DefaultEpsilon}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Rebalancer) Partition() *Partition { return r.partition }

func (r *Rebalancer) Epsilon() float64 { return r.epsilon }

// SetValue returns a copy of vector with key set to newValue and the rest of
// key's group rescaled so the group sums to 1.0. The input vector and the
// baseline are never modified.
//
// newValue is clamped to [0, 1]. The only failures are a key missing from
// vector and a NaN value.
func (r *Rebalancer) SetValue(vector, baseline Vector, key string, newValue float64) (Result, error) {
	if _, ok := vector[key]; !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if math.IsNaN(newValue) {
		return Result{}, fmt.Errorf("%w: %s=NaN", ErrInvalidValue, key)
	}
	value := clamp01(newValue)
	out := vector.Clone()

	g, ok := r.partition.GroupOf(key)
	if !ok {
		out[key] = value
		return Result{Values: out, Branch: BranchUngrouped, Value: value}, nil
	}

	others := make([]string, 0, len(g.Keys)-1)
	for _, k := range g.Keys {
		if k != key {
			others = append(others, k)
		}
	}

	remaining := 1.0 - value
	currentOtherSum := vector.Sum(others)

	var branch Branch
	switch {
	case remaining <= 0:
		branch = BranchSaturated
		for _, k := range others {
			out[k] = 0
		}
	case currentOtherSum > r.epsilon:
		branch = BranchProportional
		for _, k := range others {
			out[k] = (vector[k] / currentOtherSum) * remaining
		}
	default:
		baseSum := baseline.Sum(others)
		if baseSum > 0 {
			branch = BranchBaseline
			for _, k := range others {
				out[k] = (baseline[k] / baseSum) * remaining
			}
		} else {
			branch = BranchEqual
			share := remaining / float64(len(others))
			for _, k := range others {
				out[k] = share
			}
		}
	}
	out[key] = value

	// Drift from the arithmetic above is absorbed here on every call.
	if total := out.Sum(g.Keys); total > 0 {
		for _, k := range g.Keys {
			out[k] /= total
		}
	}

	return Result{Values: out, Group: g.ID, Branch: branch, Value: out[key]}, nil
}
