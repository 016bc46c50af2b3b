package probability

import (
	"errors"
	"fmt"
	"math"
)

// SumTolerance is how far a group total may drift from 1.0 and still be valid.
const SumTolerance = 1e-9

var (
	ErrUnknownKey   = errors.New("unknown probability key")
	ErrInvalidValue = errors.New("invalid probability value")
)

// Group is a set of mutually exclusive outcomes whose probabilities sum to 1.0.
// Key order only fixes iteration order.
type Group struct {
	ID   string   `json:"id" yaml:"id"`
	Keys []string `json:"keys" yaml:"keys"`
}

// Partition is the static set of groups plus a reverse index from key to group.
type Partition struct {
	groups []Group
	index  map[string]int
}

// NewPartition validates the groups and builds the key index. Group ids must be
// unique, every group needs at least two members and a key may belong to at
// most one group.
func NewPartition(groups ...Group) (*Partition, error) {
	p := &Partition{
		groups: make([]Group, 0, len(groups)),
		index:  make(map[string]int),
	}
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g.ID == "" {
			return nil, fmt.Errorf("group with keys %v has no id", g.Keys)
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("duplicate group id %q", g.ID)
		}
		seen[g.ID] = true
		if len(g.Keys) < 2 {
			return nil, fmt.Errorf("group %q needs at least 2 keys, has %d", g.ID, len(g.Keys))
		}
		keys := make([]string, len(g.Keys))
		copy(keys, g.Keys)
		for _, k := range keys {
			if k == "" {
				return nil, fmt.Errorf("group %q has an empty key", g.ID)
			}
			if other, ok := p.index[k]; ok {
				return nil, fmt.Errorf("key %q is in both %q and %q", k, p.groups[other].ID, g.ID)
			}
			p.index[k] = len(p.groups)
		}
		p.groups = append(p.groups, Group{ID: g.ID, Keys: keys})
	}
	return p, nil
}

// Groups returns a copy of the groups in configuration order.
func (p *Partition) Groups() []Group {
	out := make([]Group, len(p.groups))
	for i, g := range p.groups {
		keys := make([]string, len(g.Keys))
		copy(keys, g.Keys)
		out[i] = Group{ID: g.ID, Keys: keys}
	}
	return out
}

// GroupOf returns the group containing key.
func (p *Partition) GroupOf(key string) (Group, bool) {
	i, ok := p.index[key]
	if !ok {
		return Group{}, false
	}
	return p.groups[i], true
}

// Sums returns the current total of every group in v.
func (p *Partition) Sums(v Vector) map[string]float64 {
	sums := make(map[string]float64, len(p.groups))
	for _, g := range p.groups {
		sums[g.ID] = v.Sum(g.Keys)
	}
	return sums
}

// Validate checks that v covers every grouped key, that all values are finite
// and within [0, 1], and that every group sums to 1.0.
func (p *Partition) Validate(v Vector) error {
	for k, val := range v {
		if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 || val > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidValue, k, val)
		}
	}
	for _, g := range p.groups {
		for _, k := range g.Keys {
			if _, ok := v[k]; !ok {
				return fmt.Errorf("%w: %s missing from group %s", ErrUnknownKey, k, g.ID)
			}
		}
		if sum := v.Sum(g.Keys); math.Abs(sum-1.0) > SumTolerance {
			return fmt.Errorf("group %s sums to %.12f, must sum to 1.0", g.ID, sum)
		}
	}
	return nil
}
