package probability

import "sort"

// Vector maps an outcome key to its probability.
type Vector map[string]float64

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Sum adds up the values of keys. Missing keys count as zero.
func (v Vector) Sum(keys []string) float64 {
	var total float64
	for _, k := range keys {
		total += v[k]
	}
	return total
}

// Keys returns the keys of v in sorted order.
func (v Vector) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
