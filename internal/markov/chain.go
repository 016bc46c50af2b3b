// Package markov evaluates absorbing Markov chains. A golf hole is modelled as
// a chain whose last state, the hole itself, is absorbing; the expected number
// of steps to absorption from the tee is the expected score.
package markov

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

const rowTolerance = 1e-8

// maxWalk bounds a single simulated walk so a chain that barely absorbs
// cannot spin forever.
const maxWalk = 10000

var (
	ErrUnknownState = errors.New("unknown state")
	ErrNoAbsorption = errors.New("chain does not reach the absorbing state")
)

// Chain is a row-stochastic transition matrix over named states. The last
// state is the absorbing one. A Chain is safe for concurrent use.
type Chain struct {
	states []string
	index  map[string]int
	p      *mat.Dense

	once     sync.Once
	expected []float64
	err      error
}

// NewChain checks dimensions and that every row sums to 1.
func NewChain(states []string, p *mat.Dense) (*Chain, error) {
	if len(states) < 2 {
		return nil, fmt.Errorf("need at least 2 states, got %d", len(states))
	}
	r, c := p.Dims()
	if r != len(states) || c != len(states) {
		return nil, fmt.Errorf("matrix is %dx%d, want %dx%d", r, c, len(states), len(states))
	}
	index := make(map[string]int, len(states))
	for i, s := range states {
		if _, dup := index[s]; dup {
			return nil, fmt.Errorf("duplicate state %q", s)
		}
		index[s] = i
	}
	for i := 0; i < r; i++ {
		var sum float64
		for j := 0; j < c; j++ {
			v := p.At(i, j)
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("row %s has invalid probability %v", states[i], v)
			}
			sum += v
		}
		if math.Abs(sum-1.0) > rowTolerance {
			return nil, fmt.Errorf("row %s sums to %.6f, must sum to 1.0", states[i], sum)
		}
	}

	cp := mat.DenseCopyOf(p)
	st := make([]string, len(states))
	copy(st, states)
	return &Chain{states: st, index: index, p: cp}, nil
}

func (c *Chain) States() []string {
	out := make([]string, len(c.states))
	copy(out, c.states)
	return out
}

// Matrix returns the transition matrix as rows.
func (c *Chain) Matrix() [][]float64 {
	r, _ := c.p.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, c.p)
	}
	return out
}

// fundamental computes N = (I - Q)^-1 once, where Q is the transient block,
// and keeps the row sums of N.
func (c *Chain) fundamental() ([]float64, error) {
	c.once.Do(func() {
		n := len(c.states) - 1
		q := c.p.Slice(0, n, 0, n)

		ones := make([]float64, n)
		for i := range ones {
			ones[i] = 1
		}
		var iq mat.Dense
		iq.Sub(mat.NewDiagDense(n, ones), q)

		var fund mat.Dense
		if err := fund.Inverse(&iq); err != nil {
			c.err = fmt.Errorf("%w: %v", ErrNoAbsorption, err)
			return
		}

		c.expected = make([]float64, n)
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				sum += fund.At(i, j)
			}
			if sum < 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
				c.err = fmt.Errorf("%w: state %s", ErrNoAbsorption, c.states[i])
				return
			}
			c.expected[i] = sum
		}
	})
	return c.expected, c.err
}

// ExpectedSteps is the expected number of transitions from start until the
// absorbing state. It is 0 for the absorbing state.
func (c *Chain) ExpectedSteps(start string) (float64, error) {
	i, ok := c.index[start]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownState, start)
	}
	if i == len(c.states)-1 {
		return 0, nil
	}
	expected, err := c.fundamental()
	if err != nil {
		return 0, err
	}
	return expected[i], nil
}

// Simulate estimates ExpectedSteps by running n random walks from start.
func (c *Chain) Simulate(start string, n int, rng *rand.Rand) (float64, error) {
	i, ok := c.index[start]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownState, start)
	}
	if n <= 0 {
		return 0, fmt.Errorf("simulation count must be positive, got %d", n)
	}
	absorbing := len(c.states) - 1

	var total int
	for sim := 0; sim < n; sim++ {
		cur := i
		steps := 0
		for cur != absorbing {
			if steps >= maxWalk {
				return 0, fmt.Errorf("%w: walk from %s exceeded %d steps", ErrNoAbsorption, start, maxWalk)
			}
			cur = c.step(cur, rng.Float64())
			steps++
		}
		total += steps
	}
	return float64(total) / float64(n), nil
}

func (c *Chain) step(from int, u float64) int {
	_, cols := c.p.Dims()
	var cum float64
	last := from
	for j := 0; j < cols; j++ {
		p := c.p.At(from, j)
		if p == 0 {
			continue
		}
		cum += p
		last = j
		if u < cum {
			return j
		}
	}
	return last
}
