package markov

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrMissingStat = errors.New("missing stat")
	ErrInvalidStat = errors.New("invalid stat")
)

// Hole states. Hole is last so it is the absorbing state.
const (
	Tee         = "Tee"
	Fairway     = "Fairway"
	Rough       = "Rough"
	Wedge50     = "Wedge_50"
	Wedge30     = "Wedge_30"
	Wedge15     = "Wedge_15"
	BunkerFW    = "Bunker_FW"
	BunkerGS    = "Bunker_GS"
	GreenFringe = "Green_Fringe"
	GreenLag    = "Green_Lag"
	GreenShort  = "Green_Short"
	GreenTapIn  = "Green_TapIn"
	Hole        = "Hole"
)

// tapInMake is fixed rather than user-tunable.
const tapInMake = 0.99

func HoleStates() []string {
	return []string{
		Tee, Fairway, Rough, Wedge50, Wedge30, Wedge15, BunkerFW, BunkerGS,
		GreenFringe, GreenLag, GreenShort, GreenTapIn, Hole,
	}
}

type transition struct {
	from, to string
	stat     string
}

// holeTransitions maps each tunable stat onto a matrix cell.
var holeTransitions = []transition{
	{Tee, Fairway, "tee_fairway"}, {Tee, Rough, "tee_rough"}, {Tee, BunkerFW, "tee_bunker"},

	{Fairway, GreenShort, "fw_green_short"}, {Fairway, GreenLag, "fw_green_lag"}, {Fairway, GreenFringe, "fw_fringe"},
	{Fairway, Wedge50, "fw_wedge_50"}, {Fairway, BunkerGS, "fw_bunker"},

	{Rough, GreenShort, "rough_green_short"}, {Rough, GreenLag, "rough_green_lag"}, {Rough, GreenFringe, "rough_fringe"},
	{Rough, Wedge50, "rough_wedge_50"}, {Rough, BunkerGS, "rough_bunker"},

	{BunkerFW, GreenShort, "fb_green_short"}, {BunkerFW, GreenLag, "fb_green_lag"}, {BunkerFW, GreenFringe, "fb_fringe"},
	{BunkerFW, Wedge50, "fb_wedge_50"}, {BunkerFW, BunkerGS, "fb_bunker"}, {BunkerFW, BunkerFW, "fb_stay_in"},

	{Wedge50, GreenShort, "w50_green_short"}, {Wedge50, GreenLag, "w50_green_lag"}, {Wedge50, GreenFringe, "w50_fringe"},
	{Wedge50, Wedge30, "w50_wedge_30"}, {Wedge50, BunkerGS, "w50_bunker"},

	{Wedge30, GreenShort, "w30_green_short"}, {Wedge30, GreenLag, "w30_green_lag"}, {Wedge30, GreenFringe, "w30_fringe"},
	{Wedge30, Wedge15, "w30_wedge_15"}, {Wedge30, BunkerGS, "w30_bunker"},

	{Wedge15, GreenShort, "w15_green_short"}, {Wedge15, GreenLag, "w15_green_lag"}, {Wedge15, GreenFringe, "w15_fringe"},
	{Wedge15, GreenTapIn, "w15_tapin"}, {Wedge15, BunkerGS, "w15_bunker"},

	{GreenFringe, GreenTapIn, "chip_tapin"}, {GreenFringe, GreenShort, "chip_short"}, {GreenFringe, GreenLag, "chip_lag"},

	{BunkerGS, GreenShort, "sand_green_short"}, {BunkerGS, GreenLag, "sand_green_lag"}, {BunkerGS, GreenFringe, "sand_fringe"},
	{BunkerGS, BunkerGS, "sand_bunker"}, {BunkerGS, Rough, "sand_rough"},

	{GreenLag, Hole, "putt_lag_make"}, {GreenLag, GreenTapIn, "putt_lag_to_tapin"}, {GreenLag, GreenShort, "putt_lag_to_short"},

	{GreenShort, Hole, "putt_short_make"},
}

// StatKeys lists every stat HoleModel reads.
func StatKeys() []string {
	keys := make([]string, len(holeTransitions))
	for i, t := range holeTransitions {
		keys[i] = t.stat
	}
	return keys
}

// HoleModel builds the par-4 chain for a set of shot-outcome stats. Every
// transient row is rescaled to sum to 1, so stats only need to be
// proportionally right.
func HoleModel(stats map[string]float64) (*Chain, error) {
	states := HoleStates()
	idx := make(map[string]int, len(states))
	for i, s := range states {
		idx[s] = i
	}
	n := len(states)
	p := mat.NewDense(n, n, nil)
	p.Set(idx[Hole], idx[Hole], 1)

	for _, t := range holeTransitions {
		v, ok := stats[t.stat]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingStat, t.stat)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidStat, t.stat, v)
		}
		p.Set(idx[t.from], idx[t.to], p.At(idx[t.from], idx[t.to])+v)
	}
	p.Set(idx[GreenShort], idx[GreenTapIn], 1-stats["putt_short_make"])
	p.Set(idx[GreenTapIn], idx[Hole], tapInMake)
	p.Set(idx[GreenTapIn], idx[GreenTapIn], 1-tapInMake)

	for i := 0; i < n; i++ {
		if i == idx[Hole] {
			continue
		}
		row := p.RawRowView(i)
		var sum float64
		for _, v := range row {
			sum += v
		}
		if sum <= 0 {
			return nil, fmt.Errorf("%w: no outcomes from %s", ErrInvalidStat, states[i])
		}
		for j := range row {
			row[j] /= sum
		}
	}

	return NewChain(states, p)
}

// ExpectedScore is the expected number of strokes from the tee.
func ExpectedScore(stats map[string]float64) (float64, error) {
	chain, err := HoleModel(stats)
	if err != nil {
		return 0, err
	}
	return chain.ExpectedSteps(Tee)
}
