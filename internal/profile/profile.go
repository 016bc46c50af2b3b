// Package profile holds the static golf configuration: the outcome groups, the
// labels shown next to each slider, the archetype baselines and the categories
// used when analyzing a round.
package profile

import (
	"fmt"

	"github.com/MikeSquared-Agency/Strokes/internal/probability"
)

// Archetype names a baseline player.
type Archetype string

const (
	Skilled   Archetype = "skilled"
	Unskilled Archetype = "unskilled"
)

// Section is a display grouping of keys, mirroring the dashboard layout.
type Section struct {
	Title  string   `json:"title"`
	Groups []string `json:"groups,omitempty"`
	Keys   []string `json:"keys,omitempty"`
}

// Category is a part of the game the analysis swaps to the skilled baseline.
type Category struct {
	Name string   `json:"name"`
	Keys []string `json:"keys"`
}

// Profile bundles the partition with everything derived from it.
type Profile struct {
	Partition  *probability.Partition
	Labels     map[string]string
	Sections   []Section
	Categories []Category
	baselines  map[Archetype]probability.Vector
}

// Groups lists every constrained outcome group.
func Groups() []probability.Group {
	return []probability.Group{
		{ID: "tee", Keys: []string{"tee_fairway", "tee_rough", "tee_bunker"}},
		{ID: "fw", Keys: []string{"fw_green_short", "fw_green_lag", "fw_fringe", "fw_wedge_50", "fw_bunker"}},
		{ID: "rough", Keys: []string{"rough_green_short", "rough_green_lag", "rough_fringe", "rough_wedge_50", "rough_bunker"}},
		{ID: "fb", Keys: []string{"fb_green_short", "fb_green_lag", "fb_fringe", "fb_wedge_50", "fb_bunker", "fb_stay_in"}},
		{ID: "wedge_50", Keys: []string{"w50_green_short", "w50_green_lag", "w50_fringe", "w50_wedge_30", "w50_bunker"}},
		{ID: "wedge_30", Keys: []string{"w30_green_short", "w30_green_lag", "w30_fringe", "w30_wedge_15", "w30_bunker"}},
		{ID: "wedge_15", Keys: []string{"w15_green_short", "w15_green_lag", "w15_fringe", "w15_tapin", "w15_bunker"}},
		{ID: "chip", Keys: []string{"chip_tapin", "chip_short", "chip_lag"}},
		{ID: "sand", Keys: []string{"sand_green_short", "sand_green_lag", "sand_fringe", "sand_bunker", "sand_rough"}},
		{ID: "putt_lag", Keys: []string{"putt_lag_make", "putt_lag_to_tapin", "putt_lag_to_short"}},
	}
}

// UngroupedKeys are edited directly without rebalancing.
func UngroupedKeys() []string {
	return []string{"putt_short_make"}
}

// Labels returns the slider label for every key.
func Labels() map[string]string {
	const (
		greenShort = "Green Short (3-10ft) %"
		greenLag   = "Green Lag (30ft+) %"
		fringe     = "Missed Green (Chipping) %"
		wedge50    = "Wedge Range (50+ yds) %"
		bunker     = "Greenside Bunker %"
	)
	return map[string]string{
		"tee_fairway": "Fairway %", "tee_rough": "Rough %", "tee_bunker": "Fairway Bunker %",

		"fw_green_short": greenShort, "fw_green_lag": greenLag, "fw_fringe": fringe, "fw_wedge_50": wedge50, "fw_bunker": bunker,
		"rough_green_short": greenShort, "rough_green_lag": greenLag, "rough_fringe": fringe, "rough_wedge_50": wedge50, "rough_bunker": bunker,
		"fb_green_short": greenShort, "fb_green_lag": greenLag, "fb_fringe": fringe, "fb_wedge_50": wedge50, "fb_bunker": bunker,
		"fb_stay_in": "Stay in Fairway Bunker %",

		"w50_green_short": greenShort, "w50_green_lag": greenLag, "w50_fringe": fringe, "w50_wedge_30": "Wedge Range (30-50 yds) %", "w50_bunker": bunker,
		"w30_green_short": greenShort, "w30_green_lag": greenLag, "w30_fringe": fringe, "w30_wedge_15": "Wedge Range (15-30 yds) %", "w30_bunker": bunker,
		"w15_green_short": greenShort, "w15_green_lag": greenLag, "w15_fringe": fringe, "w15_tapin": "Tap-in Range (<3ft) %", "w15_bunker": bunker,

		"chip_tapin": "Chip to Tap-in (<3ft) %", "chip_short": "Chip to Short (3-10ft) %", "chip_lag": "Chip to Green Lag (30ft+) %",

		"sand_green_short": greenShort, "sand_green_lag": greenLag, "sand_fringe": fringe,
		"sand_bunker": "Stay in Bunker %", "sand_rough": "Escape to Rough %",

		"putt_lag_make": "Lag Make (30ft+) %", "putt_lag_to_tapin": "Lag to Tap-in (<3ft) %",
		"putt_lag_to_short": "Lag to Short (3-10ft) %", "putt_short_make": "Short Putt Make (3-10ft) %",
	}
}

// Sections returns the dashboard layout.
func Sections() []Section {
	return []Section{
		{Title: "Off the Tee", Groups: []string{"tee"}},
		{Title: "Approach Play", Groups: []string{"fw", "rough", "fb"}},
		{Title: "Wedge Game", Groups: []string{"wedge_50", "wedge_30", "wedge_15", "chip"}},
		{Title: "Greenside Bunker Game", Groups: []string{"sand"}},
		{Title: "Putting", Groups: []string{"putt_lag"}, Keys: []string{"putt_short_make"}},
	}
}

// Baseline returns a fresh copy of the archetype's default vector.
func Baseline(a Archetype) (probability.Vector, bool) {
	switch a {
	case Skilled:
		return probability.Vector{
			"tee_fairway": 0.61, "tee_rough": 0.35, "tee_bunker": 0.04,
			"fw_green_short": 0.35, "fw_green_lag": 0.40, "fw_fringe": 0.20, "fw_wedge_50": 0.03, "fw_bunker": 0.02,
			"rough_green_short": 0.20, "rough_green_lag": 0.28, "rough_fringe": 0.22, "rough_wedge_50": 0.25, "rough_bunker": 0.05,
			"fb_green_short": 0.18, "fb_green_lag": 0.30, "fb_fringe": 0.30, "fb_wedge_50": 0.15, "fb_bunker": 0.05, "fb_stay_in": 0.02,
			"w50_green_short": 0.40, "w50_green_lag": 0.45, "w50_fringe": 0.10, "w50_wedge_30": 0.03, "w50_bunker": 0.02,
			"w30_green_short": 0.55, "w30_green_lag": 0.30, "w30_fringe": 0.05, "w30_wedge_15": 0.05, "w30_bunker": 0.05,
			"w15_green_short": 0.70, "w15_green_lag": 0.10, "w15_fringe": 0.10, "w15_tapin": 0.08, "w15_bunker": 0.02,
			"chip_tapin": 0.25, "chip_short": 0.65, "chip_lag": 0.10,
			"sand_green_short": 0.68, "sand_green_lag": 0.20, "sand_fringe": 0.02, "sand_bunker": 0.02, "sand_rough": 0.08,
			"putt_lag_make": 0.07, "putt_lag_to_tapin": 0.80, "putt_lag_to_short": 0.13, "putt_short_make": 0.88,
		}, true
	case Unskilled:
		return probability.Vector{
			"tee_fairway": 0.40, "tee_rough": 0.50, "tee_bunker": 0.10,
			"fw_green_short": 0.10, "fw_green_lag": 0.20, "fw_fringe": 0.30, "fw_wedge_50": 0.20, "fw_bunker": 0.20,
			"rough_green_short": 0.05, "rough_green_lag": 0.10, "rough_fringe": 0.30, "rough_wedge_50": 0.35, "rough_bunker": 0.20,
			"fb_green_short": 0.05, "fb_green_lag": 0.10, "fb_fringe": 0.30, "fb_wedge_50": 0.40, "fb_bunker": 0.10, "fb_stay_in": 0.05,
			"w50_green_short": 0.15, "w50_green_lag": 0.35, "w50_fringe": 0.20, "w50_wedge_30": 0.15, "w50_bunker": 0.15,
			"w30_green_short": 0.20, "w30_green_lag": 0.40, "w30_fringe": 0.20, "w30_wedge_15": 0.10, "w30_bunker": 0.10,
			"w15_green_short": 0.35, "w15_green_lag": 0.35, "w15_fringe": 0.10, "w15_tapin": 0.10, "w15_bunker": 0.10,
			"chip_tapin": 0.10, "chip_short": 0.50, "chip_lag": 0.40,
			"sand_green_short": 0.25, "sand_green_lag": 0.25, "sand_fringe": 0.10, "sand_bunker": 0.30, "sand_rough": 0.10,
			"putt_lag_make": 0.02, "putt_lag_to_tapin": 0.40, "putt_lag_to_short": 0.58, "putt_short_make": 0.75,
		}, true
	}
	return nil, false
}

// Archetypes lists every known baseline name.
func Archetypes() []Archetype { return []Archetype{Skilled, Unskilled} }

// Categories groups keys into the parts of the game used by the analysis.
func Categories() []Category {
	concat := func(groupIDs ...string) []string {
		var keys []string
		for _, id := range groupIDs {
			for _, g := range Groups() {
				if g.ID == id {
					keys = append(keys, g.Keys...)
				}
			}
		}
		return keys
	}
	return []Category{
		{Name: "Off the Tee", Keys: concat("tee")},
		{Name: "Approach Play", Keys: concat("fw", "rough", "fb")},
		{Name: "Wedge Game", Keys: concat("wedge_50", "wedge_30", "wedge_15", "chip")},
		{Name: "Greenside Bunkers", Keys: concat("sand")},
		{Name: "Putting", Keys: append(concat("putt_lag"), UngroupedKeys()...)},
	}
}

// Load builds the partition and checks every baseline against it. It is meant
// to run once at startup.
func Load() (*Profile, error) {
	partition, err := probability.NewPartition(Groups()...)
	if err != nil {
		return nil, fmt.Errorf("build partition: %w", err)
	}

	p := &Profile{
		Partition:  partition,
		Labels:     Labels(),
		Sections:   Sections(),
		Categories: Categories(),
		baselines:  make(map[Archetype]probability.Vector),
	}

	keys := make(map[string]bool)
	for _, g := range Groups() {
		for _, k := range g.Keys {
			keys[k] = true
		}
	}
	for _, k := range UngroupedKeys() {
		keys[k] = true
	}

	for _, a := range Archetypes() {
		base, _ := Baseline(a)
		if err := partition.Validate(base); err != nil {
			return nil, fmt.Errorf("baseline %s: %w", a, err)
		}
		if len(base) != len(keys) {
			return nil, fmt.Errorf("baseline %s has %d keys, want %d", a, len(base), len(keys))
		}
		for k := range keys {
			if _, ok := base[k]; !ok {
				return nil, fmt.Errorf("baseline %s: missing key %s", a, k)
			}
			if _, ok := p.Labels[k]; !ok {
				return nil, fmt.Errorf("no label for key %s", k)
			}
		}
		p.baselines[a] = base
	}
	return p, nil
}

// Baseline returns a copy of the named baseline.
func (p *Profile) Baseline(a Archetype) (probability.Vector, bool) {
	base, ok := p.baselines[a]
	if !ok {
		return nil, false
	}
	return base.Clone(), true
}
