// Package analysis ranks the parts of a player's game by how many strokes per
// hole they would save by matching the skilled baseline.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Strokes/internal/metrics"
	"github.com/MikeSquared-Agency/Strokes/internal/probability"
	"github.com/MikeSquared-Agency/Strokes/internal/profile"
	"github.com/MikeSquared-Agency/Strokes/internal/simulator"
)

// GoalFraction is the share of the biggest gap used for the practice goal.
const GoalFraction = 0.2

// CategoryGain is the score improvement from swapping one category to the
// skilled baseline. A negative gain means the player already beats it.
type CategoryGain struct {
	Rank          int     `json:"rank"`
	Name          string  `json:"name"`
	Gain          float64 `json:"gain"`
	Outperforming bool    `json:"outperforming"`
}

type Summary struct {
	// BiggestOpportunity is empty when no category has a positive gain.
	BiggestOpportunity string  `json:"biggest_opportunity,omitempty"`
	Goal               float64 `json:"goal,omitempty"`
	StrongestArea      string  `json:"strongest_area"`
	Elite              bool    `json:"elite"`
}

type Report struct {
	UserScore     float64        `json:"user_score"`
	SkilledScore  float64        `json:"skilled_score"`
	StrokesGained float64        `json:"strokes_gained"`
	Categories    []CategoryGain `json:"categories"`
	Summary       Summary        `json:"summary"`
}

type Analyzer struct {
	client  simulator.Client
	profile *profile.Profile
}

func NewAnalyzer(client simulator.Client, p *profile.Profile) *Analyzer {
	return &Analyzer{client: client, profile: p}
}

// Analyze scores values, the skilled baseline and one variant per category,
// all concurrently. Any engine failure fails the whole report.
func (a *Analyzer) Analyze(ctx context.Context, values probability.Vector) (Report, error) {
	skilled, ok := a.profile.Baseline(profile.Skilled)
	if !ok {
		return Report{}, fmt.Errorf("no %s baseline", profile.Skilled)
	}

	var report Report
	cats := a.profile.Categories
	improved := make([]float64, len(cats))

	g, subCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := a.client.ExpectedScore(subCtx, values)
		if err != nil {
			return fmt.Errorf("score current values: %w", err)
		}
		report.UserScore = s
		return nil
	})
	g.Go(func() error {
		s, err := a.client.ExpectedScore(subCtx, skilled)
		if err != nil {
			return fmt.Errorf("score skilled baseline: %w", err)
		}
		report.SkilledScore = s
		return nil
	})
	for i, cat := range cats {
		stats := swap(values, skilled, cat.Keys)
		g.Go(func() error {
			s, err := a.client.ExpectedScore(subCtx, stats)
			if err != nil {
				return fmt.Errorf("score %s: %w", cat.Name, err)
			}
			improved[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.Analyses.WithLabelValues("failed").Inc()
		return Report{}, err
	}
	metrics.Analyses.WithLabelValues("ok").Inc()

	report.StrokesGained = report.SkilledScore - report.UserScore
	report.Categories = make([]CategoryGain, len(cats))
	for i, cat := range cats {
		gain := report.UserScore - improved[i]
		report.Categories[i] = CategoryGain{Name: cat.Name, Gain: gain, Outperforming: gain < 0}
	}
	sort.SliceStable(report.Categories, func(i, j int) bool {
		return report.Categories[i].Gain > report.Categories[j].Gain
	})
	for i := range report.Categories {
		report.Categories[i].Rank = i + 1
	}
	report.Summary = summarize(report.Categories)
	return report, nil
}

// swap returns a copy of values with keys taken from baseline.
func swap(values, baseline probability.Vector, keys []string) probability.Vector {
	out := values.Clone()
	for _, k := range keys {
		if v, ok := baseline[k]; ok {
			out[k] = v
		}
	}
	return out
}

// summarize expects gains sorted descending.
func summarize(gains []CategoryGain) Summary {
	var s Summary
	if len(gains) == 0 {
		return s
	}
	top, bottom := gains[0], gains[len(gains)-1]
	s.StrongestArea = bottom.Name
	s.Elite = bottom.Gain < 0
	if top.Gain > 0 {
		s.BiggestOpportunity = top.Name
		s.Goal = top.Gain * GoalFraction
	}
	return s
}
