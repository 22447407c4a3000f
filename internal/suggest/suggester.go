// Package suggest ranks likely categories for a description using a TF-IDF
// naive bayes classifier trained on already-classified transactions. The
// suggestions are advisory, shown during interactive review; they never
// override the matcher.
package suggest

import (
	"math"
	"sort"
	"strings"

	"github.com/jbrukh/bayesian"
)

// Sample is one training example: a description with its confirmed category.
type Sample struct {
	Description string
	Category    string
}

// Suggestion is one ranked candidate category.
type Suggestion struct {
	Category string
	Score    float64
}

// Suggester scores descriptions against trained categories. A suggester with
// too few categories or no training data is disabled and suggests nothing.
type Suggester struct {
	cl      *bayesian.Classifier
	classes []bayesian.Class
}

// NewSuggester trains a suggester on the given samples. Samples referencing
// categories outside the configured set are ignored. The classifier needs at
// least two categories and one usable sample; otherwise the suggester is
// disabled.
func NewSuggester(categories []string, samples []Sample) *Suggester {
	if len(categories) < 2 {
		return &Suggester{}
	}

	known := make(map[string]bool, len(categories))
	classes := make([]bayesian.Class, 0, len(categories))
	for _, category := range categories {
		known[category] = true
		classes = append(classes, bayesian.Class(category))
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	trained := 0
	for _, sample := range samples {
		t := terms(sample.Description)
		if len(t) == 0 || !known[sample.Category] {
			continue
		}
		cl.Learn(t, bayesian.Class(sample.Category))
		trained++
	}
	if trained == 0 {
		return &Suggester{}
	}
	cl.ConvertTermsFreqToTfIdf()

	return &Suggester{cl: cl, classes: classes}
}

// Enabled reports whether the suggester has enough training data to score.
func (s *Suggester) Enabled() bool {
	return s.cl != nil
}

// Suggest returns up to limit candidate categories for a description, best
// first. Candidates scoring far below the best hit (more than one standard
// deviation of the score spread) are cut off.
func (s *Suggester) Suggest(description string, limit int) []Suggestion {
	if !s.Enabled() || limit <= 0 {
		return nil
	}
	t := terms(description)
	if len(t) == 0 {
		return nil
	}

	scores, _, _ := s.cl.LogScores(t)

	var mean, stddev float64
	for _, score := range scores {
		mean += score
	}
	mean /= float64(len(scores))
	for _, score := range scores {
		stddev += math.Pow(score-mean, 2)
	}
	stddev /= float64(len(scores) - 1)
	stddev = math.Sqrt(stddev)

	ranked := make([]Suggestion, 0, len(scores))
	for pos, score := range scores {
		ranked = append(ranked, Suggestion{
			Category: string(s.classes[pos]),
			Score:    score,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	best := ranked[0].Score
	out := make([]Suggestion, 0, limit)
	for _, suggestion := range ranked {
		if len(out) == limit {
			break
		}
		if math.Abs(suggestion.Score-best) > stddev {
			break
		}
		out = append(out, suggestion)
	}
	return out
}

func terms(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
