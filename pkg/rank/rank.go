// Package rank scores and selects which candidate neighbors an expansion
// actually reveals.
//
// Expanding a well-connected node can surface dozens of neighbors; showing
// all of them at once buries the user. The ranker computes a composite
// relevance score per candidate from five normalized signals, picks a
// bounded, category-diverse subset, and hands the ranked remainder back as
// an overflow buffer for later "load more" paging.
//
// Composite score (each signal normalized to [0,1], weighted sum):
//   - Confidence (0.35): mean edge confidence plus a log-count bonus.
//   - Evidence   (0.25): total evidence items, saturating at 10.
//   - Provenance (0.15): best-of curated(1.0)/literature(0.5)/inferred(0.2).
//   - Metrics    (0.15): papers + 3·trials + 2·patents, saturating at 20.
//   - Cooccur    (0.10): max co-occurrence score, clamped.
//
// Selection: if the candidate set fits the budget it is returned as-is.
// Otherwise candidates are sorted by score, one top representative per
// distinct category is taken first (diversity pass), and the rest of the
// budget is filled by global rank (fill pass).
//
// ELI12: imagine picking 5 trading cards out of a pile of 30. First you take
// the best card of each color so your hand isn't all one color, then you top
// up with the strongest leftovers. The rest of the pile stays sorted face-up
// so "show more" just deals off the top.
package rank

import (
	"math"
	"sort"

	"github.com/orneryd/bifrost/pkg/graph"
)

// Weights holds the relative contribution of each signal. They are tuning
// values; DefaultWeights matches the product defaults.
type Weights struct {
	Confidence   float64 `yaml:"confidence"`
	Evidence     float64 `yaml:"evidence"`
	Provenance   float64 `yaml:"provenance"`
	Metrics      float64 `yaml:"metrics"`
	Cooccurrence float64 `yaml:"cooccurrence"`
}

// DefaultWeights returns the stock signal weights.
func DefaultWeights() Weights {
	return Weights{
		Confidence:   0.35,
		Evidence:     0.25,
		Provenance:   0.15,
		Metrics:      0.15,
		Cooccurrence: 0.10,
	}
}

// Candidate pairs a not-yet-visible entity with the edges that connect it
// to the current view.
type Candidate struct {
	Entity *graph.Entity
	Edges  []*graph.Edge
}

// Scored is a candidate with its computed composite score.
type Scored struct {
	Candidate
	Score float64
}

// Result is the outcome of one ranking call.
type Result struct {
	// Selected are the candidates to reveal, at most MaxResults of them.
	Selected []Scored
	// Overflow is the unselected remainder in descending score order,
	// ready to become the focal node's overflow buffer.
	Overflow []Scored
}

// Ranker computes composite scores and diversity-aware selections.
type Ranker struct {
	weights Weights
}

// New creates a Ranker. Zero-valued weights fall back to the defaults.
func New(weights Weights) *Ranker {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Ranker{weights: weights}
}

// Rank selects up to maxResults candidates to reveal. Candidates already in
// visible are skipped; candidates with no connecting edges score zero but
// are still legal. An empty result is a no-op for the caller, never an
// error.
//
// When the (filtered) candidate set fits within maxResults it is returned
// unranked, in input order, with no overflow — there is nothing to choose
// between.
func (r *Ranker) Rank(candidates []Candidate, visible map[graph.EntityID]struct{}, maxResults int) Result {
	filtered := make([]Candidate, 0, len(candidates))
	seen := make(map[graph.EntityID]struct{}, len(candidates))
	for _, c := range candidates {
		if c.Entity == nil || c.Entity.ID == "" {
			continue
		}
		if _, dup := seen[c.Entity.ID]; dup {
			continue
		}
		if _, vis := visible[c.Entity.ID]; vis {
			continue
		}
		seen[c.Entity.ID] = struct{}{}
		filtered = append(filtered, c)
	}

	if maxResults <= 0 || len(filtered) == 0 {
		return Result{}
	}

	if len(filtered) <= maxResults {
		out := make([]Scored, len(filtered))
		for i, c := range filtered {
			out[i] = Scored{Candidate: c, Score: r.Score(c)}
		}
		return Result{Selected: out}
	}

	scored := make([]Scored, len(filtered))
	for i, c := range filtered {
		scored[i] = Scored{Candidate: c, Score: r.Score(c)}
	}
	// Descending by score; ties broken by id so ranking is deterministic.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Entity.ID < scored[j].Entity.ID
	})

	selected := make([]Scored, 0, maxResults)
	taken := make(map[graph.EntityID]struct{}, maxResults)

	// Diversity pass: highest-scored representative of each distinct
	// category, in score order, until categories run out or the budget is
	// spent.
	categorySeen := make(map[graph.Category]struct{})
	for _, s := range scored {
		if len(selected) >= maxResults {
			break
		}
		if _, have := categorySeen[s.Entity.Category]; have {
			continue
		}
		categorySeen[s.Entity.Category] = struct{}{}
		taken[s.Entity.ID] = struct{}{}
		selected = append(selected, s)
	}

	// Fill pass: remaining budget by global rank.
	for _, s := range scored {
		if len(selected) >= maxResults {
			break
		}
		if _, have := taken[s.Entity.ID]; have {
			continue
		}
		taken[s.Entity.ID] = struct{}{}
		selected = append(selected, s)
	}

	overflow := make([]Scored, 0, len(scored)-len(selected))
	for _, s := range scored {
		if _, have := taken[s.Entity.ID]; have {
			continue
		}
		overflow = append(overflow, s)
	}

	return Result{Selected: selected, Overflow: overflow}
}

// Score computes the composite relevance score for one candidate over its
// connecting edges. All five signals land in [0,1] before weighting, so the
// composite is monotone in each signal.
func (r *Ranker) Score(c Candidate) float64 {
	if len(c.Edges) == 0 {
		return 0
	}

	var confSum float64
	confCount := 0
	totalEvidence := 0
	bestProvenance := provenanceValue("")
	var metrics float64
	var maxCooccur float64

	for _, e := range c.Edges {
		if e == nil {
			continue
		}
		if e.HasConfidence {
			confSum += clamp01(e.ConfidenceScore)
			confCount++
		}
		totalEvidence += len(e.EvidenceItems)
		if pv := provenanceValue(e.Provenance); pv > bestProvenance {
			bestProvenance = pv
		}
		metrics += float64(e.PaperCount) + 3*float64(e.TrialCount) + 2*float64(e.PatentCount)
		if e.CooccurrenceScore > maxCooccur {
			maxCooccur = e.CooccurrenceScore
		}
	}

	confidence := 0.0
	if confCount > 0 {
		confidence = confSum / float64(confCount)
	}
	confidence += 0.1 * math.Log2(float64(len(c.Edges)))
	confidence = clamp01(confidence)

	evidence := clamp01(float64(totalEvidence) / 10)
	metricsScore := clamp01(metrics / 20)
	cooccur := clamp01(maxCooccur)

	return r.weights.Confidence*confidence +
		r.weights.Evidence*evidence +
		r.weights.Provenance*bestProvenance +
		r.weights.Metrics*metricsScore +
		r.weights.Cooccurrence*cooccur
}

// provenanceValue maps provenance onto its signal value. Unknown values get
// the inferred floor rather than zero, so a sloppy source isn't punished
// below "inferred".
func provenanceValue(p graph.Provenance) float64 {
	switch p {
	case graph.ProvenanceCurated:
		return 1.0
	case graph.ProvenanceLiterature:
		return 0.5
	default:
		return 0.2
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
