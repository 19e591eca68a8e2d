package retrieval

import (
	"math"
	"sort"
	"time"

	"github.com/orgsignal/decision-cli/internal/model"
)

// Config holds the tunable relevance weights. Defaults reproduce the
// reference behavior; the constants are empirically chosen, not derived.
type Config struct {
	// Importance multipliers by tier. A missing tier scores as medium.
	ImportanceCritical  float64 `yaml:"importance_critical" mapstructure:"importance_critical"`
	ImportanceStrategic float64 `yaml:"importance_strategic" mapstructure:"importance_strategic"`
	ImportanceMedium    float64 `yaml:"importance_medium" mapstructure:"importance_medium"`
	ImportanceLow       float64 `yaml:"importance_low" mapstructure:"importance_low"`

	// Recency multipliers by age bucket.
	RecencyUnder1Mo  float64 `yaml:"recency_under_1mo" mapstructure:"recency_under_1mo"`
	RecencyUnder3Mo  float64 `yaml:"recency_under_3mo" mapstructure:"recency_under_3mo"`
	RecencyUnder6Mo  float64 `yaml:"recency_under_6mo" mapstructure:"recency_under_6mo"`
	RecencyUnder12Mo float64 `yaml:"recency_under_12mo" mapstructure:"recency_under_12mo"`
	RecencyOlder     float64 `yaml:"recency_older" mapstructure:"recency_older"`
	RecencyMissing   float64 `yaml:"recency_missing" mapstructure:"recency_missing"`

	// CharsPerToken converts character length to an estimated token cost.
	CharsPerToken float64 `yaml:"chars_per_token" mapstructure:"chars_per_token"`

	// MinResults relaxes which candidates are considered (never the budget)
	// until this many items are accepted; MaxResults is a hard cap.
	MinResults int `yaml:"min_results" mapstructure:"min_results"`
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`
}

// DefaultConfig returns the reference retrieval weights.
func DefaultConfig() Config {
	return Config{
		ImportanceCritical:  2.0,
		ImportanceStrategic: 1.5,
		ImportanceMedium:    1.0,
		ImportanceLow:       0.7,
		RecencyUnder1Mo:     1.0,
		RecencyUnder3Mo:     0.95,
		RecencyUnder6Mo:     0.85,
		RecencyUnder12Mo:    0.75,
		RecencyOlder:        0.6,
		RecencyMissing:      0.8,
		CharsPerToken:       0.25,
		MinResults:          3,
		MaxResults:          10,
	}
}

// Age bucket boundaries in days.
const (
	days1Mo  = 30
	days3Mo  = 90
	days6Mo  = 180
	days12Mo = 365
)

// Retriever is the budgeted relevance retriever. It is stateless: the
// TF-IDF index is rebuilt on every call, which is a deliberate
// simplicity/latency trade-off valid only because callers cap the corpus
// (at most 100 records) upstream.
type Retriever struct {
	cfg Config
	now func() time.Time
}

// New creates a Retriever with the given weights.
func New(cfg Config) *Retriever {
	if cfg.CharsPerToken <= 0 {
		cfg = DefaultConfig()
	}
	return &Retriever{cfg: cfg, now: time.Now}
}

// index holds per-call TF-IDF state for one corpus.
type index struct {
	idf  map[string]float64
	docs []docTokens
}

type docTokens struct {
	counts map[string]int
	length int
}

// buildIndex tokenizes every document and computes smoothed inverse
// document frequencies: idf(t) = ln(N/df(t)) + 1. The +1 keeps terms that
// occur in every document at a neutral positive weight.
func buildIndex(corpus []model.Decision) *index {
	ix := &index{
		idf:  make(map[string]float64),
		docs: make([]docTokens, len(corpus)),
	}
	df := make(map[string]int)
	for i, d := range corpus {
		tokens := Tokenize(d.Actor + " " + d.Text + " " + d.Reasoning)
		counts := make(map[string]int, len(tokens))
		for _, t := range tokens {
			counts[t]++
		}
		ix.docs[i] = docTokens{counts: counts, length: len(tokens)}
		for t := range counts {
			df[t]++
		}
	}
	n := float64(len(corpus))
	for t, d := range df {
		ix.idf[t] = math.Log(n/float64(d)) + 1
	}
	return ix
}

// score computes the final relevance of one document: mean tf·idf over the
// query terms, scaled by the importance and recency multipliers. Query
// terms absent from the index default to idf 1 so rare vocabulary is not
// over-penalized.
func (r *Retriever) score(queryTerms []string, ix *index, docIdx int, d model.Decision) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	doc := ix.docs[docIdx]
	if doc.length == 0 {
		return 0
	}

	var sum float64
	for _, t := range queryTerms {
		count, ok := doc.counts[t]
		if !ok {
			continue
		}
		idf, ok := ix.idf[t]
		if !ok {
			idf = 1
		}
		tf := float64(count) / float64(doc.length)
		sum += tf * idf
	}
	base := sum / float64(len(queryTerms))

	return base * r.importanceMultiplier(d.Importance) * r.recencyMultiplier(d.EffectiveTime())
}

func (r *Retriever) importanceMultiplier(imp model.Importance) float64 {
	switch imp {
	case model.ImportanceCritical:
		return r.cfg.ImportanceCritical
	case model.ImportanceStrategic:
		return r.cfg.ImportanceStrategic
	case model.ImportanceLow:
		return r.cfg.ImportanceLow
	default:
		// medium, missing, or unknown
		return r.cfg.ImportanceMedium
	}
}

func (r *Retriever) recencyMultiplier(ts time.Time) float64 {
	if ts.IsZero() {
		return r.cfg.RecencyMissing
	}
	ageDays := r.now().Sub(ts).Hours() / 24
	switch {
	case ageDays < days1Mo:
		return r.cfg.RecencyUnder1Mo
	case ageDays < days3Mo:
		return r.cfg.RecencyUnder3Mo
	case ageDays < days6Mo:
		return r.cfg.RecencyUnder6Mo
	case ageDays < days12Mo:
		return r.cfg.RecencyUnder12Mo
	default:
		return r.cfg.RecencyOlder
	}
}

// tokenCost estimates the token footprint of a decision at roughly four
// characters per token.
func (r *Retriever) tokenCost(d model.Decision) int {
	chars := len(d.Actor) + len(d.Text) + len(d.Reasoning) + len(d.Source)
	return int(math.Ceil(float64(chars) * r.cfg.CharsPerToken))
}

// candidate pairs a corpus entry with its score and estimated cost.
type candidate struct {
	decision model.Decision
	score    float64
	cost     int
}

// Retrieve scores every corpus member against the query and greedily
// selects a subset that fits the token budget. The cumulative estimate of
// the returned set never exceeds tokenBudget: once an item would overflow
// the remaining budget, the selector only keeps scanning for a smaller one
// (and only until MinResults items are accepted) — it never admits an
// over-budget item. The result is deterministic for fixed inputs.
func (r *Retriever) Retrieve(query string, corpus []model.Decision, tokenBudget int) model.RetrievalResult {
	result := model.RetrievalResult{
		Decisions: []model.Decision{},
		Scores:    make(map[string]float64, len(corpus)),
	}
	if len(corpus) == 0 {
		return result
	}

	queryTerms := Tokenize(query)
	ix := buildIndex(corpus)

	candidates := make([]candidate, 0, len(corpus))
	for i, d := range corpus {
		s := r.score(queryTerms, ix, i, d)
		result.Scores[d.ID] = s
		candidates = append(candidates, candidate{decision: d, score: s, cost: r.tokenCost(d)})
	}

	// Rank by score, breaking ties on id so the order is stable across
	// calls regardless of corpus order.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].decision.ID < candidates[j].decision.ID
	})

	remaining := tokenBudget
	for _, c := range candidates {
		if len(result.Decisions) >= r.cfg.MaxResults {
			break
		}
		if c.score <= 0 {
			// Ranked descending: everything after this is non-positive too.
			break
		}
		if c.cost > remaining {
			if len(result.Decisions) < r.cfg.MinResults {
				// Keep scanning for a smaller item that still fits.
				continue
			}
			break
		}
		result.Decisions = append(result.Decisions, c.decision)
		result.TokenCount += c.cost
		remaining -= c.cost
	}
	return result
}
