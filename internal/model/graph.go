package model

import "time"

// EdgeType is the semantic type of a directed edge between decision nodes.
type EdgeType string

const (
	EdgeCauses    EdgeType = "CAUSES"
	EdgeBlocks    EdgeType = "BLOCKS"
	EdgeDependsOn EdgeType = "DEPENDS_ON"
	EdgeNext      EdgeType = "NEXT"      // sequential order within one file, carries Sequence
	EdgeFromFile  EdgeType = "FROM_FILE" // provenance link to a File node
)

// GraphEdge is a directed, typed edge between two decision nodes.
// Both endpoints always belong to the same team; the graph never
// connects nodes across tenants.
type GraphEdge struct {
	TeamID   string   `json:"team_id"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Type     EdgeType `json:"type"`
	Sequence int      `json:"sequence,omitempty"` // NEXT edges only
}

// ConflictFlag marks a short chain of decisions that together indicate
// an unresolved contradiction. Flags are derived per computation, never
// read back from storage; Resolved is mutated by an external workflow.
type ConflictFlag struct {
	FlagID       string    `json:"flag_id"`
	DecisionA    string    `json:"decision_a"` // display label, not raw id
	DecisionB    string    `json:"decision_b"`
	Severity     int       `json:"severity"` // 1-10
	ConflictPath []string  `json:"conflict_path"`
	DetectedAt   time.Time `json:"detected_at"`
	Resolved     bool      `json:"resolved"`
}

// ConsistencyMetrics is the recomputed-per-request health summary for a
// team's decision graph. The four counts always accompany the score so a
// reviewer can recompute it without re-running the graph query.
type ConsistencyMetrics struct {
	Score               int `json:"score"` // 0-100
	RedFlags            int `json:"red_flags"`
	GreenAlignments     int `json:"green_alignments"`
	NeutralCount        int `json:"neutral_count"`
	UnresolvedConflicts int `json:"unresolved_conflicts"`
	TotalDecisions      int `json:"total_decisions"`
}

// RetrievalResult is the budget-bounded output of the relevance retriever.
type RetrievalResult struct {
	Decisions  []Decision         `json:"decisions"`
	TokenCount int                `json:"token_count"`
	Scores     map[string]float64 `json:"scores"`
}
