package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Sentiment classifies how a decision relates to its surrounding decisions.
type Sentiment string

const (
	SentimentRed     Sentiment = "RED"     // conflicting / blocking
	SentimentGreen   Sentiment = "GREEN"   // aligned / approving
	SentimentNeutral Sentiment = "NEUTRAL"
)

// ParseSentiment normalizes free-form sentiment strings from ingested files.
// Unknown values map to NEUTRAL.
func ParseSentiment(s string) Sentiment {
	switch s {
	case "RED", "red", "conflicting", "blocking":
		return SentimentRed
	case "GREEN", "green", "aligned", "approving":
		return SentimentGreen
	default:
		return SentimentNeutral
	}
}

// Importance is the ordered importance tier of a decision.
type Importance string

const (
	ImportanceLow       Importance = "low"
	ImportanceMedium    Importance = "medium"
	ImportanceStrategic Importance = "strategic"
	ImportanceCritical  Importance = "critical"
)

// Rank returns the ordinal position of the tier, with unknown tiers
// ranking alongside medium.
func (i Importance) Rank() int {
	switch i {
	case ImportanceLow:
		return 0
	case ImportanceStrategic:
		return 2
	case ImportanceCritical:
		return 3
	default:
		return 1
	}
}

// Decision is one recorded organizational choice. Records are immutable
// once created; the engines are read-only consumers.
type Decision struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"team_id"`
	Actor      string     `json:"actor"`
	Text       string     `json:"text"`
	Reasoning  string     `json:"reasoning,omitempty"`
	Sentiment  Sentiment  `json:"sentiment"`
	Importance Importance `json:"importance,omitempty"`
	Timestamp  time.Time  `json:"timestamp,omitempty"`
	Source     string     `json:"source,omitempty"` // provenance reference (file name)
	CreatedAt  time.Time  `json:"created_at"`
}

// DecisionID derives the stable content-hash identifier for a decision.
// Two uploads of the same actor+text+source always produce the same id.
func DecisionID(actor, text, source string) string {
	h := sha256.Sum256([]byte(actor + "\x00" + text + "\x00" + source))
	return hex.EncodeToString(h[:])
}

// Label returns a short human-readable handle for the decision, falling
// back to the raw id when there is no text.
func (d Decision) Label() string {
	if d.Text == "" {
		return d.ID
	}
	const maxLabel = 80
	label := d.Text
	if d.Actor != "" {
		label = d.Actor + ": " + label
	}
	if len(label) > maxLabel {
		label = label[:maxLabel-1] + "…"
	}
	return label
}

// EffectiveTime returns the decision's timestamp, falling back to the
// storage insertion time when the record carried none.
func (d Decision) EffectiveTime() time.Time {
	if !d.Timestamp.IsZero() {
		return d.Timestamp
	}
	return d.CreatedAt
}

// File is a provenance node for a batch of ingested decisions.
type File struct {
	Hash       string    `json:"file_hash"`
	Name       string    `json:"file_name"`
	TeamID     string    `json:"team_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}
