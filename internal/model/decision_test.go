package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Sentiment
	}{
		{"RED", SentimentRed},
		{"red", SentimentRed},
		{"conflicting", SentimentRed},
		{"blocking", SentimentRed},
		{"GREEN", SentimentGreen},
		{"aligned", SentimentGreen},
		{"NEUTRAL", SentimentNeutral},
		{"", SentimentNeutral},
		{"garbage", SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseSentiment(tt.input))
		})
	}
}

func TestImportanceRank(t *testing.T) {
	t.Parallel()

	assert.Less(t, ImportanceLow.Rank(), ImportanceMedium.Rank())
	assert.Less(t, ImportanceMedium.Rank(), ImportanceStrategic.Rank())
	assert.Less(t, ImportanceStrategic.Rank(), ImportanceCritical.Rank())

	// Unknown tiers rank alongside medium.
	assert.Equal(t, ImportanceMedium.Rank(), Importance("").Rank())
	assert.Equal(t, ImportanceMedium.Rank(), Importance("urgent").Rank())
}

func TestDecisionID(t *testing.T) {
	t.Parallel()

	a := DecisionID("alice", "ship the migration", "q3.yaml")
	b := DecisionID("alice", "ship the migration", "q3.yaml")
	assert.Equal(t, a, b, "same inputs must hash to the same id")
	assert.Len(t, a, 64)

	// Field boundaries matter: actor/text must not be able to collide
	// by shifting characters between them.
	c := DecisionID("alices", "hip the migration", "q3.yaml")
	assert.NotEqual(t, a, c)
}

func TestDecisionLabel(t *testing.T) {
	t.Parallel()

	d := Decision{ID: "abc123", Actor: "bob", Text: "freeze hiring"}
	assert.Equal(t, "bob: freeze hiring", d.Label())

	// No text falls back to the raw id.
	empty := Decision{ID: "abc123"}
	assert.Equal(t, "abc123", empty.Label())

	long := Decision{ID: "x", Text: strings.Repeat("a", 200)}
	assert.LessOrEqual(t, len(long.Label()), 83) // 79 bytes + ellipsis rune
}

func TestDecisionEffectiveTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	d := Decision{Timestamp: ts, CreatedAt: created}
	assert.Equal(t, ts, d.EffectiveTime())

	// Missing timestamp falls back to insertion time.
	d.Timestamp = time.Time{}
	assert.Equal(t, created, d.EffectiveTime())
}
