// Package brief assembles a budgeted context window of past decisions
// and asks Claude for a short decision brief answering a question.
package brief

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/orgsignal/decision-cli/internal/model"
	"github.com/orgsignal/decision-cli/internal/resilience"
	"github.com/orgsignal/decision-cli/internal/retrieval"
	"github.com/orgsignal/decision-cli/pkg/anthropic"
)

const systemPrompt = `You are a decision-intelligence assistant. You are given a
question and a set of past organizational decisions retrieved as context.
Answer the question in a short brief: cite the relevant past decisions by
actor, note tensions between them, and state what they imply for the
question at hand. Do not invent decisions that are not in the context.`

// Corpus lists the team's decisions for retrieval.
type Corpus interface {
	ListDecisions(ctx context.Context, teamID string, limit, offset int) ([]model.Decision, error)
}

// Config tunes brief generation.
type Config struct {
	Model       string
	MaxTokens   int64
	TokenBudget int
}

// Brief is a generated answer plus the context it was grounded on.
type Brief struct {
	Text    string
	Context []model.Decision
	Usage   anthropic.TokenUsage
}

// Generator wires the retriever to the Anthropic client. API calls go
// through a shared rate limiter and are retried on transient failures.
type Generator struct {
	corpus    Corpus
	retriever *retrieval.Retriever
	client    anthropic.Client
	limiter   *rate.Limiter
	cfg       Config
}

// New returns a Generator. A nil limiter means no rate limiting.
func New(corpus Corpus, retriever *retrieval.Retriever, client anthropic.Client, limiter *rate.Limiter, cfg Config) *Generator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = 2000
	}
	return &Generator{corpus: corpus, retriever: retriever, client: client, limiter: limiter, cfg: cfg}
}

// Generate answers the question for the team using its retrieved
// decision context.
func (g *Generator) Generate(ctx context.Context, teamID, question string) (*Brief, error) {
	if question == "" {
		return nil, eris.New("brief: question is required")
	}

	decisions, err := g.corpus.ListDecisions(ctx, teamID, 0, 0)
	if err != nil {
		return nil, eris.Wrapf(err, "brief: list decisions for team %s", teamID)
	}

	result := g.retriever.Retrieve(question, decisions, g.cfg.TokenBudget)
	zap.L().Debug("retrieved brief context",
		zap.String("team", teamID),
		zap.Int("decisions", len(result.Decisions)),
		zap.Int("token_count", result.TokenCount))

	req := anthropic.MessageRequest{
		Model:     g.cfg.Model,
		MaxTokens: g.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(question, result.Decisions)},
		},
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "brief: rate limit wait")
		}
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrap(err, "brief: generate")
	}

	resp.Usage.LogCost(g.cfg.Model, "brief")
	return &Brief{Text: resp.FirstText(), Context: result.Decisions, Usage: resp.Usage}, nil
}

// buildPrompt renders the retrieved decisions and the question into one
// user message.
func buildPrompt(question string, decisions []model.Decision) string {
	var b strings.Builder
	if len(decisions) == 0 {
		b.WriteString("No past decisions were found for this team.\n\n")
	} else {
		b.WriteString("Past decisions, most relevant first:\n\n")
		for i, d := range decisions {
			fmt.Fprintf(&b, "%d. [%s", i+1, d.Sentiment)
			if d.Importance != "" {
				fmt.Fprintf(&b, ", %s", d.Importance)
			}
			b.WriteString("] ")
			b.WriteString(d.Label())
			if d.Reasoning != "" {
				fmt.Fprintf(&b, "\n   reasoning: %s", d.Reasoning)
			}
			if !d.EffectiveTime().IsZero() {
				fmt.Fprintf(&b, "\n   date: %s", d.EffectiveTime().Format("2006-01-02"))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Question: " + question)
	return b.String()
}
