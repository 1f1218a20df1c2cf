// Package narrate turns an analysis result into a short prose briefing
// using the Anthropic Messages API.
package narrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/pkg/anthropic"
)

// Defaults used when Options leave them zero.
const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	DefaultMaxTokens = 512
)

const systemPrompt = `You write short performance briefings for advertising operators.
You are given one campaign's KPI judgments against its historical baseline bands,
the chosen bottleneck metric and a list of proposed actions.
Write one paragraph of at most four sentences in plain English.
State the headline first, then the bottleneck and why it matters, then the first action to take.
Only use the numbers provided. Do not invent figures or metrics.`

// Options configures a Narrator.
type Options struct {
	Model     string
	MaxTokens int64
}

// Narrator writes briefings for analysis results.
type Narrator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Narrator over client.
func New(client anthropic.Client, opts Options) *Narrator {
	n := &Narrator{client: client, model: opts.Model, maxTokens: opts.MaxTokens}
	if n.model == "" {
		n.model = DefaultModel
	}
	if n.maxTokens <= 0 {
		n.maxTokens = DefaultMaxTokens
	}
	return n
}

// Narrate returns a paragraph describing res. Results without a baseline
// are rejected since there is nothing to judge.
func (n *Narrator) Narrate(ctx context.Context, res analysis.Result) (string, error) {
	if res.Status != analysis.StatusOK {
		return "", eris.Errorf("narrate: result for %q has status %s", res.Campaign, res.Status)
	}

	resp, err := n.client.Complete(ctx, anthropic.Request{
		Model:     n.model,
		MaxTokens: n.maxTokens,
		System:    systemPrompt,
		Prompt:    Prompt(res),
	})
	if err != nil {
		return "", eris.Wrap(err, "narrate: complete")
	}
	resp.Usage.Log(n.model, zap.String("campaign", res.Campaign))

	text := resp.Text
	if text == "" {
		return "", eris.New("narrate: empty response")
	}
	zap.L().Debug("narrate: briefing written",
		zap.String("campaign", res.Campaign),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// Prompt renders the user message for res.
func Prompt(res analysis.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Campaign: %s\n", res.Campaign)
	fmt.Fprintf(&b, "Period: %s\n", res.Period)
	fmt.Fprintf(&b, "Headline: %s\n", res.Summary.Text())
	fmt.Fprintf(&b, "Confidence: %s (%s)\n", res.Confidence, res.ConfidenceReason)

	b.WriteString("\nMetrics:\n")
	for _, j := range res.Judgments {
		fmt.Fprintf(&b, "- %s: current %.2f, band %.2f to %.2f, %s", j.Metric, j.Current, j.Band.Lower, j.Band.Upper, j.State)
		if j.State.Bad() {
			fmt.Fprintf(&b, ", %.0f%% past the band", j.Deviation*100)
		}
		b.WriteString("\n")
	}

	if res.Bottleneck != nil {
		fmt.Fprintf(&b, "\nBottleneck: %s\n", res.Bottleneck.Metric)
	} else {
		b.WriteString("\nBottleneck: none\n")
	}

	b.WriteString("\nProposed actions:\n")
	for i, p := range res.Proposals {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return b.String()
}
