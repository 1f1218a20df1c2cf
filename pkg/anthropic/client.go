// Package anthropic is a narrow wrapper over the Anthropic Messages API
// for single-turn completions behind a cached system prompt.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client completes one prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is one user prompt under a system prompt. The system prompt
// always carries a cache breakpoint; an empty CacheTTL uses the API
// default of five minutes.
type Request struct {
	Model     string
	MaxTokens int64
	System    string
	CacheTTL  string // "5m" or "1h"
	Prompt    string
}

// Response is the joined text of a completion.
type Response struct {
	Text       string
	StopReason string
	Usage      Usage
}

// Usage counts the tokens billed for one completion.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
}

// model → {input $/MTok, output $/MTok}
var modelPricing = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
}

// EstimateCost returns the USD cost of u for model, or 0 for unknown models.
func (u Usage) EstimateCost(model string) float64 {
	p, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return (float64(u.InputTokens)*p[0] +
		float64(u.OutputTokens)*p[1] +
		float64(u.CacheWriteTokens)*p[0]*1.25 +
		float64(u.CacheReadTokens)*p[0]*0.1) / 1e6
}

// Log records u and its estimated cost.
func (u Usage) Log(model string, fields ...zap.Field) {
	zap.L().Info("anthropic: usage", append([]zap.Field{
		zap.String("model", model),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheWriteTokens),
		zap.Int64("cache_read_tokens", u.CacheReadTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	}, fields...)...)
}

type sdkClient struct {
	client sdk.Client
}

// NewClient returns a Client backed by the SDK. Extra request options such
// as a base URL are passed through.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{client: sdk.NewClient(opts...)}
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (*Response, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
	}
	if req.System != "" {
		cc := sdk.NewCacheControlEphemeralParam()
		if req.CacheTTL != "" {
			cc.TTL = sdk.CacheControlEphemeralTTL(req.CacheTTL)
		}
		params.System = []sdk.TextBlockParam{{Text: req.System, CacheControl: cc}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	var parts []string
	for _, b := range msg.Content {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return &Response{
		Text:       strings.TrimSpace(strings.Join(parts, "\n")),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:      msg.Usage.InputTokens,
			OutputTokens:     msg.Usage.OutputTokens,
			CacheWriteTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadTokens:  msg.Usage.CacheReadInputTokens,
		},
	}, nil
}
