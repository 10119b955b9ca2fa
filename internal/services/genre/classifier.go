package genre

import (
	"context"
	"log/slog"

	"github.com/vibecheck/api/internal/logger"
	"github.com/vibecheck/api/internal/metrics"
	"github.com/vibecheck/api/internal/services/ai"
	"github.com/vibecheck/api/internal/services/completion"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status tags a classification Outcome.
type Status int

const (
	StatusMatched Status = iota
	StatusMiss
	StatusUpstreamError
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusMiss:
		return "miss"
	case StatusUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of Classify.
type Outcome struct {
	Status Status
	Label  Genre  // set when Status == StatusMatched
	Raw    string // normalized model answer, for logging
	Err    error  // set when Status == StatusUpstreamError
}

// Genre collapses the outcome into "a genre or nothing".
func (o Outcome) Genre() (Genre, bool) {
	return o.Label, o.Status == StatusMatched
}

// Sampling holds the completion parameters used for classification.
type Sampling struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// DefaultSampling keeps answers short and close to deterministic.
var DefaultSampling = Sampling{Temperature: 0.2, MaxTokens: 8, TopP: 1}

// Classifier maps a free-text prompt to one allow-listed genre.
type Classifier struct {
	provider completion.Provider
	allow    *AllowList
	sampling Sampling
}

func NewClassifier(provider completion.Provider, allow *AllowList, sampling Sampling) *Classifier {
	if sampling.MaxTokens <= 0 {
		sampling.MaxTokens = DefaultSampling.MaxTokens
	}
	if sampling.TopP <= 0 {
		sampling.TopP = DefaultSampling.TopP
	}
	return &Classifier{provider: provider, allow: allow, sampling: sampling}
}

// AllowList exposes the classifier's genre set.
func (c *Classifier) AllowList() *AllowList {
	return c.allow
}

// Classify makes exactly one completion call. It never retries and never panics on
// provider failure.
func (c *Classifier) Classify(ctx context.Context, prompt string) Outcome {
	out := c.classify(ctx, prompt)
	metrics.ClassificationOutcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", out.Status.String()),
	))
	return out
}

func (c *Classifier) classify(ctx context.Context, prompt string) Outcome {
	content, err := c.provider.Complete(ctx, completion.Request{
		Messages: []completion.Message{
			{Role: "user", Content: ai.BuildGenrePrompt(c.allow.Sorted(), prompt)},
		},
		Temperature: c.sampling.Temperature,
		MaxTokens:   c.sampling.MaxTokens,
		TopP:        c.sampling.TopP,
	})
	if err != nil {
		slog.WarnContext(ctx, "Genre classification failed",
			"provider", c.provider.Name(),
			"error", err,
			logger.WithTraceContext(ctx))
		return Outcome{Status: StatusUpstreamError, Err: err}
	}

	label := Normalize(content)
	if label == "" || label == ai.NoneSentinel || !c.allow.Contains(label) {
		slog.DebugContext(ctx, "Genre classification miss", "answer", label)
		return Outcome{Status: StatusMiss, Raw: label}
	}

	return Outcome{Status: StatusMatched, Label: Genre(label), Raw: label}
}
