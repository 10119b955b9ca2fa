package recommendation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/vibecheck/api/internal/errors"
	"github.com/vibecheck/api/internal/logger"
	"github.com/vibecheck/api/internal/metrics"
	"github.com/vibecheck/api/internal/sentry"
	"github.com/vibecheck/api/internal/services/artist"
	"github.com/vibecheck/api/internal/services/genre"
	"github.com/vibecheck/api/internal/telemetry"
	"github.com/vibecheck/api/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vibecheck/api/recommendation"

// GenreClassifier derives a genre from a prompt.
type GenreClassifier interface {
	Classify(ctx context.Context, prompt string) genre.Outcome
}

// ArtistResolver finds artists in the catalog.
type ArtistResolver interface {
	Resolve(ctx context.Context, genre, userToken string, limit int) artist.Result
	SimilarToTrack(ctx context.Context, songID, userToken string) artist.SeedResult
}

type Options struct {
	MaxPromptLength int
	ResultLimit     int
}

// Orchestrator runs prompt -> genre -> artists and shapes the client response.
type Orchestrator struct {
	classifier GenreClassifier
	resolver   ArtistResolver
	opts       Options
}

func New(classifier GenreClassifier, resolver ArtistResolver, opts Options) *Orchestrator {
	if opts.MaxPromptLength <= 0 {
		opts.MaxPromptLength = validation.DefaultMaxPromptLength
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = artist.DefaultLimit
	}
	return &Orchestrator{classifier: classifier, resolver: resolver, opts: opts}
}

// GetPromptRecommendations never returns an error: every failure becomes a Result with
// Success false and a client-safe message.
func (o *Orchestrator) GetPromptRecommendations(ctx context.Context, prompt, userToken string) (res Result) {
	start := time.Now()
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "recommendation.prompt")
	defer span.End()
	defer func() {
		if v := recover(); v != nil {
			o.reportPanic(ctx, "prompt", v)
			res = failure(apperrors.NewInternalError(fmt.Errorf("panic: %v", v)))
		}
		outcome := "success"
		if !res.Success {
			outcome = string(res.Kind)
		}
		annotate(span, outcome, res.Genre, res.Error)
		attrs := metric.WithAttributes(attribute.String("outcome", outcome))
		metrics.RecommendationRequestsTotal.Add(ctx, 1, attrs)
		metrics.RecommendationDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	cleaned, err := validation.ValidatePrompt(prompt, o.opts.MaxPromptLength)
	if err != nil {
		appErr, _ := apperrors.As(err)
		return failure(appErr)
	}

	outcome := o.classifier.Classify(ctx, cleaned)
	g, ok := outcome.Genre()
	if !ok {
		slog.InfoContext(ctx, "No genre derived from prompt",
			"cause", outcome.Status.String(),
			"answer", outcome.Raw,
			"error", outcome.Err,
			logger.WithTraceContext(ctx))
		return failure(apperrors.NewClassificationMissError(outcome.Err))
	}

	found := o.resolver.Resolve(ctx, string(g), userToken, o.opts.ResultLimit)
	if found.Status != artist.StatusFound || len(found.Artists) == 0 {
		slog.InfoContext(ctx, "No artists for genre",
			"genre", string(g),
			"cause", found.Status.String(),
			"error", found.Err,
			logger.WithTraceContext(ctx))
		return failure(apperrors.NewNoMatchesError(string(g), found.Err))
	}

	selected := found.Artists[0]
	return Result{
		Success:  true,
		Genre:    string(g),
		Artists:  found.Artists,
		Selected: &selected,
	}
}

// GetSeedRecommendations recommends artists related to a track's primary artist.
func (o *Orchestrator) GetSeedRecommendations(ctx context.Context, songID, userToken string) (res SeedResult) {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "recommendation.seed",
		trace.WithAttributes(attribute.String("song_id", songID)))
	defer span.End()
	defer func() {
		if v := recover(); v != nil {
			o.reportPanic(ctx, "seed", v)
			res = seedFailure(songID, apperrors.NewInternalError(fmt.Errorf("panic: %v", v)))
		}
		outcome := "success"
		if !res.Success {
			outcome = string(res.Kind)
		}
		annotate(span, outcome, res.Genre, res.Error)
	}()

	if songID == "" {
		return seedFailure("", apperrors.NewValidationError(apperrors.MsgSongIDRequired, "SONG_ID_REQUIRED", "Pick a song first."))
	}

	found := o.resolver.SimilarToTrack(ctx, songID, userToken)
	if found.Status != artist.StatusFound {
		msg := found.Message
		if msg == "" {
			msg = apperrors.MsgInternal
		}
		res := seedFailure(songID, &apperrors.AppError{
			Type:       apperrors.ErrorTypeNoMatches,
			Message:    msg,
			StatusCode: http.StatusBadRequest,
			Err:        found.Err,
		})
		res.Genre = found.Genre
		return res
	}

	return SeedResult{
		Success:     true,
		Songs:       found.Artists,
		SeedSongID:  songID,
		Genre:       found.Genre,
		ArtistBased: true,
	}
}

func annotate(span trace.Span, outcome, genre, errMsg string) {
	span.SetAttributes(attribute.String("outcome", outcome))
	if genre != "" {
		span.SetAttributes(attribute.String("genre", genre))
	}
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	}
}

func (o *Orchestrator) reportPanic(ctx context.Context, pipeline string, v any) {
	slog.ErrorContext(ctx, "Recovered panic in recommendation pipeline",
		"pipeline", pipeline,
		"panic", fmt.Sprint(v),
		logger.WithTraceContext(ctx))
	sentry.RecoverValue(ctx, v)
}
