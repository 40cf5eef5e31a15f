// Package generator drives the model-to-feed pipeline: one generation call
// per meal category, extraction of the response, and per-category failure
// isolation.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trkd-health/feed-backend/internal/extract"
	"github.com/trkd-health/feed-backend/internal/models"
	"github.com/trkd-health/feed-backend/internal/prompt"
)

// TextGenerator is the model boundary. Transient call errors and unparsable
// output are treated as the same class of recoverable per-call failure.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator runs sequential per-category generation. Calls are serialized
// with a cooperative pause because the upstream model enforces request-rate
// limits; the pause is scheduling policy, not correctness, and tests inject
// a no-op sleep.
type Generator struct {
	model TextGenerator
	pause time.Duration
	sleep func(ctx context.Context, d time.Duration)
	log   *slog.Logger
}

// CategoryResult holds one category's outcome. Err is set when the model
// call failed or its output yielded no structure; Items is nil in that case,
// never silently empty.
type CategoryResult struct {
	Items map[string]models.FoodItem
	Err   error
}

// Option adjusts Generator construction.
type Option func(*Generator)

// WithSleep replaces the inter-category pause implementation.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(g *Generator) { g.sleep = sleep }
}

// New builds a Generator. pause is the wait between sequential category
// calls; zero disables it.
func New(model TextGenerator, pause time.Duration, log *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		model: model,
		pause: pause,
		sleep: sleepCtx,
		log:   log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Category generates items for a single meal category. It returns the
// extracted items or an explicit error; callers can always distinguish a
// failed call from a call that produced zero items.
func (g *Generator) Category(ctx context.Context, category string, count int) (map[string]models.FoodItem, error) {
	if !models.ValidCategory(category) {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	raw, err := g.model.Generate(ctx, prompt.ForCategory(category, count))
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", category, err)
	}

	items, err := extract.Items(raw)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", category, err)
	}

	g.log.Info("generated category",
		slog.String("category", category),
		slog.Int("items", len(items)),
	)
	return items, nil
}

// All generates every requested category independently. A failure in one
// category never aborts the others; each entry of the result carries its own
// items or error. The configured pause runs between calls but not after the
// last one.
func (g *Generator) All(ctx context.Context, categories []string, count int) map[string]CategoryResult {
	if len(categories) == 0 {
		categories = models.Categories
	}

	results := make(map[string]CategoryResult, len(categories))
	for i, category := range categories {
		items, err := g.Category(ctx, category, count)
		if err != nil {
			g.log.Warn("category generation failed",
				slog.String("category", category),
				slog.Any("err", err),
			)
			results[category] = CategoryResult{Err: err}
		} else {
			results[category] = CategoryResult{Items: items}
		}

		if g.pause > 0 && i < len(categories)-1 {
			g.sleep(ctx, g.pause)
		}
	}
	return results
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
