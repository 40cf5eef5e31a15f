// Package publish commits validated feed data to the store. Replacement is
// whole-section: PublishCategory overwrites everything under the category
// path, never merges by item id.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/trkd-health/feed-backend/internal/feedstore"
	"github.com/trkd-health/feed-backend/internal/models"
	"github.com/trkd-health/feed-backend/internal/search"
)

// Indexer receives published items for the keyword search index.
type Indexer interface {
	IndexItem(ctx context.Context, doc search.ItemDocument) error
}

// Manager writes feed data under a fixed root path. It never retries store
// errors; retry policy belongs to the caller.
type Manager struct {
	store feedstore.Store
	root  string
	index Indexer
	now   func() time.Time
	log   *slog.Logger
}

// RunRecord is the ad-hoc log entry appended for each generation run.
type RunRecord struct {
	PromptVersion string         `json:"promptVersion"`
	Categories    map[string]int `json:"categories"`
	Failures      []string       `json:"failures,omitempty"`
	Timestamp     int64          `json:"timestamp"`
	CreatedAt     string         `json:"createdAt"`
}

// New builds a Manager rooted at root (e.g. curatedContent). index may be
// nil to disable search indexing.
func New(store feedstore.Store, root string, index Indexer, log *slog.Logger) *Manager {
	return &Manager{
		store: store,
		root:  root,
		index: index,
		now:   time.Now,
		log:   log,
	}
}

func (m *Manager) itemsPath(category string) string {
	return m.root + "/" + category + "/items"
}

// PublishCategory replaces the entire item set stored for one category.
// Repeating the call with the same input leaves the store unchanged.
func (m *Manager) PublishCategory(ctx context.Context, category string, items map[string]models.FoodItem) error {
	if !models.ValidCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}

	if err := m.store.Set(ctx, m.itemsPath(category), items); err != nil {
		return fmt.Errorf("publish %s: %w", category, err)
	}

	m.log.Info("published category",
		slog.String("category", category),
		slog.Int("items", len(items)),
	)

	m.indexItems(ctx, category, items)
	return nil
}

// PublishDocument writes each category in the fixed category order. There is
// no cross-category transaction: a mid-sequence failure leaves earlier
// categories written, and the returned error says how many landed.
func (m *Manager) PublishDocument(ctx context.Context, doc models.FeedDocument) error {
	written := 0
	for _, category := range models.Categories {
		section, ok := doc[category]
		if !ok {
			return fmt.Errorf("publish %s: document missing category (%d of %d categories already written)",
				category, written, len(models.Categories))
		}
		if err := m.PublishCategory(ctx, category, section.Items); err != nil {
			return fmt.Errorf("%w (%d of %d categories already written)", err, written, len(models.Categories))
		}
		written++
	}
	return nil
}

// Verify re-reads the published paths and reports item counts per category.
// Store writes are assumed not to silently no-op, but nothing is trusted
// without a readback.
func (m *Manager) Verify(ctx context.Context, doc models.FeedDocument) (map[string]int, error) {
	counts := make(map[string]int, len(doc))
	for _, category := range models.Categories {
		if _, ok := doc[category]; !ok {
			continue
		}
		var stored map[string]models.FoodItem
		found, err := m.store.Get(ctx, m.itemsPath(category), &stored)
		if err != nil {
			return counts, fmt.Errorf("verify %s: %w", category, err)
		}
		if !found {
			return counts, fmt.Errorf("verify %s: no data at %s after publish", category, m.itemsPath(category))
		}
		counts[category] = len(stored)
	}
	return counts, nil
}

// RecordRun appends a generation run record to the run log path and returns
// the generated key.
func (m *Manager) RecordRun(ctx context.Context, rec RunRecord) (string, error) {
	now := m.now().UTC()
	rec.Timestamp = now.UnixMilli()
	rec.CreatedAt = now.Format("2006-01-02 15:04:05")

	key, err := m.store.Push(ctx, "generationRuns", rec)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return key, nil
}

// indexItems mirrors published items into the search index. Index failures
// are logged and swallowed: the store write already succeeded and the index
// is rebuilt on the next publication anyway.
func (m *Manager) indexItems(ctx context.Context, category string, items map[string]models.FoodItem) {
	if m.index == nil {
		return
	}

	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := m.now()
	for _, id := range ids {
		doc := search.NewItemDocument(category, id, items[id], now)
		if err := m.index.IndexItem(ctx, doc); err != nil {
			m.log.Warn("index item failed",
				slog.String("id", doc.ID),
				slog.Any("err", err),
			)
		}
	}
}
