package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trkd-health/feed-backend/internal/models"
	"github.com/trkd-health/feed-backend/internal/publish"
	"github.com/trkd-health/feed-backend/internal/search"
)

// fakeStore keeps the JSON encoding of every written path so idempotence can
// be asserted byte-for-byte.
type fakeStore struct {
	data     map[string][]byte
	sets     []string
	pushes   []string
	failPath string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (s *fakeStore) Set(_ context.Context, path string, value any) error {
	if s.failPath != "" && path == s.failPath {
		return errors.New("store unavailable")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[path] = payload
	s.sets = append(s.sets, path)
	return nil
}

func (s *fakeStore) Get(_ context.Context, path string, out any) (bool, error) {
	payload, ok := s.data[path]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(payload, out)
}

func (s *fakeStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := "pushed-key"
	s.pushes = append(s.pushes, path)
	return key, s.Set(ctx, path+"/"+key, value)
}

type fakeIndexer struct {
	docs []search.ItemDocument
	err  error
}

func (f *fakeIndexer) IndexItem(_ context.Context, doc search.ItemDocument) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleItems(category string) map[string]models.FoodItem {
	return map[string]models.FoodItem{
		"item001": {
			Title:       "Dal Tadka",
			Description: "Lentils. Significance: plant protein.",
			Keywords:    []string{"veg", "high_protein"},
			Category:    category,
		},
	}
}

func sampleDocument() models.FeedDocument {
	doc := models.FeedDocument{}
	for _, category := range models.Categories {
		doc[category] = models.MealSection{Items: sampleItems(category)}
	}
	return doc
}

func TestPublishCategoryWritesItemsPath(t *testing.T) {
	store := newFakeStore()
	mgr := publish.New(store, "curatedContent", nil, discard())

	require.NoError(t, mgr.PublishCategory(context.Background(), "breakfast", sampleItems("breakfast")))
	require.Contains(t, store.data, "curatedContent/breakfast/items")
}

func TestPublishCategoryIdempotent(t *testing.T) {
	store := newFakeStore()
	mgr := publish.New(store, "curatedContent", nil, discard())
	items := sampleItems("lunch")

	require.NoError(t, mgr.PublishCategory(context.Background(), "lunch", items))
	first := append([]byte(nil), store.data["curatedContent/lunch/items"]...)

	require.NoError(t, mgr.PublishCategory(context.Background(), "lunch", items))
	require.Equal(t, first, store.data["curatedContent/lunch/items"])
	require.Len(t, store.data, 1)
}

func TestPublishCategoryReplacesWholeSection(t *testing.T) {
	store := newFakeStore()
	mgr := publish.New(store, "curatedContent", nil, discard())

	require.NoError(t, mgr.PublishCategory(context.Background(), "dinner", sampleItems("dinner")))

	replacement := map[string]models.FoodItem{"item999": {Title: "Khichdi"}}
	require.NoError(t, mgr.PublishCategory(context.Background(), "dinner", replacement))

	var stored map[string]models.FoodItem
	found, err := store.Get(context.Background(), "curatedContent/dinner/items", &stored)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, stored, 1)
	require.Contains(t, stored, "item999")
}

func TestPublishCategoryUnknown(t *testing.T) {
	store := newFakeStore()
	mgr := publish.New(store, "curatedContent", nil, discard())

	require.Error(t, mgr.PublishCategory(context.Background(), "brunch", nil))
	require.Empty(t, store.data)
}

func TestPublishDocumentAllCategories(t *testing.T) {
	store := newFakeStore()
	mgr := publish.New(store, "curatedContent", nil, discard())

	require.NoError(t, mgr.PublishDocument(context.Background(), sampleDocument()))
	for _, category := range models.Categories {
		require.Contains(t, store.data, "curatedContent/"+category+"/items")
	}
}

func TestPublishDocumentPartialFailureKeepsEarlierWrites(t *testing.T) {
	store := newFakeStore()
	store.failPath = "curatedContent/lunch/items"
	mgr := publish.New(store, "curatedContent", nil, discard())

	err := mgr.PublishDocument(context.Background(), sampleDocument())
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 3 categories already written")

	// breakfast landed before the failure and stays written
	require.Contains(t, store.data, "curatedContent/breakfast/items")
	require.NotContains(t, store.data, "curatedContent/lunch/items")
	require.NotContains(t, store.data, "curatedContent/dinner/items")
}

func TestVerifyCountsPerCategory(t *testing.T) {
	store := newFakeStore()
	mgr := publish.New(store, "curatedContent", nil, discard())
	doc := sampleDocument()

	require.NoError(t, mgr.PublishDocument(context.Background(), doc))

	counts, err := mgr.Verify(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"breakfast": 1, "lunch": 1, "dinner": 1}, counts)
}

func TestVerifyFailsWhenNothingStored(t *testing.T) {
	store := newFakeStore()
	mgr := publish.New(store, "curatedContent", nil, discard())

	_, err := mgr.Verify(context.Background(), sampleDocument())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no data at")
}

func TestRecordRunPushes(t *testing.T) {
	store := newFakeStore()
	mgr := publish.New(store, "curatedContent", nil, discard())

	key, err := mgr.RecordRun(context.Background(), publish.RunRecord{
		PromptVersion: "v2",
		Categories:    map[string]int{"breakfast": 25},
	})
	require.NoError(t, err)
	require.NotEmpty(t, key)
	require.Equal(t, []string{"generationRuns"}, store.pushes)

	var rec publish.RunRecord
	found, err := store.Get(context.Background(), "generationRuns/"+key, &rec)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v2", rec.PromptVersion)
	require.NotZero(t, rec.Timestamp)
}

func TestPublishIndexesItems(t *testing.T) {
	store := newFakeStore()
	idx := &fakeIndexer{}
	mgr := publish.New(store, "curatedContent", idx, discard())

	require.NoError(t, mgr.PublishCategory(context.Background(), "breakfast", sampleItems("breakfast")))
	require.Len(t, idx.docs, 1)
	require.Equal(t, "breakfast/item001", idx.docs[0].ID)
	require.Equal(t, "Dal Tadka", idx.docs[0].Title)
	require.False(t, idx.docs[0].IndexedAt.IsZero())
	require.WithinDuration(t, time.Now(), idx.docs[0].IndexedAt, time.Minute)
}

func TestPublishSucceedsWhenIndexingFails(t *testing.T) {
	store := newFakeStore()
	idx := &fakeIndexer{err: errors.New("index down")}
	mgr := publish.New(store, "curatedContent", idx, discard())

	require.NoError(t, mgr.PublishCategory(context.Background(), "dinner", sampleItems("dinner")))
	require.Contains(t, store.data, "curatedContent/dinner/items")
}
