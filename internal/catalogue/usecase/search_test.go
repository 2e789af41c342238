package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue/cataloguetest"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.sets++
	c.data[key] = raw
	return nil
}

func (c *fakeCache) DeletePattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

type fakeIndex struct {
	docs      map[string]dto.RangeSummary
	created   int
	searchErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[string]dto.RangeSummary{}}
}

func (f *fakeIndex) CreateIndex(context.Context, string, string) error {
	f.created++
	return nil
}

func (f *fakeIndex) Index(_ context.Context, _ string, id string, doc any) error {
	f.docs[id] = doc.(dto.RangeSummary)
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, _ string, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, query map[string]interface{}) (*search.SearchResponse, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var res search.SearchResponse
	for id, doc := range f.docs {
		raw, _ := json.Marshal(doc)
		res.Hits.Hits = append(res.Hits.Hits, search.Hit{ID: id, Source: raw})
	}
	res.Hits.Total.Value = len(res.Hits.Hits)
	return &res, nil
}

func TestSearchRangesFallsBackToDBAndCaches(t *testing.T) {
	cache := newFakeCache()
	env := cataloguetest.NewEnv(t, usecase.WithCache(cache))
	ctx := context.Background()

	env.SeedRange(t, "Blue Lamp")
	env.SeedRange(t, "Red Lamp")
	_, err := env.UC.CreateRange(ctx, &dto.CreateRangeInput{Name: "Draft Lamp"})
	require.NoError(t, err)

	filters := &dto.RangeFilters{SearchQuery: "lamp", PublicOnly: true}
	ranges, count, err := env.UC.SearchRanges(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, ranges, 2)
	assert.Equal(t, "Blue Lamp", ranges[0].Name)
	assert.Equal(t, 1, cache.sets)

	// Served from cache even though a new range now matches.
	env.SeedRange(t, "Green Lamp")
	_, count, err = env.UC.SearchRanges(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	env.UC.InvalidateSearchCache(ctx)
	_, count, err = env.UC.SearchRanges(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSearchRangesUsesIndex(t *testing.T) {
	index := newFakeIndex()
	env := cataloguetest.NewEnv(t, usecase.WithSearchIndex(index, "ranges"))
	ctx := context.Background()

	pr := env.SeedRange(t, "Indexed Chair")
	require.NoError(t, env.UC.IndexRange(ctx, pr.ID))
	require.Contains(t, index.docs, pr.ID)
	assert.Len(t, index.docs[pr.ID].ProductSKUs, 1)
	assert.Equal(t, 1, index.created)

	ranges, count, err := env.UC.SearchRanges(ctx, &dto.RangeFilters{SearchQuery: "chair", PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, pr.SKU, ranges[0].SKU)

	index.searchErr = errors.New("cluster red")
	ranges, count, err = env.UC.SearchRanges(ctx, &dto.RangeFilters{SearchQuery: "chair", PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "Indexed Chair", ranges[0].Name)
}

func TestIndexRangeRemovesHiddenRanges(t *testing.T) {
	index := newFakeIndex()
	env := cataloguetest.NewEnv(t, usecase.WithSearchIndex(index, "ranges"))
	ctx := context.Background()

	pr := env.SeedRange(t, "Hidden Shelf")
	require.NoError(t, env.UC.IndexRange(ctx, pr.ID))
	require.Contains(t, index.docs, pr.ID)

	pr.Hidden = true
	require.NoError(t, env.Repo.UpdateRange(ctx, pr))
	require.NoError(t, env.UC.IndexRange(ctx, pr.ID))
	assert.NotContains(t, index.docs, pr.ID)
}
