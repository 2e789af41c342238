package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"go.uber.org/zap"
)

const (
	searchCachePrefix = "ranges:list:"
	searchCacheTTL    = 5 * time.Minute

	rangeIndexMapping = `{
		"mappings": {
			"properties": {
				"sku": { "type": "keyword" },
				"name": { "type": "text" },
				"department": { "type": "keyword" },
				"description": { "type": "text" },
				"search_terms": { "type": "text" },
				"status": { "type": "keyword" },
				"hidden": { "type": "boolean" },
				"product_skus": { "type": "keyword" },
				"barcodes": { "type": "keyword" },
				"completed_at": { "type": "date" }
			}
		}
	}`
)

type cachedSearch struct {
	Ranges []dto.RangeSummary
	Count  int
}

// SearchRanges answers from the result cache, then the search index (public
// queries only), then the database.
func (uc *catalogueUseCase) SearchRanges(ctx context.Context, filters *dto.RangeFilters) ([]dto.RangeSummary, int, error) {
	cacheKey, err := searchCacheKey(filters)
	if err == nil && uc.cache != nil {
		var hit cachedSearch
		if ok, err := uc.cache.GetJSON(ctx, cacheKey, &hit); err == nil && ok {
			catalogue.SearchRequests.WithLabelValues("cache").Inc()
			return hit.Ranges, hit.Count, nil
		}
	}

	if filters.SearchQuery != "" && filters.PublicOnly && uc.index != nil {
		ranges, count, err := uc.searchIndex(ctx, filters)
		if err == nil {
			catalogue.SearchRequests.WithLabelValues("index").Inc()
			return ranges, count, nil
		}
		uc.logger.Error("range index search failed, falling back to DB", zap.Error(err))
	}

	rows, count, err := uc.repo.FindRanges(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	catalogue.SearchRequests.WithLabelValues("db").Inc()
	ranges := make([]dto.RangeSummary, 0, len(rows))
	for i := range rows {
		ranges = append(ranges, dto.NewRangeSummary(&rows[i]))
	}

	if cacheKey != "" && uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, cacheKey, cachedSearch{Ranges: ranges, Count: count}, searchCacheTTL); err != nil {
			uc.logger.Warn("failed to cache range search", zap.Error(err))
		}
	}
	return ranges, count, nil
}

func (uc *catalogueUseCase) searchIndex(ctx context.Context, filters *dto.RangeFilters) ([]dto.RangeSummary, int, error) {
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"multi_match": map[string]interface{}{
							"query":  filters.SearchQuery,
							"fields": []string{"name^3", "sku^2", "search_terms", "department", "description", "product_skus", "barcodes"},
						},
					},
				},
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"status": "COMPLETE"}},
					{"term": map[string]interface{}{"hidden": false}},
				},
			},
		},
	}
	if filters.PageSize > 0 {
		q["from"] = (max(filters.Page, 1) - 1) * filters.PageSize
		q["size"] = filters.PageSize
	}

	res, err := uc.index.Search(ctx, uc.indexName, q)
	if err != nil {
		return nil, 0, err
	}
	ranges := make([]dto.RangeSummary, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var r dto.RangeSummary
		if err := json.Unmarshal(hit.Source, &r); err != nil {
			return nil, 0, fmt.Errorf("decode hit %s: %w", hit.ID, err)
		}
		ranges = append(ranges, r)
	}
	return ranges, res.Hits.Total.Value, nil
}

// IndexRange writes the range document, or removes it when the range is not
// public.
func (uc *catalogueUseCase) IndexRange(ctx context.Context, rangeID string) error {
	if uc.index == nil {
		return nil
	}
	pr, err := uc.GetRange(ctx, rangeID)
	if err != nil {
		return err
	}
	if !pr.IsPublic() {
		return uc.index.Delete(ctx, uc.indexName, pr.ID)
	}

	uc.indexOnce.Do(func() {
		if err := uc.index.CreateIndex(ctx, uc.indexName, rangeIndexMapping); err != nil {
			uc.logger.Warn("failed to create range index", zap.Error(err))
		}
	})

	products, err := uc.repo.ListProducts(ctx, pr.ID)
	if err != nil {
		return err
	}
	doc := dto.NewRangeSummary(pr)
	for _, p := range products {
		doc.ProductSKUs = append(doc.ProductSKUs, p.SKU)
		if p.Barcode != "" {
			doc.Barcodes = append(doc.Barcodes, p.Barcode)
		}
	}
	return uc.index.Index(ctx, uc.indexName, pr.ID, doc)
}

func (uc *catalogueUseCase) InvalidateSearchCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, searchCachePrefix+"*"); err != nil {
		uc.logger.Warn("failed to invalidate range search cache", zap.Error(err))
	}
}

func searchCacheKey(filters *dto.RangeFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", searchCachePrefix, md5.Sum(data)), nil
}
