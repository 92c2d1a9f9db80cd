package search

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var gigFields = []string{
	"username",
	"title",
	"description",
	"basicDescription",
	"basicTitle",
	"categories",
	"subCategories",
	"tags",
}

type Paginator struct {
	engine Engine
	index  string
}

func NewPaginator(e Engine, index string) *Paginator {
	return &Paginator{engine: e, index: index}
}

// buildQuery turns a request into the elasticsearch search body
func buildQuery(r Request) map[string]any {
	must := []map[string]any{
		{"query_string": map[string]any{
			"fields": gigFields,
			"query":  "*" + r.Query + "*",
		}},
		{"term": map[string]any{"active": true}},
	}

	if r.DeliveryTime != "" {
		must = append(must, map[string]any{"query_string": map[string]any{
			"fields": []string{"expectedDelivery"},
			"query":  "*" + r.DeliveryTime + "*",
		}})
	}

	// Half a range is no range
	minPrice, minErr := strconv.Atoi(r.MinPrice)
	maxPrice, maxErr := strconv.Atoi(r.MaxPrice)
	if minErr == nil && maxErr == nil {
		must = append(must, map[string]any{"range": map[string]any{
			"price": map[string]any{"gte": minPrice, "lte": maxPrice},
		}})
	}

	order := "desc"
	if r.Cursor.Direction == Forward {
		order = "asc"
	}

	body := map[string]any{
		"size":  r.Cursor.Size,
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"sort":  []map[string]any{{"sortId": order}},
	}

	if r.Cursor.From != "" && r.Cursor.From != "0" {
		body["search_after"] = []string{r.Cursor.From}
	}

	return body
}

// Search returns one page of active gigs. Backward pages are fetched in
// descending order and flipped, so callers always read ascending sortId.
func (p *Paginator) Search(ctx context.Context, r Request) (*Result, error) {
	hits, err := p.engine.Search(ctx, p.index, buildQuery(r))
	if err != nil {
		return nil, fmt.Errorf("failed to search gigs, %w", err)
	}

	type keyed struct {
		sortID float64
		source json.RawMessage
	}

	page := make([]keyed, 0, len(hits.Hits))
	for _, h := range hits.Hits {
		k := keyed{source: h.Source}
		if r.Cursor.Direction == Backward {
			k.sortID = gigSortID(h.Source)
		}
		page = append(page, k)
	}

	if r.Cursor.Direction == Backward {
		slices.SortStableFunc(page, func(a, b keyed) int {
			return cmp.Compare(a.sortID, b.sortID)
		})
	}

	gigs := make([]json.RawMessage, 0, len(page))
	for _, k := range page {
		gigs = append(gigs, k.source)
	}

	return &Result{Total: hits.Total.Value, Hits: gigs}, nil
}

// gigSortID reads sortId out of a listing. A listing without a numeric
// sortId sorts first.
func gigSortID(g json.RawMessage) float64 {
	var k sortKey
	if err := json.Unmarshal(g, &k); err != nil {
		zap.L().Debug("Gig has no usable sortId", zap.Error(err))
		return 0
	}
	return k.SortID
}

// GigByID returns the indexed listing as is. A missing document and a broken
// engine both come back as {}, the fault only shows up in the logs.
func (p *Paginator) GigByID(ctx context.Context, id string) json.RawMessage {
	raw, err := p.engine.Get(ctx, p.index, id)
	if err != nil {
		if !errors.Is(err, ErrDocumentNotFound) {
			zap.L().Error("Failed to fetch gig", zap.Error(err), zap.String("gigId", id))
		}
		return emptyGig
	}

	if !json.Valid(raw) {
		zap.L().Error("Gig is not valid JSON", zap.String("gigId", id))
		return emptyGig
	}

	return raw
}

// CheckConnection waits until the cluster answers a health check or ctx is
// done
func (p *Paginator) CheckConnection(ctx context.Context, retryEvery time.Duration) error {
	for {
		status, err := p.engine.Health(ctx)
		if err == nil {
			zap.L().Info("Connected to elasticsearch", zap.String("status", status))
			return nil
		}

		zap.L().Warn("Connection to elasticsearch failed, retrying", zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to reach elasticsearch, %w", ctx.Err())
		case <-time.After(retryEvery):
		}
	}
}

// EnsureIndex creates the gig index when it does not exist yet
func (p *Paginator) EnsureIndex(ctx context.Context) error {
	exists, err := p.engine.IndexExists(ctx, p.index)
	if err != nil {
		return fmt.Errorf("failed to check index %s, %w", p.index, err)
	}

	if exists {
		zap.L().Debug("Index already exists", zap.String("index", p.index))
		return nil
	}

	if err := p.engine.CreateIndex(ctx, p.index); err != nil {
		return fmt.Errorf("failed to create index %s, %w", p.index, err)
	}

	zap.L().Info("Created index", zap.String("index", p.index))
	return nil
}
