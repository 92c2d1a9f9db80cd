package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeEngine struct {
	// gigs holds sortIds in index order
	gigs []int64
	// sources overrides the generated listing for a sortId
	sources map[int64]string

	body      map[string]any
	searchErr error

	doc    json.RawMessage
	getErr error

	healthErrs []error
	healthHits int

	exists  bool
	created []string
}

// Search emulates sort and search_after over gigs so paging behaves like
// the real thing
func (f *fakeEngine) Search(ctx context.Context, index string, body map[string]any) (*Hits, error) {
	f.body = body
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	order := body["sort"].([]map[string]any)[0]["sortId"].(string)
	size := body["size"].(int)

	var after *int64
	if sa, ok := body["search_after"].([]string); ok {
		var v int64
		fmt.Sscan(sa[0], &v)
		after = &v
	}

	ids := append([]int64(nil), f.gigs...)
	if order == "desc" {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	out := &Hits{}
	out.Total.Value = len(f.gigs)
	for _, id := range ids {
		if after != nil && ((order == "asc" && id <= *after) || (order == "desc" && id >= *after)) {
			continue
		}
		if len(out.Hits) == size {
			break
		}

		src := json.RawMessage(fmt.Sprintf(`{"id":"g%d","sortId":%d,"active":true}`, id, id))
		if custom, ok := f.sources[id]; ok {
			src = json.RawMessage(custom)
		}
		out.Hits = append(out.Hits, struct {
			Source json.RawMessage `json:"_source"`
		}{src})
	}

	return out, nil
}

func (f *fakeEngine) Get(ctx context.Context, index, id string) (json.RawMessage, error) {
	return f.doc, f.getErr
}

func (f *fakeEngine) Health(ctx context.Context) (string, error) {
	f.healthHits++
	if len(f.healthErrs) > 0 {
		err := f.healthErrs[0]
		f.healthErrs = f.healthErrs[1:]
		return "", err
	}
	return "green", nil
}

func (f *fakeEngine) IndexExists(ctx context.Context, index string) (bool, error) {
	return f.exists, nil
}

func (f *fakeEngine) CreateIndex(ctx context.Context, index string) error {
	f.created = append(f.created, index)
	return nil
}

func sortIDs(t *testing.T, r *Result) []int64 {
	ids := make([]int64, 0, len(r.Hits))
	for _, g := range r.Hits {
		var k struct {
			SortID int64 `json:"sortId"`
		}
		require.NoError(t, json.Unmarshal(g, &k))
		ids = append(ids, k.SortID)
	}
	return ids
}

func mustClauses(body map[string]any) []map[string]any {
	return body["query"].(map[string]any)["bool"].(map[string]any)["must"].([]map[string]any)
}

func TestSearchForwardFirstPage(t *testing.T) {
	e := &fakeEngine{gigs: []int64{1, 2, 3, 4, 5}}
	p := NewPaginator(e, "gigs")

	res, err := p.Search(context.Background(), Request{
		Query:  "logo",
		Cursor: Cursor{From: "0", Size: 2, Direction: Forward},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, sortIDs(t, res))
	assert.Equal(t, 5, res.Total)
	assert.NotContains(t, e.body, "search_after")
	assert.Equal(t, 2, e.body["size"])

	must := mustClauses(e.body)
	require.Len(t, must, 2)
	qs := must[0]["query_string"].(map[string]any)
	assert.Equal(t, "*logo*", qs["query"])
	assert.Equal(t, gigFields, qs["fields"])
	assert.Equal(t, map[string]any{"active": true}, must[1]["term"])
}

func TestSearchForwardResumesAfterCursor(t *testing.T) {
	e := &fakeEngine{gigs: []int64{1, 2, 3, 4, 5}}
	p := NewPaginator(e, "gigs")

	res, err := p.Search(context.Background(), Request{
		Cursor: Cursor{From: "2", Size: 2, Direction: Forward},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, e.body["search_after"])
	assert.Equal(t, []int64{3, 4}, sortIDs(t, res))
}

func TestSearchBackwardReturnsAscending(t *testing.T) {
	e := &fakeEngine{gigs: []int64{1, 2, 3, 4, 5}}
	p := NewPaginator(e, "gigs")

	res, err := p.Search(context.Background(), Request{
		Cursor: Cursor{From: "5", Size: 2, Direction: Backward},
	})
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{{"sortId": "desc"}}, e.body["sort"])
	assert.Equal(t, []int64{3, 4}, sortIDs(t, res))
}

func TestSearchPriceRangeNeedsBothBounds(t *testing.T) {
	cases := map[string]struct {
		min, max string
		want     bool
	}{
		"both":      {"10", "50", true},
		"only min":  {"10", "", false},
		"only max":  {"", "50", false},
		"not a num": {"ten", "50", false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := &fakeEngine{}
			p := NewPaginator(e, "gigs")

			_, err := p.Search(context.Background(), Request{
				MinPrice: tc.min,
				MaxPrice: tc.max,
				Cursor:   Cursor{From: "0", Size: 10, Direction: Forward},
			})
			require.NoError(t, err)

			var found map[string]any
			for _, c := range mustClauses(e.body) {
				if r, ok := c["range"]; ok {
					found = r.(map[string]any)
				}
			}

			if !tc.want {
				assert.Nil(t, found)
				return
			}

			require.NotNil(t, found)
			assert.Equal(t, map[string]any{"gte": 10, "lte": 50}, found["price"])
		})
	}
}

func TestSearchDeliveryTimeFilter(t *testing.T) {
	e := &fakeEngine{}
	p := NewPaginator(e, "gigs")

	_, err := p.Search(context.Background(), Request{
		DeliveryTime: "3 Days",
		Cursor:       Cursor{From: "0", Size: 10, Direction: Forward},
	})
	require.NoError(t, err)

	must := mustClauses(e.body)
	require.Len(t, must, 3)
	qs := must[2]["query_string"].(map[string]any)
	assert.Equal(t, []string{"expectedDelivery"}, qs["fields"])
	assert.Equal(t, "*3 Days*", qs["query"])
}

func TestSearchEngineFault(t *testing.T) {
	p := NewPaginator(&fakeEngine{searchErr: errors.New("cluster red")}, "gigs")

	_, err := p.Search(context.Background(), Request{Cursor: Cursor{From: "0", Size: 1, Direction: Forward}})
	assert.ErrorContains(t, err, "cluster red")
}

func TestSearchReturnsListingsUntouched(t *testing.T) {
	listing := `{"id":"g1","sortId":1,"active":true,"ratingsCount":0,"ratingSum":0,"price":0,` +
		`"totalStars":4,"sellerId":"s1","categories":["a","b"]}`
	e := &fakeEngine{gigs: []int64{1, 2}, sources: map[int64]string{1: listing}}

	for _, dir := range []Direction{Forward, Backward} {
		t.Run(string(dir), func(t *testing.T) {
			from := "0"
			if dir == Backward {
				from = "3"
			}

			res, err := NewPaginator(e, "gigs").Search(context.Background(), Request{
				Cursor: Cursor{From: from, Size: 2, Direction: dir},
			})
			require.NoError(t, err)
			require.Len(t, res.Hits, 2)
			assert.JSONEq(t, listing, string(res.Hits[0]))
		})
	}
}

func TestSearchBackwardToleratesMissingSortID(t *testing.T) {
	e := &fakeEngine{gigs: []int64{1, 2, 3}, sources: map[int64]string{2: `{"id":"g2","sortId":"two"}`}}

	res, err := NewPaginator(e, "gigs").Search(context.Background(), Request{
		Cursor: Cursor{From: "4", Size: 3, Direction: Backward},
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
	assert.JSONEq(t, `{"id":"g2","sortId":"two"}`, string(res.Hits[0]))
	assert.JSONEq(t, `{"id":"g1","sortId":1,"active":true}`, string(res.Hits[1]))
	assert.JSONEq(t, `{"id":"g3","sortId":3,"active":true}`, string(res.Hits[2]))
}

func TestGigByID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	doc := json.RawMessage(`{"id":"g1","title":"I will draw","price":0,"active":false,"extra":{"a":1}}`)
	found := NewPaginator(&fakeEngine{doc: doc}, "gigs").GigByID(context.Background(), "g1")
	assert.JSONEq(t, string(doc), string(found))

	missing := NewPaginator(&fakeEngine{getErr: ErrDocumentNotFound}, "gigs").GigByID(context.Background(), "nope")
	assert.JSONEq(t, `{}`, string(missing))
	assert.Zero(t, logs.Len())

	broken := NewPaginator(&fakeEngine{getErr: errors.New("timeout")}, "gigs").GigByID(context.Background(), "g1")
	assert.JSONEq(t, `{}`, string(broken))
	assert.Equal(t, 1, logs.FilterMessage("Failed to fetch gig").Len())

	garbled := NewPaginator(&fakeEngine{doc: json.RawMessage(`{"id":`)}, "gigs").GigByID(context.Background(), "g1")
	assert.JSONEq(t, `{}`, string(garbled))
}

func TestCheckConnectionRetries(t *testing.T) {
	e := &fakeEngine{healthErrs: []error{errors.New("refused"), errors.New("refused")}}
	p := NewPaginator(e, "gigs")

	require.NoError(t, p.CheckConnection(context.Background(), time.Millisecond))
	assert.Equal(t, 3, e.healthHits)
}

func TestCheckConnectionGivesUpWithContext(t *testing.T) {
	e := &fakeEngine{healthErrs: []error{errors.New("refused")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPaginator(e, "gigs").CheckConnection(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureIndex(t *testing.T) {
	e := &fakeEngine{}
	require.NoError(t, NewPaginator(e, "gigs").EnsureIndex(context.Background()))
	assert.Equal(t, []string{"gigs"}, e.created)

	e = &fakeEngine{exists: true}
	require.NoError(t, NewPaginator(e, "gigs").EnsureIndex(context.Background()))
	assert.Empty(t, e.created)
}
