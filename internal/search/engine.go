package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/spf13/viper"
)

var ErrDocumentNotFound = errors.New("document not found")

// Hits is the part of a search response the paginator reads
type Hits struct {
	Total struct {
		Value int `json:"value"`
	} `json:"total"`
	Hits []struct {
		Source json.RawMessage `json:"_source"`
	} `json:"hits"`
}

// Engine is the slice of the elasticsearch API this package needs
type Engine interface {
	Search(ctx context.Context, index string, body map[string]any) (*Hits, error)
	Get(ctx context.Context, index, id string) (json.RawMessage, error)
	Health(ctx context.Context) (string, error)
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string) error
}

type ESEngine struct {
	c *elasticsearch.Client
}

// NewES builds an engine from the elasticsearch.* config
func NewES() (*ESEngine, error) {
	c, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{viper.GetString("elasticsearch.url")},
		Username:  viper.GetString("elasticsearch.username"),
		Password:  viper.GetString("elasticsearch.password"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client, %w", err)
	}

	return &ESEngine{c: c}, nil
}

func responseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<12))
	return fmt.Errorf("elasticsearch returned %s: %s", res.Status(), bytes.TrimSpace(body))
}

func (e *ESEngine) Search(ctx context.Context, index string, body map[string]any) (*Hits, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode query, %w", err)
	}

	res, err := e.c.Search(
		e.c.Search.WithContext(ctx),
		e.c.Search.WithIndex(index),
		e.c.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res)
	}

	var out struct {
		Hits Hits `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response, %w", err)
	}

	return &out.Hits, nil
}

func (e *ESEngine) Get(ctx context.Context, index, id string) (json.RawMessage, error) {
	res, err := e.c.Get(index, id, e.c.Get.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrDocumentNotFound
	}

	if res.IsError() {
		return nil, responseError(res)
	}

	var out struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode document, %w", err)
	}

	return out.Source, nil
}

func (e *ESEngine) Health(ctx context.Context) (string, error) {
	res, err := e.c.Cluster.Health(e.c.Cluster.Health.WithContext(ctx))
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", responseError(res)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode cluster health, %w", err)
	}

	return out.Status, nil
}

func (e *ESEngine) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := e.c.Indices.Exists([]string{index}, e.c.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError(res)
	}
}

func (e *ESEngine) CreateIndex(ctx context.Context, index string) error {
	res, err := e.c.Indices.Create(index, e.c.Indices.Create.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(res)
	}

	refresh, err := e.c.Indices.Refresh(
		e.c.Indices.Refresh.WithContext(ctx),
		e.c.Indices.Refresh.WithIndex(index),
	)
	if err != nil {
		return err
	}
	defer refresh.Body.Close()

	if refresh.IsError() {
		return responseError(refresh)
	}

	return nil
}

var _ Engine = (*ESEngine)(nil)
