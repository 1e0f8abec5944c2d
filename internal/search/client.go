// Package search indexes transcripts in Elasticsearch for full-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/mfenderov/pageocr/internal/markdown"
	"github.com/mfenderov/pageocr/pkg/models"
)

const snippetLength = 240

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// Client indexes and searches transcripts.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:    es,
		index: config.Index,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

var indexMapping = `{
	"mappings": {
		"properties": {
			"digest": { "type": "keyword" },
			"display_name": { "type": "text" },
			"source_url": { "type": "keyword" },
			"transcript": { "type": "text" },
			"snippet": { "type": "text", "index": false },
			"page_count": { "type": "integer" },
			"updated_at": { "type": "date" }
		}
	}
}`

// document is the indexed form of an Entry.
type document struct {
	Digest      models.Digest `json:"digest"`
	DisplayName string        `json:"display_name"`
	SourceURL   string        `json:"source_url"`
	Transcript  string        `json:"transcript"`
	Snippet     string        `json:"snippet"`
	PageCount   int           `json:"page_count"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Hit is one search result.
type Hit struct {
	Digest      models.Digest `json:"digest"`
	DisplayName string        `json:"display_name"`
	Snippet     string        `json:"snippet"`
	Score       float64       `json:"score"`
}

// CreateIndex creates the index with its mapping if it doesn't exist.
func (c *Client) CreateIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// IndexEntry indexes the transcript of entry under its digest.
func (c *Client) IndexEntry(ctx context.Context, entry *models.Entry) error {
	doc := document{
		Digest:      entry.Digest,
		DisplayName: entry.DisplayName,
		SourceURL:   entry.SourceURL,
		Transcript:  entry.TranscriptText,
		Snippet:     markdown.Snippet(entry.TranscriptText, snippetLength),
		PageCount:   entry.PageCount,
		UpdatedAt:   entry.UpdatedAt,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(string(entry.Digest)),
	)
	if err != nil {
		return fmt.Errorf("failed to index entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing entry (status %d): %s", res.StatusCode, res.String())
	}

	return nil
}

// Remove deletes the document for digest. Missing documents are not an error.
func (c *Client) Remove(ctx context.Context, digest models.Digest) error {
	res, err := c.es.Delete(c.index, string(digest), c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("error deleting entry: %s", res.String())
	}
	return nil
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64  `json:"_score"`
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search performs a BM25 text search on transcripts and display names.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"transcript", "display_name^2"},
			},
		},
		"_source": []string{"digest", "display_name", "snippet"},
		"size":    limit,
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := make([]Hit, len(sr.Hits.Hits))
	for i, h := range sr.Hits.Hits {
		hits[i] = Hit{
			Digest:      h.Source.Digest,
			DisplayName: h.Source.DisplayName,
			Snippet:     h.Source.Snippet,
			Score:       h.Score,
		}
	}

	return hits, nil
}
