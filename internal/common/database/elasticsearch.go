// internal/common/database/elasticsearch.go
package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callcenter-workers/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the Elasticsearch client used for call
// transcript lookups.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
	index  string
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es, index: cfg.TranscriptIndex}, nil
}

// Ping tests the Elasticsearch connection
func (c *ElasticsearchClient) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// TranscriptExcerpt is the slice of a call transcript fed into scoring prompts.
type TranscriptExcerpt struct {
	TranscriptID string `json:"transcriptId"`
	CallID       string `json:"callId"`
	Text         string `json:"text"`
}

// GetTranscriptExcerpt fetches the stored transcript text for a transcript ID.
// Returns an empty excerpt (no error) when the transcript is not indexed.
func (c *ElasticsearchClient) GetTranscriptExcerpt(ctx context.Context, transcriptID string) (*TranscriptExcerpt, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"transcriptId": transcriptID,
			},
		},
		"size": 1,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode transcript query: %w", err)
	}

	res, err := c.Client.Search(
		c.Client.Search.WithContext(ctx),
		c.Client.Search.WithIndex(c.index),
		c.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("transcript search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("transcript search error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source TranscriptExcerpt `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode transcript search response: %w", err)
	}

	if len(parsed.Hits.Hits) == 0 {
		return &TranscriptExcerpt{TranscriptID: transcriptID}, nil
	}

	excerpt := parsed.Hits.Hits[0].Source
	return &excerpt, nil
}
