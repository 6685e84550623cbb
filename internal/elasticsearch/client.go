package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/prevword/internal/cache"
	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/models"
)

// Client wraps go-elasticsearch as a cache.Store: one document per cache key.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// New instantiates the Elasticsearch client.
func New(addr, index string, log *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Client{es: es, index: index, log: logger.OrDiscard(log)}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Load implements cache.Store.
func (c *Client) Load(ctx context.Context, key string) (*models.CacheEntry, error) {
	res, err := c.es.Get(c.index, key, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get cache doc: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, cache.ErrNotFound
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get cache doc failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !parsed.Found {
		return nil, cache.ErrNotFound
	}

	return cache.DecodeEntry(parsed.Source)
}

// Save implements cache.Store. Indexing under the same id replaces the document.
func (c *Client) Save(ctx context.Context, key string, entry models.CacheEntry) error {
	payload, err := cache.EncodeEntry(entry)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: key,
		Body:       bytes.NewReader(payload),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index cache doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index cache doc failed: %s", strings.TrimSpace(string(body)))
	}

	c.log.Debug("cache doc indexed", slog.String("index", c.index), slog.String("key", key))
	return nil
}
