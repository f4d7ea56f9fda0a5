// Package esbackend is the query client for the Elasticsearch storage
// backend. It exposes the handful of operations the verification harness
// needs — count documents in a data stream, list data streams, connectivity
// probe, and the data stream admin calls — with every failure mode turned
// into an explicit result variant rather than an opaque error.
package esbackend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/tidwall/gjson"
)

// DefaultRequestTimeout bounds a single backend request so one stalled
// query cannot defeat the overall run deadline.
const DefaultRequestTimeout = 30 * time.Second

// Config holds connection parameters for the backend.
type Config struct {
	Endpoint       string
	APIKey         string
	RequestTimeout time.Duration
}

// Client issues count and admin requests against one Elasticsearch cluster.
type Client struct {
	es             *elasticsearch.Client
	endpoint       string
	requestTimeout time.Duration
}

// CountResult is the outcome of a count query. Found distinguishes a data
// stream that exists (possibly with zero documents) from one the backend
// has not created yet.
type CountResult struct {
	Count int64
	Found bool
}

// New creates a backend client. The endpoint must already be normalized
// (scheme and port present).
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("esbackend: endpoint must not be empty")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Endpoint},
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("esbackend: create client: %w", err)
	}

	return &Client{
		es:             es,
		endpoint:       cfg.Endpoint,
		requestTimeout: timeout,
	}, nil
}

// Endpoint returns the configured endpoint URL (no credentials).
func (c *Client) Endpoint() string { return c.endpoint }

// Count returns the number of documents in stream. A window > 0 restricts
// the count to documents stamped within the last window. A stream the
// backend has not created yet yields Found == false with a nil error.
func (c *Client) Count(ctx context.Context, stream string, window time.Duration) (CountResult, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	var body io.Reader
	if window > 0 {
		body = strings.NewReader(fmt.Sprintf(
			`{"query":{"range":{"@timestamp":{"gte":"now-%ds","lte":"now"}}}}`,
			int64(window.Seconds()),
		))
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(stream),
		c.es.Count.WithBody(body),
	)
	if err != nil {
		return CountResult{}, classify("count "+stream, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return CountResult{}, classify("count "+stream, err)
	}

	if res.StatusCode == http.StatusNotFound {
		return CountResult{Found: false}, nil
	}
	if res.IsError() {
		return CountResult{}, classify("count "+stream,
			fmt.Errorf("backend returned %s: %s", res.Status(), truncate(raw, 200)))
	}

	count := gjson.GetBytes(raw, "count")
	if !count.Exists() {
		return CountResult{}, classify("count "+stream,
			fmt.Errorf("malformed count response: %s", truncate(raw, 200)))
	}
	return CountResult{Count: count.Int(), Found: true}, nil
}

// DataStreams lists every data stream known to the backend, for
// diagnostics. Independent of the count path.
func (c *Client) DataStreams(ctx context.Context) ([]string, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	res, err := c.es.Indices.GetDataStream(
		c.es.Indices.GetDataStream.WithContext(ctx),
	)
	if err != nil {
		return nil, classify("list data streams", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify("list data streams", err)
	}
	if res.IsError() {
		return nil, classify("list data streams",
			fmt.Errorf("backend returned %s: %s", res.Status(), truncate(raw, 200)))
	}

	var names []string
	for _, entry := range gjson.GetBytes(raw, "data_streams.#.name").Array() {
		names = append(names, entry.String())
	}
	return names, nil
}

// Exists reports whether the named data stream has been created.
func (c *Client) Exists(ctx context.Context, stream string) (bool, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	res, err := c.es.Indices.GetDataStream(
		c.es.Indices.GetDataStream.WithContext(ctx),
		c.es.Indices.GetDataStream.WithName(stream),
	)
	if err != nil {
		return false, classify("check "+stream, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return false, classify("check "+stream, err)
	}
	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, classify("check "+stream,
			fmt.Errorf("backend returned %s: %s", res.Status(), truncate(raw, 200)))
	}
	return len(gjson.GetBytes(raw, "data_streams").Array()) > 0, nil
}

// Ping verifies connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return classify("ping", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return classify("ping", fmt.Errorf("backend returned %s", res.Status()))
	}
	return nil
}

func (c *Client) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.requestTimeout)
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
