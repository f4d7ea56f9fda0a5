package esbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TemplateSpec describes the index template installed before a run. The
// data stream itself is created lazily by the pipeline on first ingest.
type TemplateSpec struct {
	Name         string
	IndexPattern string
	LogsDB       bool
}

// PutIndexTemplate installs (or replaces) the index template for syslog
// data streams: best_compression, the syslog field mappings, and the
// logsdb index mode when requested.
func (c *Client) PutIndexTemplate(ctx context.Context, spec TemplateSpec) error {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	body, err := json.Marshal(templateBody(spec))
	if err != nil {
		return fmt.Errorf("esbackend: marshal template: %w", err)
	}

	res, err := c.es.Indices.PutIndexTemplate(
		spec.Name,
		bytes.NewReader(body),
		c.es.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return classify("put template "+spec.Name, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return classify("put template "+spec.Name, err)
	}
	if res.IsError() {
		return classify("put template "+spec.Name,
			fmt.Errorf("backend returned %s: %s", res.Status(), truncate(raw, 200)))
	}
	return nil
}

// DeleteDataStream removes a data stream so a run starts from a clean
// collection. A stream that does not exist is not an error.
func (c *Client) DeleteDataStream(ctx context.Context, stream string) error {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	res, err := c.es.Indices.DeleteDataStream(
		[]string{stream},
		c.es.Indices.DeleteDataStream.WithContext(ctx),
	)
	if err != nil {
		return classify("delete "+stream, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return classify("delete "+stream, err)
	}
	if res.IsError() {
		return classify("delete "+stream,
			fmt.Errorf("backend returned %s: %s", res.Status(), truncate(raw, 200)))
	}
	return nil
}

func templateBody(spec TemplateSpec) map[string]any {
	settings := map[string]any{
		"number_of_shards":   1,
		"number_of_replicas": 1,
		"index": map[string]any{
			"codec": "best_compression",
		},
	}
	if spec.LogsDB {
		settings["index"].(map[string]any)["mode"] = "logsdb"
	}

	return map[string]any{
		"index_patterns": []string{spec.IndexPattern},
		"data_stream":    map[string]any{},
		"priority":       500,
		"template": map[string]any{
			"settings": settings,
			"mappings": map[string]any{
				"properties": map[string]any{
					"@timestamp": map[string]any{"type": "date"},
					"host": map[string]any{
						"properties": map[string]any{
							"name": map[string]any{"type": "keyword"},
						},
					},
					"message":  map[string]any{"type": "text"},
					"log_type": map[string]any{"type": "keyword"},
					"log": map[string]any{
						"properties": map[string]any{
							"syslog": map[string]any{
								"properties": map[string]any{
									"facility": map[string]any{
										"properties": map[string]any{
											"name": map[string]any{"type": "keyword"},
										},
									},
									"severity": map[string]any{
										"properties": map[string]any{
											"name": map[string]any{"type": "keyword"},
										},
									},
									"priority": map[string]any{"type": "long"},
								},
							},
						},
					},
					"source": map[string]any{
						"properties": map[string]any{
							"ip": map[string]any{"type": "ip"},
						},
					},
				},
			},
		},
	}
}
