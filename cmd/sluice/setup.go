package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sluice/internal/esbackend"
	"github.com/tinytelemetry/sluice/internal/namespace"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Recreate the target data stream and install its index template",
	Long: `setup deletes the target data stream if it exists and installs the
index template that governs every stream of the configured type and
dataset. The stream itself is recreated lazily by the first ingested
record.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rc, stream, _, err := streamName(cfg)
		if err != nil {
			return err
		}
		client, err := backendClient(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		spec := esbackend.TemplateSpec{
			Name:         namespace.TemplateName(rc),
			IndexPattern: namespace.IndexPattern(rc),
			LogsDB:       rc.LogsDB,
		}
		return runSetup(ctx, client, stream, spec, newLogger(cfg.Verbose))
	},
}

// setupBackend is the slice of the backend client the setup flow needs.
type setupBackend interface {
	DeleteDataStream(ctx context.Context, stream string) error
	Exists(ctx context.Context, stream string) (bool, error)
	PutIndexTemplate(ctx context.Context, spec esbackend.TemplateSpec) error
}

// runSetup deletes the target stream, verifies the deletion took, and
// installs the index template.
func runSetup(ctx context.Context, client setupBackend, stream string, spec esbackend.TemplateSpec, logger *slog.Logger) error {
	if err := client.DeleteDataStream(ctx, stream); err != nil {
		return err
	}

	// The delete API acknowledges before the stream is fully gone on some
	// cluster states; confirm rather than trust the acknowledgement.
	exists, err := client.Exists(ctx, stream)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("data stream %s still exists after deletion", stream)
	}
	logger.Info("data stream removed", "stream", stream)

	if err := client.PutIndexTemplate(ctx, spec); err != nil {
		return err
	}
	logger.Info("index template installed",
		"template", spec.Name, "pattern", spec.IndexPattern, "logsdb", spec.LogsDB)
	return nil
}
