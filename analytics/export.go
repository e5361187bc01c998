package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Exporter ships a Stats snapshot somewhere.
type Exporter interface {
	Export(ctx context.Context, stats Stats) error
}

// JSONExporter writes each snapshot as one JSON line.
type JSONExporter struct {
	w      io.Writer
	prefix string
}

func NewJSONExporter(w io.Writer, prefix string) *JSONExporter {
	return &JSONExporter{w: w, prefix: prefix}
}

func (e *JSONExporter) Export(_ context.Context, stats Stats) error {
	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics stats: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "%s%s\n", e.prefix, b); err != nil {
		return fmt.Errorf("failed to write analytics stats: %w", err)
	}
	return nil
}

// RunPeriodicExport exports the counter every interval until ctx is done.
func RunPeriodicExport(ctx context.Context, c *Counter, exp Exporter, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := exp.Export(ctx, c.Snapshot()); err != nil {
				logger.Error("analytics export failed", "error", err)
			}
		}
	}
}
