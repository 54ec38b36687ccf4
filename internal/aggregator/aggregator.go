package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/supplysnap/backend/internal/model"
	"github.com/supplysnap/backend/internal/source"
)

// Aggregator fans out to every source concurrently and merges the results
// into one raw payload plus a derived summary. It performs no store I/O.
type Aggregator struct {
	sources []source.Source
}

func New(sources []source.Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// Capture fetches all sources concurrently and merges them. A source that
// fails contributes an empty slice under its key; a degraded snapshot is
// preferable to no snapshot. Capture itself fails only when the fan-out
// cannot complete, i.e. the context is cancelled.
func (a *Aggregator) Capture(ctx context.Context, now time.Time) (model.RawData, model.ProcessedData, error) {
	start := time.Now()

	raw := make(model.RawData, len(a.sources))
	var (
		mu     sync.Mutex
		failed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.sources {
		src := src
		g.Go(func() error {
			rows, err := src.Fetch(gctx)
			if err != nil {
				slog.Error("source fetch failed", "source", src.Name, "error", err)
				sourceFetchFailures.WithLabelValues(src.Name).Inc()
				rows = []model.Row{}
			}
			if rows == nil {
				rows = []model.Row{}
			}
			mu.Lock()
			raw[src.Name] = rows
			if err != nil {
				failed = append(failed, src.Name)
			}
			mu.Unlock()
			return nil // don't fail the group
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		captureTotal.WithLabelValues("error").Inc()
		return nil, model.ProcessedData{}, fmt.Errorf("capture aborted: %w", err)
	}
	sort.Strings(failed)

	processed := model.ProcessedData{
		CapturedAt:   now,
		Periode:      model.Periode(now),
		SnapshotDate: model.DateOnly(now).Format("2006-01-02"),
		SummaryStats: model.SummaryStats{
			TotalProducts:         len(raw[source.SourceMaterialMaster]),
			TotalWIPBatches:       len(raw[source.SourceWorkInProgress]),
			TotalFulfillmentLines: len(raw[source.SourceOrderFulfillment]),
		},
		SourceCounts:  make(map[string]int, len(raw)),
		FailedSources: failed,
	}
	for name, rows := range raw {
		processed.SourceCounts[name] = len(rows)
	}

	captureDuration.Observe(time.Since(start).Seconds())
	captureTotal.WithLabelValues("success").Inc()
	slog.Info("capture complete",
		"periode", processed.Periode,
		"sources", len(a.sources),
		"failed", len(failed))
	return raw, processed, nil
}
