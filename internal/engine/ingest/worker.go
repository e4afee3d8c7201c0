// Package ingest loads venue records into the store, geocoding the ones that
// arrive without a coordinate.
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/model"
)

type Stats struct {
	Total      int
	Processed  atomic.Int64
	Geocoded   atomic.Int64
	Unlocated  atomic.Int64
	OutOfArea  atomic.Int64
	Stored     atomic.Int64
	Errors     atomic.Int64
	BatchesRun atomic.Int64
}

// Store is the write side of the venue store.
type Store interface {
	InsertBatch(ctx context.Context, venues []model.Venue) (int, error)
}

type Geocoder interface {
	AddressToCoordinate(ctx context.Context, text string) (*model.Coordinate, error)
}

// Options tunes a Run. The zero value imports without geocoding.
type Options struct {
	BatchSize   int
	Concurrency int
	// Geocoder, when set, resolves venues that have an address or region but no coordinate.
	Geocoder Geocoder
	// Area rejects coordinates outside it; the venue is kept without one. Empty disables the check.
	Area orb.Bound
	// Stats allows passing an external Stats object for live progress tracking.
	Stats *Stats
	// Progress, when set, receives a one-line summary every ProgressEvery.
	Progress      io.Writer
	ProgressEvery time.Duration
	// OnBatch is called with every stored batch.
	OnBatch func([]model.Venue)
}

// Run imports venues in batches. Batches run concurrently; a failed batch is
// counted and logged and does not stop the others. Only ctx cancellation aborts the run.
func Run(ctx context.Context, venues []model.Venue, store Store, opts Options, logger zerolog.Logger) (*Stats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 2 * time.Second
	}

	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}
	if stats.Total == 0 {
		stats.Total = len(venues)
	}

	logger = logger.With().Str("component", "ingest").Logger()
	startTime := time.Now()

	done := make(chan struct{})
	go report(stats, opts, logger, startTime, done)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for start := 0; start < len(venues); start += opts.BatchSize {
		if gctx.Err() != nil {
			break
		}
		end := min(start+opts.BatchSize, len(venues))
		batch := append([]model.Venue(nil), venues[start:end]...)
		g.Go(func() error {
			return processBatch(gctx, store, batch, opts, stats, logger)
		})
	}
	err := g.Wait()
	close(done)

	if opts.Progress != nil {
		fmt.Fprintf(opts.Progress, "\r%s\n", progressLine(stats, time.Since(startTime)))
	}
	logger.Info().
		Int("total", stats.Total).
		Int64("stored", stats.Stored.Load()).
		Int64("geocoded", stats.Geocoded.Load()).
		Int64("errors", stats.Errors.Load()).
		Dur("elapsed", time.Since(startTime)).
		Msg("import finished")

	if err == nil {
		err = ctx.Err()
	}
	return stats, err
}

// processBatch only returns an error for cancellation; store failures are counted.
func processBatch(ctx context.Context, store Store, batch []model.Venue, opts Options, stats *Stats, logger zerolog.Logger) error {
	defer stats.BatchesRun.Add(1)

	for i := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		locate(ctx, &batch[i], opts, stats, logger)
	}

	inserted, err := store.InsertBatch(ctx, batch)
	stats.Processed.Add(int64(len(batch)))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Errors.Add(1)
		logger.Error().Err(err).Int("size", len(batch)).Msg("batch insert failed")
		return nil
	}
	stats.Stored.Add(int64(inserted))
	if opts.OnBatch != nil {
		opts.OnBatch(batch)
	}
	return nil
}

func locate(ctx context.Context, v *model.Venue, opts Options, stats *Stats, logger zerolog.Logger) {
	if v.Coordinate == nil && opts.Geocoder != nil {
		if query := geocodeQuery(*v); query != "" {
			c, err := opts.Geocoder.AddressToCoordinate(ctx, query)
			switch {
			case err != nil:
				stats.Errors.Add(1)
				logger.Warn().Err(err).Str("venue", v.Name).Msg("geocoding failed")
			case c != nil:
				v.Coordinate = c
				stats.Geocoded.Add(1)
			}
		}
	}

	if v.Coordinate != nil && !opts.Area.IsEmpty() && !geo.InArea(opts.Area, *v.Coordinate) {
		logger.Warn().Str("venue", v.Name).Stringer("coordinate", *v.Coordinate).Msg("coordinate outside service area dropped")
		v.Coordinate = nil
		stats.OutOfArea.Add(1)
	}
	if v.Coordinate == nil {
		stats.Unlocated.Add(1)
	}
}

// geocodeQuery prefers the street address; a name plus region is the next best thing.
func geocodeQuery(v model.Venue) string {
	if a := strings.TrimSpace(v.Address); a != "" {
		return a
	}
	if strings.TrimSpace(v.Region) == "" {
		return ""
	}
	return strings.TrimSpace(v.Region + " " + v.Name)
}

func report(stats *Stats, opts Options, logger zerolog.Logger, startTime time.Time, done <-chan struct{}) {
	ticker := time.NewTicker(opts.ProgressEvery)
	logTicker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	defer logTicker.Stop()
	for {
		select {
		case <-ticker.C:
			if opts.Progress != nil {
				fmt.Fprintf(opts.Progress, "\r%s", progressLine(stats, time.Since(startTime)))
			}
		case <-logTicker.C:
			logger.Info().
				Int64("processed", stats.Processed.Load()).
				Int("total", stats.Total).
				Int64("stored", stats.Stored.Load()).
				Int64("errors", stats.Errors.Load()).
				Msg("progress")
		case <-done:
			return
		}
	}
}

func progressLine(stats *Stats, elapsed time.Duration) string {
	return fmt.Sprintf("[%d/%d venues] %d stored | %d geocoded | %d without location | %d errors | %s",
		stats.Processed.Load(), stats.Total,
		stats.Stored.Load(), stats.Geocoded.Load(), stats.Unlocated.Load(),
		stats.Errors.Load(), elapsed.Truncate(time.Second))
}
