package gis

import (
	"context"
	"log/slog"
	"time"

	"github.com/airtrace-systems/airtrace-telemetry/internal/buffer"
	"github.com/airtrace-systems/airtrace-telemetry/internal/metrics"
	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

const ringName = "gis"

// Pusher accumulates accepted records and flushes them to the geospatial
// service on a fixed cadence. Enqueue never blocks request handling.
type Pusher struct {
	ring     *buffer.Ring[*models.Record]
	client   *Client
	cadence  time.Duration
	maxBatch int
	logger   *slog.Logger
}

func NewPusher(client *Client, capacity, maxBatch int, cadence time.Duration, logger *slog.Logger) *Pusher {
	return &Pusher{
		ring:     buffer.NewRing[*models.Record](capacity),
		client:   client,
		cadence:  cadence,
		maxBatch: maxBatch,
		logger:   logger,
	}
}

// Enqueue adds a record for the next flush. A full ring drops its oldest
// entry first.
func (p *Pusher) Enqueue(rec *models.Record) {
	if p.ring.Push(rec) {
		metrics.RingDropsTotal.WithLabelValues(ringName).Inc()
	}
	metrics.RingDepth.WithLabelValues(ringName).Set(float64(p.ring.Len()))
}

// Pending reports how many records await the next flush.
func (p *Pusher) Pending() int {
	return p.ring.Len()
}

// Run flushes batches until ctx is cancelled, then makes one final flush so
// a clean shutdown does not strand queued records.
func (p *Pusher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.flush(context.Background())
			return
		case <-ticker.C:
			p.flush(ctx)
		}
	}
}

func (p *Pusher) flush(ctx context.Context) {
	batch := p.ring.DrainBatch(p.maxBatch)
	metrics.RingDepth.WithLabelValues(ringName).Set(float64(p.ring.Len()))
	if len(batch) == 0 {
		return
	}
	metrics.BatchSize.WithLabelValues(ringName).Observe(float64(len(batch)))

	var positions []PositionUpdate
	var velocities []VelocityUpdate
	var identifications []IdentificationUpdate

	for _, rec := range batch {
		switch {
		case rec.Position != nil:
			positions = append(positions, PositionUpdate{
				Identifier:     rec.Source,
				Latitude:       rec.Position.Latitude,
				Longitude:      rec.Position.Longitude,
				AltitudeMeters: rec.Position.AltitudeMeters,
				Timestamp:      rec.CapturedAt,
			})
		case rec.Velocity != nil:
			velocities = append(velocities, VelocityUpdate{
				Identifier:       rec.Source,
				GroundSpeedMps:   rec.Velocity.GroundSpeedMps,
				TrackDegrees:     rec.Velocity.TrackDegrees,
				VerticalSpeedMps: rec.Velocity.VerticalSpeedMps,
				Timestamp:        rec.CapturedAt,
			})
		case rec.Kind == models.KindIdentification:
			identifications = append(identifications, IdentificationUpdate{
				Identifier: rec.Source,
				Callsign:   rec.Callsign,
				Timestamp:  rec.CapturedAt,
			})
		}
	}

	start := time.Now()
	if len(positions) > 0 {
		if err := p.client.UpdatePositions(ctx, positions); err != nil {
			metrics.FanoutErrors.WithLabelValues(ringName).Inc()
			p.logger.Warn("gis position batch failed", "count", len(positions), "error", err)
		}
	}
	if len(velocities) > 0 {
		if err := p.client.UpdateVelocities(ctx, velocities); err != nil {
			metrics.FanoutErrors.WithLabelValues(ringName).Inc()
			p.logger.Warn("gis velocity batch failed", "count", len(velocities), "error", err)
		}
	}
	if len(identifications) > 0 {
		if err := p.client.UpdateIdentifications(ctx, identifications); err != nil {
			metrics.FanoutErrors.WithLabelValues(ringName).Inc()
			p.logger.Warn("gis identification batch failed", "count", len(identifications), "error", err)
		}
	}
	metrics.FanoutDuration.WithLabelValues(ringName).Observe(time.Since(start).Seconds())
}
