// Package service implements the ingestion pipeline: decode, deduplicate,
// and fan accepted records out to the configured sinks.
package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/airtrace-systems/airtrace-telemetry/internal/bus"
	"github.com/airtrace-systems/airtrace-telemetry/internal/decode"
	"github.com/airtrace-systems/airtrace-telemetry/internal/dedup"
	"github.com/airtrace-systems/airtrace-telemetry/internal/fingerprint"
	"github.com/airtrace-systems/airtrace-telemetry/internal/gis"
	"github.com/airtrace-systems/airtrace-telemetry/internal/logging"
	"github.com/airtrace-systems/airtrace-telemetry/internal/metrics"
	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
	"github.com/airtrace-systems/airtrace-telemetry/internal/storageclient"
)

// Sink names a fanout destination.
type Sink string

const (
	SinkStorage Sink = "storage"
	SinkGIS     Sink = "gis"
	SinkBus     Sink = "bus"
)

// DefaultTargets returns the per-protocol fanout routing.
//
// ADS-B from local receivers is the authoritative feed and goes everywhere.
// MAVLink-wrapped reports are relayed state and skip the live map. Remote ID
// packets skip raw storage: the durable copy lives with the network that
// relayed them.
func DefaultTargets() map[models.Protocol][]Sink {
	return map[models.Protocol][]Sink{
		models.ProtocolADSB:        {SinkStorage, SinkGIS, SinkBus},
		models.ProtocolMAVLinkADSB: {SinkStorage, SinkBus},
		models.ProtocolRemoteID:    {SinkGIS, SinkBus},
	}
}

// ParseSinks converts configured sink names into Sink values, rejecting
// names the dispatcher does not know.
func ParseSinks(names []string) ([]Sink, error) {
	sinks := make([]Sink, 0, len(names))
	for _, name := range names {
		switch s := Sink(name); s {
		case SinkStorage, SinkGIS, SinkBus:
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("unknown fanout sink %q", name)
		}
	}
	return sinks, nil
}

// TTLs holds the per-protocol deduplication windows and the lifetime of
// cached position report halves.
type TTLs struct {
	ADSB        time.Duration
	MAVLinkADSB time.Duration
	RemoteID    time.Duration
	CPRPair     time.Duration
}

// IngestService runs the pipeline for one packet at a time. All sinks are
// optional at construction; a protocol routed to an unwired sink fails with
// ErrNotConfigured at ingestion time.
type IngestService struct {
	cache   dedup.Cache
	storage *storageclient.Client
	gis     *gis.Pusher
	bus     bus.Publisher
	targets map[models.Protocol][]Sink
	ttls    TTLs
	logger  *logging.Logger
}

func NewIngestService(cache dedup.Cache, storage *storageclient.Client, gisPusher *gis.Pusher,
	publisher bus.Publisher, targets map[models.Protocol][]Sink, ttls TTLs, logger *logging.Logger) *IngestService {
	if targets == nil {
		targets = DefaultTargets()
	}
	return &IngestService{
		cache:   cache,
		storage: storage,
		gis:     gisPusher,
		bus:     publisher,
		targets: targets,
		ttls:    ttls,
		logger:  logger,
	}
}

// Ingest runs one raw payload through the pipeline and returns the
// observation count of its fingerprint. A count of 1 means the packet was
// accepted and fanned out; higher counts mean it was suppressed as a
// duplicate. Decode failures pass through unwrapped so the caller can map
// them to a client error.
func (s *IngestService) Ingest(ctx context.Context, protocol models.Protocol, raw []byte, captureID, identity string) (int64, error) {
	rec, err := decode.Decode(raw, protocol)
	if err != nil {
		return 0, err
	}
	rec.CaptureID = captureID
	if rec.Protocol == models.ProtocolRemoteID && rec.Source == "" {
		rec.Source = identity
	}

	key, err := fingerprint.Key(rec)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", decode.ErrFraming, err)
	}

	count, err := s.cache.Observe(ctx, key, s.ttl(rec.Protocol))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if count > 1 {
		metrics.DuplicatesTotal.WithLabelValues(string(rec.Protocol)).Inc()
		s.logger.DebugContext(ctx, "duplicate suppressed", "fingerprint", key, "count", count)
		return count, nil
	}

	if rec.CPR != nil {
		s.resolvePosition(ctx, rec)
	}

	if err := s.fanout(ctx, rec); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *IngestService) ttl(protocol models.Protocol) time.Duration {
	switch protocol {
	case models.ProtocolADSB:
		return s.ttls.ADSB
	case models.ProtocolMAVLinkADSB:
		return s.ttls.MAVLinkADSB
	default:
		return s.ttls.RemoteID
	}
}

// resolvePosition caches the packet's compact position report and, when the
// packet is the even half, pairs it with a recent odd half to produce a
// geodetic position. Pairing is an enrichment: cache trouble here is logged,
// not fatal, because the observation has already been counted.
func (s *IngestService) resolvePosition(ctx context.Context, rec *models.Record) {
	flag := "0"
	if rec.CPR.Odd {
		flag = "1"
	}
	latKey := rec.Source + ":lat_cpr:" + flag
	lonKey := rec.Source + ":lon_cpr:" + flag

	err := s.cache.SetValues(ctx, map[string]string{
		latKey: strconv.FormatUint(uint64(rec.CPR.LatCPR), 10),
		lonKey: strconv.FormatUint(uint64(rec.CPR.LonCPR), 10),
	}, s.ttls.CPRPair)
	if err != nil {
		s.logger.WarnContext(ctx, "position report cache write failed", "source", rec.Source, "error", err)
		return
	}

	// Only the even half triggers resolution against the cached odd half.
	if rec.CPR.Odd {
		return
	}

	values, err := s.cache.GetValues(ctx, rec.Source+":lat_cpr:1", rec.Source+":lon_cpr:1")
	if err != nil {
		s.logger.WarnContext(ctx, "position report cache read failed", "source", rec.Source, "error", err)
		return
	}
	if values[0] == "" || values[1] == "" {
		return
	}

	latOdd, errLat := strconv.ParseUint(values[0], 10, 32)
	lonOdd, errLon := strconv.ParseUint(values[1], 10, 32)
	if errLat != nil || errLon != nil {
		return
	}

	lat, lon, ok := decode.DecodeCPR(rec.CPR.LatCPR, rec.CPR.LonCPR, uint32(latOdd), uint32(lonOdd))
	if !ok {
		return
	}

	pos := &models.Position{Latitude: lat, Longitude: lon}
	if rec.CPR.AltitudeKnown {
		pos.AltitudeMeters = rec.CPR.AltitudeMeters
	}
	rec.Position = pos
}

// fanout delivers an accepted record to its protocol's sinks. Storage is
// synchronous and fatal on failure; the map and bus deliveries are
// best-effort.
func (s *IngestService) fanout(ctx context.Context, rec *models.Record) error {
	for _, sink := range s.targets[rec.Protocol] {
		switch sink {
		case SinkStorage:
			if s.storage == nil {
				return fmt.Errorf("%w: storage", ErrNotConfigured)
			}
			start := time.Now()
			if _, err := s.storage.Store(ctx, rec); err != nil {
				metrics.FanoutErrors.WithLabelValues(string(SinkStorage)).Inc()
				return fmt.Errorf("%w: %v", ErrStorageFailed, err)
			}
			metrics.FanoutDuration.WithLabelValues(string(SinkStorage)).Observe(time.Since(start).Seconds())

		case SinkGIS:
			if s.gis == nil {
				return fmt.Errorf("%w: gis", ErrNotConfigured)
			}
			s.gis.Enqueue(rec)

		case SinkBus:
			if s.bus == nil {
				return fmt.Errorf("%w: bus", ErrNotConfigured)
			}
			start := time.Now()
			if err := s.bus.Publish(ctx, rec); err != nil {
				metrics.FanoutErrors.WithLabelValues(string(SinkBus)).Inc()
				s.logger.WarnContext(ctx, "bus publish failed", "protocol", rec.Protocol, "error", err)
				continue
			}
			metrics.FanoutDuration.WithLabelValues(string(SinkBus)).Observe(time.Since(start).Seconds())
		}
	}
	return nil
}
