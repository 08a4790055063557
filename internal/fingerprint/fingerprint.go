// Package fingerprint derives the deduplication key of a decoded telemetry
// record.
//
// Two packets share a fingerprint exactly when they are observations of the
// same transmission: the key is built from protocol-level identity fields
// rather than from the raw bytes, so receiver-side differences in capture
// metadata do not defeat deduplication.
package fingerprint

import (
	"fmt"
	"hash/fnv"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

// Key returns the deduplication key for a decoded record.
//
// ADS-B frames are keyed on the ICAO address and the frame's CRC-24, which
// covers the full message body. MAVLink-wrapped reports add the outer
// sequence number so that distinct wrappings of the same airframe state stay
// distinct. Remote ID packets carry no usable checksum, so they are keyed on
// the sender identity and a hash of the payload bytes.
func Key(rec *models.Record) (string, error) {
	switch rec.Protocol {
	case models.ProtocolADSB:
		return fmt.Sprintf("adsb:%s:%06x", rec.Source, rec.Checksum), nil

	case models.ProtocolMAVLinkADSB:
		if rec.Sequence == nil {
			return "", fmt.Errorf("mavlink record for %s has no sequence number", rec.Source)
		}
		return fmt.Sprintf("mavlink:%s:%d", rec.Source, *rec.Sequence), nil

	case models.ProtocolRemoteID:
		if rec.Source == "" {
			return "", fmt.Errorf("remote id record has no sender identity")
		}
		h := fnv.New32a()
		h.Write(rec.Payload)
		return fmt.Sprintf("netrid:%s:%08x", rec.Source, h.Sum32()), nil

	default:
		return "", fmt.Errorf("no fingerprint rule for protocol %q", rec.Protocol)
	}
}
