// Package decode turns raw wire payloads into canonical telemetry records.
//
// Each supported protocol has one decoder, selected by the protocol tag
// carried with the request. Decoders are pure functions of the input bytes:
// they validate framing, size bounds and integrity checksums, and either
// return a fully validated record or a typed rejection. Fields a frame
// legitimately encodes as "unknown" are omitted from the record rather than
// failing the decode.
package decode

import (
	"errors"
	"fmt"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

// Rejection reasons. Every decoder failure wraps exactly one of these.
var (
	ErrFraming  = errors.New("malformed framing")
	ErrChecksum = errors.New("checksum mismatch")
	ErrSize     = errors.New("payload size out of bounds")
	ErrSubtype  = errors.New("unrecognized message subtype")
)

// IsDecodeError reports whether err is a decoder rejection, as opposed to
// an infrastructure failure. Rejections map to a client error at the API
// boundary.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrFraming) || errors.Is(err, ErrChecksum) ||
		errors.Is(err, ErrSize) || errors.Is(err, ErrSubtype)
}

// Decode dispatches raw to the decoder for the given protocol tag.
func Decode(raw []byte, protocol models.Protocol) (*models.Record, error) {
	switch protocol {
	case models.ProtocolADSB:
		return ADSB(raw)
	case models.ProtocolMAVLinkADSB:
		return MAVLinkADSB(raw)
	case models.ProtocolRemoteID:
		return RemoteID(raw)
	default:
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrFraming, protocol)
	}
}
