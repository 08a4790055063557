package decode

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

// RemoteIDPacketSize is the fixed length of a Remote ID packet: a one-byte
// header followed by a 24-byte message.
const RemoteIDPacketSize = 25

// Remote ID message types (high nibble of the header byte).
const (
	remoteIDMsgBasic    = 0x0
	remoteIDMsgLocation = 0x1
)

// RemoteID decodes a broadcast Remote ID packet.
//
// Basic messages carry the UAS identifier; location messages carry position
// and velocity but no identifier, so their record's source is left empty for
// the caller to fill from the authenticated sender identity. Fields encoded
// as "unknown" on the wire are omitted from the record.
func RemoteID(raw []byte) (*models.Record, error) {
	if len(raw) != RemoteIDPacketSize {
		return nil, fmt.Errorf("%w: remote id packet must be %d bytes, got %d", ErrSize, RemoteIDPacketSize, len(raw))
	}

	rec := &models.Record{
		Protocol:   models.ProtocolRemoteID,
		Payload:    append([]byte(nil), raw...),
		CapturedAt: time.Now().UTC(),
	}
	msg := raw[1:]

	switch msgType := raw[0] >> 4; msgType {
	case remoteIDMsgBasic:
		uasID := strings.TrimRight(string(msg[1:21]), "\x00")
		if uasID == "" || !utf8.ValidString(uasID) {
			return nil, fmt.Errorf("%w: unusable uas identifier", ErrFraming)
		}
		rec.Kind = models.KindIdentification
		rec.Source = uasID

	case remoteIDMsgLocation:
		rec.Kind = models.KindPosition

		lat := float64(int32(binary.LittleEndian.Uint32(msg[4:8]))) * 1e-7
		lon := float64(int32(binary.LittleEndian.Uint32(msg[8:12]))) * 1e-7
		// Raw pressure altitude 0 is the "unknown" encoding.
		if pressureAlt := binary.LittleEndian.Uint16(msg[12:14]); pressureAlt != 0 {
			rec.Position = &models.Position{
				Latitude:       lat,
				Longitude:      lon,
				AltitudeMeters: float64(pressureAlt)*0.5 - 1000,
			}
		}

		if speed, known := decodeRemoteIDSpeed(msg[2], msg[0]&0x01 != 0); known {
			track := float64(msg[1])
			if msg[0]&0x02 != 0 { // east/west flag: facing west
				track += 180
			}
			rec.Velocity = &models.Velocity{
				GroundSpeedMps:   speed,
				TrackDegrees:     track,
				VerticalSpeedMps: float64(int8(msg[3])) * 0.5,
			}
		}

	default:
		return nil, fmt.Errorf("%w: remote id message type %#x", ErrSubtype, msgType)
	}

	return rec, nil
}

// decodeRemoteIDSpeed converts the encoded ground speed. The low multiplier
// covers 0-63.75 m/s in 0.25 m/s steps; the high multiplier continues from
// there in 0.75 m/s steps. Raw 255 means unknown, and the top of the high
// range means "at or above", which is not a usable measurement either.
func decodeRemoteIDSpeed(raw byte, highMultiplier bool) (float64, bool) {
	if raw == 255 {
		return 0, false
	}
	if !highMultiplier {
		return float64(raw) * 0.25, true
	}
	speed := float64(raw)*0.75 + 63.75
	if speed >= 254.25 {
		return 0, false
	}
	return speed, true
}
