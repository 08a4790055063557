package decode

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

// MAVLinkMaxPacketSize bounds the total size of an accepted MAVLink packet.
const MAVLinkMaxPacketSize = 280

const (
	mavlinkMagic     = 0xFD
	mavlinkHeaderLen = 10 // magic, len, incompat, compat, seq, sysid, compid, msgid[3]
	mavlinkCRCLen    = 2

	// msgIDADSBVehicle is the message id of an ADS-B vehicle report.
	msgIDADSBVehicle = 246
	// crcExtraADSBVehicle seeds the checksum with the message definition,
	// so that sender and receiver disagree on the CRC if their message
	// layouts diverge.
	crcExtraADSBVehicle = 184
)

// MAVLinkADSB decodes a MAVLink frame wrapping an ADS-B vehicle report.
//
// The outer frame's X.25 checksum and declared length are validated, then
// the embedded 14-byte ADS-B frame is decoded by the ADS-B rules. The outer
// sequence number is kept on the record; it distinguishes retransmissions of
// the same airframe state from repeats of the same wire packet.
func MAVLinkADSB(raw []byte) (*models.Record, error) {
	if len(raw) > MAVLinkMaxPacketSize {
		return nil, fmt.Errorf("%w: mavlink packet of %d bytes exceeds %d", ErrSize, len(raw), MAVLinkMaxPacketSize)
	}
	if len(raw) < mavlinkHeaderLen+mavlinkCRCLen {
		return nil, fmt.Errorf("%w: mavlink packet of %d bytes is shorter than header and checksum", ErrSize, len(raw))
	}
	if raw[0] != mavlinkMagic {
		return nil, fmt.Errorf("%w: bad magic byte %#02x", ErrFraming, raw[0])
	}

	payloadLen := int(raw[1])
	if len(raw) != mavlinkHeaderLen+payloadLen+mavlinkCRCLen {
		return nil, fmt.Errorf("%w: declared payload of %d bytes does not match packet length %d", ErrFraming, payloadLen, len(raw))
	}

	msgID := uint32(raw[7]) | uint32(raw[8])<<8 | uint32(raw[9])<<16
	if msgID != msgIDADSBVehicle {
		return nil, fmt.Errorf("%w: message id %d", ErrSubtype, msgID)
	}

	want := binary.LittleEndian.Uint16(raw[mavlinkHeaderLen+payloadLen:])
	sum := crcX25(raw[1 : mavlinkHeaderLen+payloadLen])
	sum = crcAccumulate(crcExtraADSBVehicle, sum)
	if sum != want {
		return nil, fmt.Errorf("%w: computed %04x, frame carries %04x", ErrChecksum, sum, want)
	}

	rec, err := ADSB(raw[mavlinkHeaderLen : mavlinkHeaderLen+payloadLen])
	if err != nil {
		return nil, err
	}

	seq := raw[4]
	rec.Protocol = models.ProtocolMAVLinkADSB
	rec.Sequence = &seq
	rec.Payload = append([]byte(nil), raw...)
	rec.CapturedAt = time.Now().UTC()
	return rec, nil
}

// crcX25 computes the X.25/MCRF4XX CRC-16 used by MAVLink framing.
func crcX25(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = crcAccumulate(b, crc)
	}
	return crc
}

func crcAccumulate(b byte, crc uint16) uint16 {
	tmp := b ^ byte(crc&0xFF)
	tmp ^= tmp << 4
	return crc>>8 ^ uint16(tmp)<<8 ^ uint16(tmp)<<3 ^ uint16(tmp)>>4
}
