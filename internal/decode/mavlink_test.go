package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

// wrapMAVLink frames a payload as a MAVLink v2 packet with a valid checksum.
func wrapMAVLink(payload []byte, seq byte, msgID uint32) []byte {
	packet := make([]byte, mavlinkHeaderLen+len(payload)+mavlinkCRCLen)
	packet[0] = mavlinkMagic
	packet[1] = byte(len(payload))
	packet[4] = seq
	packet[5] = 1 // system id
	packet[6] = 1 // component id
	packet[7] = byte(msgID)
	packet[8] = byte(msgID >> 8)
	packet[9] = byte(msgID >> 16)
	copy(packet[mavlinkHeaderLen:], payload)

	sum := crcX25(packet[1 : mavlinkHeaderLen+len(payload)])
	sum = crcAccumulate(crcExtraADSBVehicle, sum)
	binary.LittleEndian.PutUint16(packet[mavlinkHeaderLen+len(payload):], sum)
	return packet
}

func TestMAVLinkADSB(t *testing.T) {
	inner := identificationFrame(t, "DLH9LF")
	packet := wrapMAVLink(inner, 42, msgIDADSBVehicle)

	rec, err := MAVLinkADSB(packet)
	require.NoError(t, err)

	assert.Equal(t, models.ProtocolMAVLinkADSB, rec.Protocol)
	assert.Equal(t, models.KindIdentification, rec.Kind)
	assert.Equal(t, testICAO, rec.Source)
	assert.Equal(t, "DLH9LF", rec.Callsign)
	require.NotNil(t, rec.Sequence)
	assert.Equal(t, uint8(42), *rec.Sequence)
	assert.Equal(t, packet, rec.Payload)
}

func TestMAVLinkADSBRejections(t *testing.T) {
	inner := identificationFrame(t, "DLH9LF")
	valid := wrapMAVLink(inner, 7, msgIDADSBVehicle)

	tests := []struct {
		name    string
		packet  []byte
		wantErr error
	}{
		{
			name:    "oversized packet",
			packet:  make([]byte, MAVLinkMaxPacketSize+1),
			wantErr: ErrSize,
		},
		{
			name:    "shorter than header and checksum",
			packet:  valid[:mavlinkHeaderLen+mavlinkCRCLen-1],
			wantErr: ErrSize,
		},
		{
			name: "bad magic byte",
			packet: func() []byte {
				p := append([]byte(nil), valid...)
				p[0] = 0xFE
				return p
			}(),
			wantErr: ErrFraming,
		},
		{
			name: "declared length mismatch",
			packet: func() []byte {
				p := append([]byte(nil), valid...)
				p[1]++
				return p
			}(),
			wantErr: ErrFraming,
		},
		{
			name:    "wrong message id",
			packet:  wrapMAVLink(inner, 7, 33),
			wantErr: ErrSubtype,
		},
		{
			name: "corrupted payload",
			packet: func() []byte {
				p := append([]byte(nil), valid...)
				p[mavlinkHeaderLen+2] ^= 0x01
				return p
			}(),
			wantErr: ErrChecksum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := MAVLinkADSB(tt.packet)
			assert.Nil(t, rec)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMAVLinkADSBInvalidInnerFrame(t *testing.T) {
	// The outer frame checks out but the embedded payload is not a valid
	// extended squitter.
	inner := identificationFrame(t, "DLH9LF")
	inner[0] = 11 << 3
	packet := wrapMAVLink(inner, 7, msgIDADSBVehicle)

	_, err := MAVLinkADSB(packet)
	require.ErrorIs(t, err, ErrFraming)
}

func TestDecodeDispatch(t *testing.T) {
	rec, err := Decode(identificationFrame(t, "N123"), models.ProtocolADSB)
	require.NoError(t, err)
	assert.Equal(t, models.ProtocolADSB, rec.Protocol)

	_, err = Decode([]byte{0x00}, "carrier_pigeon")
	require.ErrorIs(t, err, ErrFraming)
}
