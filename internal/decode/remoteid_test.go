package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

func basicIDPacket(uasID string) []byte {
	packet := make([]byte, RemoteIDPacketSize)
	packet[0] = remoteIDMsgBasic << 4
	packet[1] = 0x12 // id type / ua type nibbles
	copy(packet[2:22], uasID)
	return packet
}

type locationFields struct {
	west       bool
	highSpeed  bool
	track      byte
	speed      byte
	vspeed     int8
	lat        int32
	lon        int32
	presAltRaw uint16
}

func locationPacket(f locationFields) []byte {
	packet := make([]byte, RemoteIDPacketSize)
	packet[0] = remoteIDMsgLocation << 4
	if f.west {
		packet[1] |= 0x02
	}
	if f.highSpeed {
		packet[1] |= 0x01
	}
	packet[2] = f.track
	packet[3] = f.speed
	packet[4] = byte(f.vspeed)
	binary.LittleEndian.PutUint32(packet[5:9], uint32(f.lat))
	binary.LittleEndian.PutUint32(packet[9:13], uint32(f.lon))
	binary.LittleEndian.PutUint16(packet[13:15], f.presAltRaw)
	return packet
}

func TestRemoteIDBasic(t *testing.T) {
	rec, err := RemoteID(basicIDPacket("UAS-GROUNDED-42"))
	require.NoError(t, err)

	assert.Equal(t, models.ProtocolRemoteID, rec.Protocol)
	assert.Equal(t, models.KindIdentification, rec.Kind)
	assert.Equal(t, "UAS-GROUNDED-42", rec.Source)
	assert.Nil(t, rec.Position)
	assert.Nil(t, rec.Velocity)
}

func TestRemoteIDBasicEmptyIdentifier(t *testing.T) {
	rec, err := RemoteID(basicIDPacket(""))
	assert.Nil(t, rec)
	require.ErrorIs(t, err, ErrFraming)
}

func TestRemoteIDLocation(t *testing.T) {
	rec, err := RemoteID(locationPacket(locationFields{
		track:      10,
		speed:      30,
		vspeed:     -4,
		lat:        -123456789,
		lon:        123456789,
		presAltRaw: 1000,
	}))
	require.NoError(t, err)

	assert.Equal(t, models.KindPosition, rec.Kind)
	assert.Empty(t, rec.Source)

	require.NotNil(t, rec.Position)
	assert.InDelta(t, -12.3456789, rec.Position.Latitude, 1e-9)
	assert.InDelta(t, 12.3456789, rec.Position.Longitude, 1e-9)
	assert.InDelta(t, -500.0, rec.Position.AltitudeMeters, 0.001)

	require.NotNil(t, rec.Velocity)
	assert.InDelta(t, 7.5, rec.Velocity.GroundSpeedMps, 0.001)
	assert.InDelta(t, 10.0, rec.Velocity.TrackDegrees, 0.001)
	assert.InDelta(t, -2.0, rec.Velocity.VerticalSpeedMps, 0.001)
}

func TestRemoteIDLocationWestTrack(t *testing.T) {
	rec, err := RemoteID(locationPacket(locationFields{
		west:       true,
		track:      10,
		speed:      30,
		presAltRaw: 1000,
	}))
	require.NoError(t, err)

	require.NotNil(t, rec.Velocity)
	assert.InDelta(t, 190.0, rec.Velocity.TrackDegrees, 0.001)
}

func TestRemoteIDLocationHighSpeedRange(t *testing.T) {
	rec, err := RemoteID(locationPacket(locationFields{
		highSpeed:  true,
		speed:      20,
		presAltRaw: 1000,
	}))
	require.NoError(t, err)

	require.NotNil(t, rec.Velocity)
	assert.InDelta(t, 20*0.75+63.75, rec.Velocity.GroundSpeedMps, 0.001)
}

func TestRemoteIDLocationUnknownFields(t *testing.T) {
	// Raw speed 255 and raw pressure altitude 0 are both "unknown"; the
	// record carries neither measurement.
	rec, err := RemoteID(locationPacket(locationFields{
		speed:      255,
		presAltRaw: 0,
	}))
	require.NoError(t, err)

	assert.Nil(t, rec.Position)
	assert.Nil(t, rec.Velocity)
}

func TestRemoteIDRejections(t *testing.T) {
	short := make([]byte, RemoteIDPacketSize-1)
	_, err := RemoteID(short)
	require.ErrorIs(t, err, ErrSize)

	long := make([]byte, RemoteIDPacketSize+1)
	_, err = RemoteID(long)
	require.ErrorIs(t, err, ErrSize)

	// Self-ID (0x3) and other message types have no decoder.
	unsupported := make([]byte, RemoteIDPacketSize)
	unsupported[0] = 0x3 << 4
	_, err = RemoteID(unsupported)
	require.ErrorIs(t, err, ErrSubtype)
}
