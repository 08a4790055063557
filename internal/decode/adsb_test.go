package decode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

const testICAO = "4840d6"

// buildADSBFrame assembles a valid extended squitter frame around the given
// ME field, with correct parity.
func buildADSBFrame(me [7]byte) []byte {
	frame := make([]byte, ADSBFrameSize)
	frame[0] = adsbDownlinkFormat << 3
	frame[1], frame[2], frame[3] = 0x48, 0x40, 0xD6
	copy(frame[4:11], me[:])
	sum := crc24(frame[:11])
	frame[11] = byte(sum >> 16)
	frame[12] = byte(sum >> 8)
	frame[13] = byte(sum)
	return frame
}

// setMEBits writes length bits of value into the ME field at the given bit
// offset, most significant bit first.
func setMEBits(me []byte, start, length uint, value uint32) {
	for i := uint(0); i < length; i++ {
		bit := start + i
		mask := byte(1) << (7 - bit%8)
		if value>>(length-1-i)&1 == 1 {
			me[bit/8] |= mask
		} else {
			me[bit/8] &^= mask
		}
	}
}

func identificationFrame(t *testing.T, callsign string) []byte {
	t.Helper()
	require.LessOrEqual(t, len(callsign), 8)

	var me [7]byte
	setMEBits(me[:], 0, 5, 4) // type code 4: aircraft identification
	padded := callsign + strings.Repeat(" ", 8-len(callsign))
	for i, c := range []byte(padded) {
		code := strings.IndexByte(adsbCharset, c)
		require.NotEqual(t, -1, code, "character %q not encodable", c)
		setMEBits(me[:], 8+6*uint(i), 6, uint32(code))
	}
	return buildADSBFrame(me)
}

func positionFrame(odd bool, alt, latCPR, lonCPR uint32) []byte {
	var me [7]byte
	setMEBits(me[:], 0, 5, 11) // type code 11: airborne position
	setMEBits(me[:], 8, 12, alt)
	if odd {
		setMEBits(me[:], 21, 1, 1)
	}
	setMEBits(me[:], 22, 17, latCPR)
	setMEBits(me[:], 39, 17, lonCPR)
	return buildADSBFrame(me)
}

func velocityFrame(st, ewSign, ewVel, nsSign, nsVel, vrSign, vrVal uint32) []byte {
	var me [7]byte
	setMEBits(me[:], 0, 5, 19)
	setMEBits(me[:], 5, 3, st)
	setMEBits(me[:], 13, 1, ewSign)
	setMEBits(me[:], 14, 10, ewVel)
	setMEBits(me[:], 24, 1, nsSign)
	setMEBits(me[:], 25, 10, nsVel)
	setMEBits(me[:], 36, 1, vrSign)
	setMEBits(me[:], 37, 9, vrVal)
	return buildADSBFrame(me)
}

func TestADSBIdentification(t *testing.T) {
	rec, err := ADSB(identificationFrame(t, "KLM1023"))
	require.NoError(t, err)

	assert.Equal(t, models.ProtocolADSB, rec.Protocol)
	assert.Equal(t, models.KindIdentification, rec.Kind)
	assert.Equal(t, testICAO, rec.Source)
	assert.Equal(t, "KLM1023", rec.Callsign)
	assert.Nil(t, rec.Position)
	assert.Nil(t, rec.Velocity)
	assert.Nil(t, rec.CPR)
}

func TestADSBPosition(t *testing.T) {
	latCPR := uint32(0b10110101101001000)
	lonCPR := uint32(0b01100100010101100)
	alt := uint32(0b110000111000)

	rec, err := ADSB(positionFrame(true, alt, latCPR, lonCPR))
	require.NoError(t, err)

	assert.Equal(t, models.KindPosition, rec.Kind)
	assert.Equal(t, testICAO, rec.Source)
	require.NotNil(t, rec.CPR)
	assert.True(t, rec.CPR.Odd)
	assert.Equal(t, latCPR, rec.CPR.LatCPR)
	assert.Equal(t, lonCPR, rec.CPR.LonCPR)
	assert.True(t, rec.CPR.AltitudeKnown)
	assert.InDelta(t, 38000*0.3048, rec.CPR.AltitudeMeters, 0.001)
}

func TestADSBPositionAltitudeUnavailable(t *testing.T) {
	rec, err := ADSB(positionFrame(false, 0, 1, 1))
	require.NoError(t, err)

	require.NotNil(t, rec.CPR)
	assert.False(t, rec.CPR.Odd)
	assert.False(t, rec.CPR.AltitudeKnown)
}

func TestADSBVelocity(t *testing.T) {
	rec, err := ADSB(velocityFrame(1, 1, 9, 1, 160, 1, 14))
	require.NoError(t, err)

	assert.Equal(t, models.KindVelocity, rec.Kind)
	require.NotNil(t, rec.Velocity)
	assert.InDelta(t, 159.20*0.514444, rec.Velocity.GroundSpeedMps, 0.01)
	assert.InDelta(t, 182.88, rec.Velocity.TrackDegrees, 0.01)
	assert.InDelta(t, -832.0*0.3048, rec.Velocity.VerticalSpeedMps, 0.01)
}

func TestADSBVelocitySupersonic(t *testing.T) {
	rec, err := ADSB(velocityFrame(2, 0, 101, 0, 1, 0, 1))
	require.NoError(t, err)

	// Subtype 2 scales the components by four; vy is zero so the track
	// points due east.
	require.NotNil(t, rec.Velocity)
	assert.InDelta(t, 400*0.514444, rec.Velocity.GroundSpeedMps, 0.01)
	assert.InDelta(t, 90.0, rec.Velocity.TrackDegrees, 0.01)
}

func TestADSBRejections(t *testing.T) {
	valid := identificationFrame(t, "N123")

	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr error
	}{
		{
			name:    "truncated frame",
			mutate:  func(f []byte) []byte { return f[:13] },
			wantErr: ErrSize,
		},
		{
			name:    "oversized frame",
			mutate:  func(f []byte) []byte { return append(f, 0x00) },
			wantErr: ErrSize,
		},
		{
			name: "wrong downlink format",
			mutate: func(f []byte) []byte {
				f[0] = 11 << 3
				return f
			},
			wantErr: ErrFraming,
		},
		{
			name: "corrupted payload byte",
			mutate: func(f []byte) []byte {
				f[5] ^= 0x40
				return f
			},
			wantErr: ErrChecksum,
		},
		{
			name: "corrupted parity byte",
			mutate: func(f []byte) []byte {
				f[13] ^= 0x01
				return f
			},
			wantErr: ErrChecksum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := append([]byte(nil), valid...)
			rec, err := ADSB(tt.mutate(frame))
			assert.Nil(t, rec)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsDecodeError(err))
		})
	}
}

func TestADSBUnsupportedSubtypes(t *testing.T) {
	// Airborne velocity over ground (subtype 3) is not supported.
	_, err := ADSB(velocityFrame(3, 0, 10, 0, 10, 0, 1))
	require.ErrorIs(t, err, ErrSubtype)

	// Type code 0 has no decoder.
	var me [7]byte
	_, err = ADSB(buildADSBFrame(me))
	require.ErrorIs(t, err, ErrSubtype)
}

func TestDecodeAltitude(t *testing.T) {
	assert.InDelta(t, 38000*0.3048, decodeAltitude(0b110000111000), 0.001)
}

func TestDecodeVerticalSpeed(t *testing.T) {
	assert.InDelta(t, -832.0*0.3048, decodeVerticalSpeed(1, 14), 0.01)
	assert.InDelta(t, -2304.0*0.3048, decodeVerticalSpeed(1, 37), 0.01)
	assert.InDelta(t, 832.0*0.3048, decodeVerticalSpeed(0, 14), 0.01)
}

func TestDecodeSpeedDirection(t *testing.T) {
	speed, direction, err := decodeSpeedDirection(1, 1, 9, 1, 160)
	require.NoError(t, err)
	assert.InDelta(t, 159.20*0.514444, speed, 0.01)
	assert.InDelta(t, 182.88, direction, 0.01)

	_, _, err = decodeSpeedDirection(4, 0, 1, 0, 1)
	require.ErrorIs(t, err, ErrSubtype)
}

func TestNumberOfLongitudeZones(t *testing.T) {
	assert.Equal(t, 59.0, nl(0))
	assert.Equal(t, 2.0, nl(87))
	assert.Equal(t, 2.0, nl(-87))
}

func TestDecodeCPR(t *testing.T) {
	lat, lon, ok := DecodeCPR(
		0b10110101101001000, 0b01100100010101100,
		0b10010000110101110, 0b01100010000010010)
	require.True(t, ok)
	assert.InDelta(t, 52.25720214843750, lat, 0.0000001)
	assert.InDelta(t, 3.91937, lon, 0.0001)
}

func TestDecodeCPRZoneMismatch(t *testing.T) {
	// This pair resolves to even/odd latitudes of 51.870 and 51.921, which
	// straddle the longitude zone transition near 51.898 and so cannot be
	// combined.
	_, _, ok := DecodeCPR(84541, 0, 66716, 0)
	assert.False(t, ok)
}
