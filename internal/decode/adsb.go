package decode

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

// ADSBFrameSize is the fixed length of an extended squitter frame.
const ADSBFrameSize = 14

// adsbDownlinkFormat is the downlink format of extended squitter messages.
const adsbDownlinkFormat = 17

// adsbCharset maps the 6-bit character codes of an aircraft identification
// message. '#' marks reserved codes.
const adsbCharset = "#ABCDEFGHIJKLMNOPQRSTUVWXYZ##### ###############0123456789######"

// ADSB decodes a raw 14-byte ADS-B extended squitter frame.
//
// The frame's CRC-24 parity is recomputed and compared before any field is
// read. Position messages yield raw CPR fields; resolving them to a geodetic
// position requires the opposite-parity report and happens upstream.
func ADSB(raw []byte) (*models.Record, error) {
	if len(raw) != ADSBFrameSize {
		return nil, fmt.Errorf("%w: ads-b frame must be %d bytes, got %d", ErrSize, ADSBFrameSize, len(raw))
	}

	if df := raw[0] >> 3; df != adsbDownlinkFormat {
		return nil, fmt.Errorf("%w: downlink format %d is not extended squitter", ErrFraming, df)
	}

	parity := uint32(raw[11])<<16 | uint32(raw[12])<<8 | uint32(raw[13])
	if sum := crc24(raw[:11]); sum != parity {
		return nil, fmt.Errorf("%w: computed %06x, frame carries %06x", ErrChecksum, sum, parity)
	}

	rec := &models.Record{
		Protocol:   models.ProtocolADSB,
		Source:     fmt.Sprintf("%06x", uint32(raw[1])<<16|uint32(raw[2])<<8|uint32(raw[3])),
		Checksum:   parity,
		Payload:    append([]byte(nil), raw...),
		CapturedAt: time.Now().UTC(),
	}

	tc := raw[4] >> 3
	switch {
	case tc >= 1 && tc <= 4:
		rec.Kind = models.KindIdentification
		rec.Callsign = decodeCallsign(raw)

	case tc >= 9 && tc <= 18:
		rec.Kind = models.KindPosition
		cpr := &models.CPRPosition{
			Odd:    meBits(raw, 21, 1) == 1,
			LatCPR: meBits(raw, 22, 17),
			LonCPR: meBits(raw, 39, 17),
		}
		if alt := meBits(raw, 8, 12); alt != 0 {
			cpr.AltitudeMeters = decodeAltitude(alt)
			cpr.AltitudeKnown = true
		}
		rec.CPR = cpr

	case tc == 19:
		st := meBits(raw, 5, 3)
		speed, track, err := decodeSpeedDirection(st,
			meBits(raw, 13, 1), meBits(raw, 14, 10),
			meBits(raw, 24, 1), meBits(raw, 25, 10))
		if err != nil {
			return nil, err
		}
		rec.Kind = models.KindVelocity
		rec.Velocity = &models.Velocity{
			GroundSpeedMps:   speed,
			TrackDegrees:     track,
			VerticalSpeedMps: decodeVerticalSpeed(meBits(raw, 36, 1), meBits(raw, 37, 9)),
		}

	default:
		return nil, fmt.Errorf("%w: type code %d", ErrSubtype, tc)
	}

	return rec, nil
}

// crc24 computes the Mode S CRC-24 (generator 0xFFF409) over data.
func crc24(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc ^= uint32(b) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x1000000 != 0 {
				crc ^= 0xFFF409
			}
		}
	}
	return crc & 0xFFFFFF
}

// meBits extracts length bits of the ME field starting at the given bit
// offset. Bit 0 is the most significant bit of frame byte 4.
func meBits(frame []byte, start, length uint) uint32 {
	var v uint32
	for i := uint(0); i < length; i++ {
		bit := start + i
		v = v<<1 | uint32((frame[4+bit/8]>>(7-bit%8))&1)
	}
	return v
}

// decodeAltitude converts the 12-bit encoded barometric altitude to meters.
// Bit 48 of the frame selects 25 ft or 100 ft increments.
func decodeAltitude(alt uint32) float64 {
	coefFt := uint32(100)
	if alt&0x010 != 0 {
		coefFt = 25
	}
	// Drop the Q-bit from the altitude field.
	n := (alt&0xFE0)>>1 | alt&0xF
	return 0.3048 * (float64(n*coefFt) - 1000)
}

// decodeSpeedDirection converts the east/west and north/south velocity
// components of an airborne velocity message to ground speed in m/s and a
// track angle in degrees clockwise from north. Only ground speed subtypes
// (1 and 2) are supported.
func decodeSpeedDirection(st, ewSign, ewVel, nsSign, nsVel uint32) (float64, float64, error) {
	var vx, vy int32
	switch st {
	case 1:
		vx, vy = int32(ewVel)-1, int32(nsVel)-1
	case 2:
		vx, vy = 4*(int32(ewVel)-1), 4*(int32(nsVel)-1)
	default:
		return 0, 0, fmt.Errorf("%w: airborne velocity subtype %d", ErrSubtype, st)
	}
	if ewSign == 1 {
		vx = -vx
	}
	if nsSign == 1 {
		vy = -vy
	}

	speedKnots := math.Hypot(float64(vx), float64(vy))
	direction := math.Atan2(float64(vx), float64(vy)) * 180 / math.Pi
	if direction < 0 {
		direction += 360
	}
	return speedKnots * 0.514444, direction, nil
}

// decodeVerticalSpeed converts the encoded vertical rate (64 ft/s units,
// sign bit 1 meaning descent) to m/s.
func decodeVerticalSpeed(sign, value uint32) float64 {
	ftps := 64 * (int32(value) - 1)
	if sign == 1 {
		ftps = -ftps
	}
	return float64(ftps) * 0.3048
}

// decodeCallsign extracts the 8-character callsign of an aircraft
// identification message, trimming padding.
func decodeCallsign(frame []byte) string {
	var sb strings.Builder
	for i := uint(0); i < 8; i++ {
		c := adsbCharset[meBits(frame, 8+6*i, 6)]
		if c == '#' {
			continue
		}
		sb.WriteByte(c)
	}
	return strings.TrimSpace(sb.String())
}

// DecodeCPR resolves an even/odd compact position report pair to geodetic
// latitude and longitude. The even report is the trigger; ok is false when
// the pair straddles two latitude zones and cannot be combined.
func DecodeCPR(latEven, lonEven, latOdd, lonOdd uint32) (lat, lon float64, ok bool) {
	const scale = 131072.0 // 2^17

	le, oe := float64(latEven)/scale, float64(lonEven)/scale
	lo, oo := float64(latOdd)/scale, float64(lonOdd)/scale

	latIndex := math.Floor(59*le - 60*lo + 0.5)
	const dlatEven = 360.0 / 60
	const dlatOdd = 360.0 / 59

	latE := dlatEven * (le + modulus(latIndex, 60))
	latO := dlatOdd * (lo + modulus(latIndex, 59))
	if latE >= 270 {
		latE -= 360
	}
	if latO >= 270 {
		latO -= 360
	}

	nlE, nlO := nl(latE), nl(latO)
	if nlE != nlO {
		return 0, 0, false
	}

	ni := nlE
	if ni < 1 {
		ni = 1
	}
	dlon := 360.0 / ni
	m := math.Floor(oe*(nlE-1) - oo*nlE + 0.5)
	lon = dlon * (modulus(m, ni) + oe)
	if lon >= 180 {
		lon -= 360
	}

	// The even report is the trigger, so its latitude wins.
	return latE, lon, true
}

func modulus(x, y float64) float64 {
	return x - y*math.Floor(x/y)
}

// nl computes the number of longitude zones for a latitude angle, assuming
// 15 zones for Mode S CPR encoding.
func nl(lat float64) float64 {
	const nz = 30.0 // NZ * 2

	a := 1 - math.Cos(math.Pi/nz)
	b := (1 + math.Cos(2*math.Pi*lat/180)) / 2
	denominator := 1 - a/b

	// acos is undefined outside [-1, 1]
	denominator = math.Min(1, math.Max(-1, denominator))

	return math.Floor(2 * math.Pi / math.Acos(denominator))
}
