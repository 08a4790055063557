// Package models defines the canonical telemetry record produced by the
// protocol decoders and the wire types of the ingestion API.
package models

import "time"

// Protocol tags the wire format a payload arrived in.
type Protocol string

const (
	ProtocolADSB        Protocol = "adsb"
	ProtocolMAVLinkADSB Protocol = "mavlink_adsb"
	ProtocolRemoteID    Protocol = "remote_id"
)

// Kind classifies the decoded message within its protocol.
type Kind string

const (
	KindIdentification Kind = "identification"
	KindPosition       Kind = "position"
	KindVelocity       Kind = "velocity"
)

// Position is a resolved geodetic position.
type Position struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AltitudeMeters float64 `json:"altitude_meters"`
}

// Velocity is a resolved velocity vector.
type Velocity struct {
	GroundSpeedMps   float64 `json:"ground_speed_mps"`
	TrackDegrees     float64 `json:"track_degrees"`
	VerticalSpeedMps float64 `json:"vertical_speed_mps"`
}

// CPRPosition carries the compact position report fields of an ADS-B
// position message. A single report cannot be resolved to a geodetic
// position on its own; it must be paired with the opposite-parity report
// for the same airframe.
type CPRPosition struct {
	LatCPR         uint32
	LonCPR         uint32
	Odd            bool
	AltitudeMeters float64
	// AltitudeKnown is false when the frame carried the reserved
	// "altitude unavailable" encoding.
	AltitudeKnown bool
}

// Record is the canonical telemetry record. A Record exists only if its
// source payload passed protocol-specific validation (framing, checksum,
// size bounds).
type Record struct {
	Protocol Protocol `json:"protocol"`
	Kind     Kind     `json:"kind"`
	// Source identifies the reporting asset: the ICAO address in lowercase
	// hex for ADS-B family protocols, the UAS identifier or authenticated
	// sender identity for Remote ID.
	Source string `json:"source"`
	// CaptureID is the optional identifier of the receiver that captured
	// the packet, asserted by the caller.
	CaptureID string `json:"capture_id,omitempty"`
	// Sequence is the outer frame sequence number where the protocol
	// carries one (MAVLink).
	Sequence *uint8 `json:"sequence,omitempty"`
	// Checksum is the frame integrity checksum where the protocol carries
	// one (ADS-B CRC-24).
	Checksum uint32 `json:"checksum,omitempty"`

	Callsign string       `json:"callsign,omitempty"`
	Position *Position    `json:"position,omitempty"`
	Velocity *Velocity    `json:"velocity,omitempty"`
	CPR      *CPRPosition `json:"-"`

	Payload    []byte    `json:"payload"`
	CapturedAt time.Time `json:"captured_at"`
}

// CountResponse is the ingestion success body: the post-increment
// observation count for the packet's fingerprint.
type CountResponse struct {
	Count int64 `json:"count"`
}

// TokenResponse is the login success body.
type TokenResponse struct {
	Token string `json:"token"`
}
