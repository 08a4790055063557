package bus

import "github.com/airtrace-systems/airtrace-telemetry/internal/models"

// Subject constants for the telemetry message bus.
// Follow the pattern: telemetry.{protocol}.
const (
	SubjectADSB        = "telemetry.adsb"
	SubjectMAVLinkADSB = "telemetry.mavlink.adsb"
	SubjectRemoteID    = "telemetry.netrid"
)

// SubjectFor returns the bus subject for records of the given protocol.
func SubjectFor(protocol models.Protocol) string {
	switch protocol {
	case models.ProtocolADSB:
		return SubjectADSB
	case models.ProtocolMAVLinkADSB:
		return SubjectMAVLinkADSB
	case models.ProtocolRemoteID:
		return SubjectRemoteID
	default:
		return ""
	}
}
