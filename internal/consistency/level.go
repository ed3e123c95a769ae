// Package consistency defines the read/write consistency levels understood
// by the cluster's HTTP API. It has no other dependencies so that both the
// public package and the internal dispatch packages can share one definition
// without creating an import cycle.
package consistency

// Level is one of the three consistency levels the cluster understands.
// Writes are always forced to Strong; reads may ask for any of the three.
type Level int

const (
	// Strong reads are served by the leader through a full consensus round.
	Strong Level = iota
	// Weak reads are served by the leader without a full consensus round.
	Weak
	// None reads may be served by any node within a freshness window and
	// can provoke a "stale read" response that the query layer retries.
	None
)

// String renders the level the way it appears on the wire (?level=...).
func (l Level) String() string {
	switch l {
	case Strong:
		return "strong"
	case Weak:
		return "weak"
	case None:
		return "none"
	default:
		return "weak"
	}
}

// ParseLevel parses the wire representation of a consistency level,
// defaulting to Weak for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "strong":
		return Strong
	case "none":
		return None
	default:
		return Weak
	}
}
