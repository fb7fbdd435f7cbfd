package metrics

// Direction distinguishes traffic the sidecar accepted on behalf of the
// local workload (Inbound) from traffic the local workload is issuing
// outward (Outbound). The same authority can carry distinct metrics
// records for each direction.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Target is the concrete target key (K) this module's Registry is keyed
// on: the routed authority plus the direction it was observed in. It is a
// plain comparable struct, making it a valid Go map key — the direct
// analogue of "hashable, equatable" the original target key requires.
type Target struct {
	Authority string
	Direction Direction
}
