package flow

import "fmt"

// FlowKey is the canonical identifier of a bidirectional conversation. It is
// stored in the orientation of the first packet observed for the
// conversation — it is deliberately not lexicographically normalized, since
// the directional counters in FlowStats depend on knowing which endpoint was
// seen first as "source".
//
// All five fields participate in equality and hashing; FlowKey is a plain
// comparable struct so it can be used directly as a map key.
type FlowKey struct {
	SrcIP    uint32
	DstIP    uint32
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// IsToServer reports whether a packet whose source tuple is (srcIP, srcPort)
// is traveling toward the endpoint this key recorded as the destination
// ("server") at flow-creation time.
func (k FlowKey) IsToServer(srcIP uint32, srcPort uint16) bool {
	return srcIP == k.SrcIP && srcPort == k.SrcPort
}

// String renders the key as "srcIP:srcPort->dstIP:dstPort/proto", useful for
// log fields; it is not used anywhere on the hot path.
func (k FlowKey) String() string {
	return fmt.Sprintf("%s:%d->%s:%d/%d", FormatIPv4(k.SrcIP), k.SrcPort, FormatIPv4(k.DstIP), k.DstPort, k.Protocol)
}
