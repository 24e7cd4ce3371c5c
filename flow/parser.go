package flow

import (
	"encoding/binary"
	"errors"
)

// Reasons a frame fails to parse, per spec.md §7. Each is a distinct
// sentinel so callers/tests can discriminate with errors.Is instead of
// string matching.
var (
	ErrFrameTooShort       = errors.New("flow: frame shorter than an Ethernet header")
	ErrUnsupportedEtherType = errors.New("flow: unsupported EtherType (only IPv4 is decoded)")
	ErrBadIPVersion        = errors.New("flow: IP header is not version 4")
	ErrBadIHL              = errors.New("flow: IPv4 header length (IHL) invalid or frame truncated")
	ErrTruncatedTransport  = errors.New("flow: transport header truncated")
)

// ParseError wraps one of the sentinels above. It exists so a future
// addition (e.g. a per-reason counter) has a concrete type to hang off of,
// without changing the errors.Is behavior callers already rely on.
type ParseError struct {
	Reason error
}

func (e *ParseError) Error() string { return e.Reason.Error() }
func (e *ParseError) Unwrap() error { return e.Reason }

func parseFail(reason error) *ParseError { return &ParseError{Reason: reason} }

const (
	ethHeaderLen   = 14
	ethTypeIPv4    = 0x0800
	minIPv4HeaderLen = 20
	protoTCP       = 6
	protoUDP       = 17
)

// ParsedPacket is the decoded result of a single frame: the canonical
// FlowKey for the conversation it belongs to, where its application payload
// starts/ends within the original byte slice, and — for TCP — the flag byte
// plus sequence/ack/window fields observed on this segment.
type ParsedPacket struct {
	FlowKey FlowKey

	PayloadOffset int
	PayloadLen    int

	IsTCP bool
	IsUDP bool

	TCPFlags  uint8
	TCPSeq    uint32
	TCPAck    uint32
	TCPWindow uint16
}

// Payload returns the packet's application-layer bytes, sliced out of the
// original frame passed to Parse.
func (p *ParsedPacket) Payload(frame []byte) []byte {
	if p.PayloadOffset+p.PayloadLen > len(frame) {
		return nil
	}
	return frame[p.PayloadOffset : p.PayloadOffset+p.PayloadLen]
}

// PacketParser decodes a raw Ethernet II frame's link/IP/transport headers
// into a ParsedPacket. It holds no state and never copies frame bytes —
// Parse only reads from the caller's byte slice. It is not allocation-free:
// each call returns a newly allocated *ParsedPacket, or a newly allocated
// *ParseError on failure.
type PacketParser struct{}

// Parse implements the algorithm in spec.md §4.1. VLAN tags and any
// EtherType other than IPv4 (0x0800) are rejected; there is no IP fragment
// reassembly and no IPv6 support, per spec.md §1's non-goals.
func (PacketParser) Parse(frame []byte) (*ParsedPacket, error) {
	if len(frame) < ethHeaderLen {
		return nil, parseFail(ErrFrameTooShort)
	}

	etherType := binary.BigEndian.Uint16(frame[12:14])
	if etherType != ethTypeIPv4 {
		return nil, parseFail(ErrUnsupportedEtherType)
	}

	ipStart := ethHeaderLen
	if len(frame) < ipStart+minIPv4HeaderLen {
		return nil, parseFail(ErrBadIHL)
	}

	versionIHL := frame[ipStart]
	version := versionIHL >> 4
	ihl := int(versionIHL & 0x0F)
	if version != 4 {
		return nil, parseFail(ErrBadIPVersion)
	}
	if ihl < 5 {
		return nil, parseFail(ErrBadIHL)
	}

	ipHeaderLen := ihl * 4
	payloadOffset := ipStart + ipHeaderLen
	if payloadOffset > len(frame) {
		return nil, parseFail(ErrBadIHL)
	}

	protocol := frame[ipStart+9]
	srcIP := binary.BigEndian.Uint32(frame[ipStart+12 : ipStart+16])
	dstIP := binary.BigEndian.Uint32(frame[ipStart+16 : ipStart+20])

	pkt := &ParsedPacket{
		FlowKey: FlowKey{
			SrcIP:    srcIP,
			DstIP:    dstIP,
			Protocol: protocol,
		},
		PayloadOffset: payloadOffset,
		PayloadLen:    len(frame) - payloadOffset,
	}

	switch protocol {
	case protoTCP:
		if err := parseTCP(frame, payloadOffset, pkt); err != nil {
			return nil, err
		}
	case protoUDP:
		if err := parseUDP(frame, payloadOffset, pkt); err != nil {
			return nil, err
		}
	}

	return pkt, nil
}

func parseTCP(frame []byte, tcpStart int, pkt *ParsedPacket) error {
	const minTCPHeaderLen = 20
	if len(frame) < tcpStart+minTCPHeaderLen {
		return parseFail(ErrTruncatedTransport)
	}

	dataOffset := int(frame[tcpStart+12]>>4) * 4
	if dataOffset < minTCPHeaderLen || tcpStart+dataOffset > len(frame) {
		return parseFail(ErrTruncatedTransport)
	}

	pkt.IsTCP = true
	pkt.FlowKey.SrcPort = binary.BigEndian.Uint16(frame[tcpStart : tcpStart+2])
	pkt.FlowKey.DstPort = binary.BigEndian.Uint16(frame[tcpStart+2 : tcpStart+4])
	pkt.TCPSeq = binary.BigEndian.Uint32(frame[tcpStart+4 : tcpStart+8])
	pkt.TCPAck = binary.BigEndian.Uint32(frame[tcpStart+8 : tcpStart+12])
	pkt.TCPFlags = frame[tcpStart+13]
	pkt.TCPWindow = binary.BigEndian.Uint16(frame[tcpStart+14 : tcpStart+16])

	pkt.PayloadOffset = tcpStart + dataOffset
	pkt.PayloadLen = len(frame) - pkt.PayloadOffset
	return nil
}

func parseUDP(frame []byte, udpStart int, pkt *ParsedPacket) error {
	const udpHeaderLen = 8
	if len(frame) < udpStart+udpHeaderLen {
		return parseFail(ErrTruncatedTransport)
	}

	pkt.IsUDP = true
	pkt.FlowKey.SrcPort = binary.BigEndian.Uint16(frame[udpStart : udpStart+2])
	pkt.FlowKey.DstPort = binary.BigEndian.Uint16(frame[udpStart+2 : udpStart+4])

	pkt.PayloadOffset = udpStart + udpHeaderLen
	pkt.PayloadLen = len(frame) - pkt.PayloadOffset
	return nil
}
