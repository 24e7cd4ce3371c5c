package flow

import "bytes"

// AppProtocol is the label ProtocolDetector assigns to a flow.
type AppProtocol int

const (
	ProtoUnknown AppProtocol = iota
	ProtoHTTP
	ProtoTLS
	ProtoDNS
	ProtoSSH
	ProtoSMTP
	ProtoFTP
	ProtoPOP3
	ProtoIMAP
)

func (p AppProtocol) String() string {
	switch p {
	case ProtoHTTP:
		return "HTTP"
	case ProtoTLS:
		return "TLS"
	case ProtoDNS:
		return "DNS"
	case ProtoSSH:
		return "SSH"
	case ProtoSMTP:
		return "SMTP"
	case ProtoFTP:
		return "FTP"
	case ProtoPOP3:
		return "POP3"
	case ProtoIMAP:
		return "IMAP"
	default:
		return "UNKNOWN"
	}
}

// classifyTerminal is the confidence at which ProtocolDetector stops
// re-examining a flow entirely (spec.md §4.4: "classification stops for a
// flow once confidence >= 95").
const classifyTerminal = 95

// classifyLocked is the confidence at which a label is considered settled
// enough that only a strictly higher-confidence signal may replace it
// (spec.md §4.4's monotonicity rule).
const classifyLocked = 80

var httpPrefixes = [][]byte{
	[]byte("GET "), []byte("POST "), []byte("HEAD "), []byte("PUT "),
	[]byte("DELETE "), []byte("OPTIONS "), []byte("HTTP/"),
}

// ProtocolDetector inspects early payload bytes and produces an
// (AppProtocol, confidence) verdict. It is stateless and side-effect-free —
// callers own the monotonicity bookkeeping (see Tracker.classify) — which
// keeps Detect trivially safe to call from multiple goroutines without
// synchronization.
type ProtocolDetector struct{}

// Detect examines the payload of a single packet, along with whether the
// flow is UDP (needed for the DNS heuristic) and whether the payload is
// server-initiated (needed for the banner-based heuristics), and returns a
// protocol guess. A zero confidence return means "no signal"; callers
// should leave the flow's existing classification untouched in that case.
func (ProtocolDetector) Detect(payload []byte, isUDP, fromServer bool, dstPort uint16) (AppProtocol, int) {
	if proto, conf := detectSSH(payload); conf > 0 {
		return proto, conf
	}
	if proto, conf := detectTLS(payload); conf > 0 {
		return proto, conf
	}
	if proto, conf := detectHTTP(payload); conf > 0 {
		return proto, conf
	}
	if isUDP {
		if proto, conf := detectDNS(payload); conf > 0 {
			return proto, conf
		}
	}
	if fromServer {
		if proto, conf := detectServerBanner(payload); conf > 0 {
			return proto, conf
		}
	}
	if proto, conf := portHint(dstPort); conf > 0 {
		return proto, conf
	}
	return ProtoUnknown, 0
}

func detectHTTP(payload []byte) (AppProtocol, int) {
	for _, prefix := range httpPrefixes {
		if bytes.HasPrefix(payload, prefix) {
			return ProtoHTTP, 90
		}
	}
	return ProtoUnknown, 0
}

func detectTLS(payload []byte) (AppProtocol, int) {
	if len(payload) >= 2 && payload[0] == 0x16 && payload[1] == 0x03 {
		return ProtoTLS, 95
	}
	return ProtoUnknown, 0
}

func detectSSH(payload []byte) (AppProtocol, int) {
	if bytes.HasPrefix(payload, []byte("SSH-")) {
		return ProtoSSH, 95
	}
	return ProtoUnknown, 0
}

func detectDNS(payload []byte) (AppProtocol, int) {
	if len(payload) < 12 {
		return ProtoUnknown, 0
	}
	qdcount := uint16(payload[4])<<8 | uint16(payload[5])
	if qdcount == 0 {
		return ProtoUnknown, 0
	}
	flags := uint16(payload[2])<<8 | uint16(payload[3])
	opcode := (flags >> 11) & 0x0F
	if opcode > 5 {
		return ProtoUnknown, 0
	}
	return ProtoDNS, 85
}

func detectServerBanner(payload []byte) (AppProtocol, int) {
	switch {
	case bytes.HasPrefix(payload, []byte("220 ")) || bytes.HasPrefix(payload, []byte("HELO")) || bytes.HasPrefix(payload, []byte("EHLO")) || bytes.HasPrefix(payload, []byte("MAIL FROM")):
		return ProtoSMTP, 80
	case bytes.HasPrefix(payload, []byte("220-")) || bytes.HasPrefix(payload, []byte("USER ")) || bytes.HasPrefix(payload, []byte("PASS ")):
		return ProtoFTP, 80
	case bytes.HasPrefix(payload, []byte("+OK")):
		return ProtoPOP3, 80
	case bytes.HasPrefix(payload, []byte("* OK")):
		return ProtoIMAP, 80
	}
	return ProtoUnknown, 0
}

var portHints = map[uint16]AppProtocol{
	80:   ProtoHTTP,
	443:  ProtoTLS,
	22:   ProtoSSH,
	25:   ProtoSMTP,
	21:   ProtoFTP,
	110:  ProtoPOP3,
	143:  ProtoIMAP,
	53:   ProtoDNS,
	8080: ProtoHTTP,
	8443: ProtoTLS,
}

// portHint is the lowest-priority signal: a well-known destination port with
// no payload evidence at all. It is also the Open Question resolution from
// spec.md §9 — see DESIGN.md — it never raises a flow's confidence past 50,
// so it can never lock classification the way a >=80-confidence payload
// signal can.
func portHint(dstPort uint16) (AppProtocol, int) {
	if proto, ok := portHints[dstPort]; ok {
		return proto, 50
	}
	return ProtoUnknown, 0
}
