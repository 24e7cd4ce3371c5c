package flow

// report.go holds the reporting-surface pure functions spec.md §6 calls out:
// address-to-text conversion and the port->service-name table. Both are
// deterministic and side-effect-free so a host can reuse them outside of a
// Tracker (e.g. to render a TopPorts result).

// FormatIPv4 renders a network-order uint32 IPv4 address as dotted-quad text,
// e.g. 0x0A000001 -> "10.0.0.1". It is the exact inverse of the decoding
// PacketParser performs, so round-tripping an address through Parse then
// FormatIPv4 always reproduces the original text form.
func FormatIPv4(ip uint32) string {
	buf := make([]byte, 0, 15)
	buf = appendByte(buf, byte(ip>>24))
	buf = append(buf, '.')
	buf = appendByte(buf, byte(ip>>16))
	buf = append(buf, '.')
	buf = appendByte(buf, byte(ip>>8))
	buf = append(buf, '.')
	buf = appendByte(buf, byte(ip))
	return string(buf)
}

func appendByte(buf []byte, b byte) []byte {
	if b >= 100 {
		buf = append(buf, '0'+b/100)
		b %= 100
		buf = append(buf, '0'+b/10, '0'+b%10)
	} else if b >= 10 {
		buf = append(buf, '0'+b/10, '0'+b%10)
	} else {
		buf = append(buf, '0'+b)
	}
	return buf
}

// wellKnownPorts mirrors the service-name table from the original sniffer's
// statistics surface: a small, fixed lookup used only for display, never for
// protocol classification (ProtocolDetector's port-hint fallback keeps its
// own table in detector.go so the two concerns stay independently testable).
var wellKnownPorts = map[uint16]string{
	20:    "FTP-DATA",
	21:    "FTP",
	22:    "SSH",
	23:    "TELNET",
	25:    "SMTP",
	53:    "DNS",
	67:    "DHCP",
	68:    "DHCP",
	80:    "HTTP",
	110:   "POP3",
	123:   "NTP",
	143:   "IMAP",
	161:   "SNMP",
	162:   "SNMP",
	389:   "LDAP",
	443:   "HTTPS",
	445:   "SMB",
	993:   "IMAPS",
	995:   "POP3S",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	6379:  "Redis",
	8080:  "HTTP-ALT",
	8443:  "HTTPS-ALT",
	27017: "MongoDB",
}

// ServiceName returns a human-readable label for a well-known port, or the
// empty string if the port has no entry.
func ServiceName(port uint16) string {
	return wellKnownPorts[port]
}
