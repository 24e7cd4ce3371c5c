package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocolDetector_Detect(t *testing.T) {
	var d ProtocolDetector

	cases := []struct {
		name       string
		payload    []byte
		isUDP      bool
		fromServer bool
		dstPort    uint16
		wantProto  AppProtocol
		wantConf   int
	}{
		{"http get", []byte("GET /index.html HTTP/1.1\r\n"), false, false, 8080, ProtoHTTP, 90},
		{"tls client hello", []byte{0x16, 0x03, 0x01, 0x00, 0x05}, false, false, 9000, ProtoTLS, 95},
		{"ssh banner", []byte("SSH-2.0-OpenSSH_9.3\r\n"), false, true, 22, ProtoSSH, 95},
		{"dns query", append([]byte{0x12, 0x34, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, "rest"...), true, false, 5353, ProtoDNS, 85},
		{"smtp banner", []byte("220 mail.example.com ESMTP\r\n"), false, true, 25, ProtoSMTP, 80},
		{"ftp banner", []byte("220-welcome to FTP\r\n"), false, true, 21, ProtoFTP, 80},
		{"pop3 banner", []byte("+OK POP3 ready\r\n"), false, true, 110, ProtoPOP3, 80},
		{"imap banner", []byte("* OK IMAP4rev1 ready\r\n"), false, true, 143, ProtoIMAP, 80},
		{"port hint only", []byte{0x00, 0x01, 0x02}, false, false, 80, ProtoHTTP, 50},
		{"no signal at all", []byte{0x00, 0x01, 0x02}, false, false, 54321, ProtoUnknown, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			proto, conf := d.Detect(c.payload, c.isUDP, c.fromServer, c.dstPort)
			assert.Equal(t, c.wantProto, proto)
			assert.Equal(t, c.wantConf, conf)
		})
	}
}

func TestProtocolDetector_SSHBeatsPortHint(t *testing.T) {
	var d ProtocolDetector
	proto, conf := d.Detect([]byte("SSH-2.0-libssh\r\n"), false, true, 443)
	assert.Equal(t, ProtoSSH, proto)
	assert.Equal(t, 95, conf)
}
