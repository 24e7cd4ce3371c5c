package flowcore

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonne120/flowcore/internal/config"
)

const (
	pcapMagicMicros = 0xA1B2C3D4
	ethTypeIPv4     = 0x0800
	protoTCP        = 6
)

func buildSynFrame() []byte {
	eth := make([]byte, 14)
	binary.BigEndian.PutUint16(eth[12:14], ethTypeIPv4)

	ip := make([]byte, 20)
	ip[0] = byte(4<<4 | 5)
	ip[9] = protoTCP
	binary.BigEndian.PutUint32(ip[12:16], 0x0A000001)
	binary.BigEndian.PutUint32(ip[16:20], 0x0A000002)

	tcp := make([]byte, 20)
	binary.BigEndian.PutUint16(tcp[0:2], 51000)
	binary.BigEndian.PutUint16(tcp[2:4], 80)
	tcp[12] = byte(5 << 4)
	tcp[13] = 0x02 // SYN
	binary.BigEndian.PutUint16(tcp[14:16], 65535)

	frame := append(eth, ip...)
	frame = append(frame, tcp...)
	return frame
}

func writeTestPcap(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	header := struct {
		MagicNumber  uint32
		VersionMajor uint16
		VersionMinor uint16
		ThisZone     int32
		SigFigs      uint32
		SnapLen      uint32
		Network      uint32
	}{
		MagicNumber:  pcapMagicMicros,
		VersionMajor: 2,
		VersionMinor: 4,
		SnapLen:      65535,
		Network:      1, // LINKTYPE_ETHERNET
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, header))

	frame := buildSynFrame()
	pktHeader := struct {
		TsSec  uint32
		TsUsec uint32
		CapLen uint32
		Len    uint32
	}{
		TsSec:  1_700_000_000,
		CapLen: uint32(len(frame)),
		Len:    uint32(len(frame)),
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, pktHeader))
	_, err := buf.Write(frame)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "capture.pcap")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// withDefaultConfig sets the package-level cfg used by stats/top/clear's
// RunE bodies without going through PersistentPreRunE, the way a unit test
// below cobra's own flag-parsing layer would.
func withDefaultConfig(t *testing.T) {
	t.Helper()
	c, err := config.Load("")
	require.NoError(t, err)
	cfg = c
}

func TestStatsCmd_PrintsCaptureAndProtocolStats(t *testing.T) {
	withDefaultConfig(t)
	path := writeTestPcap(t)

	root := &cobra.Command{Use: "flowcore"}
	root.AddCommand(statsCmd)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"stats", path})

	require.NoError(t, root.Execute())
	out := buf.String()
	assert.Contains(t, out, "capture statistics:")
	assert.Contains(t, out, "packets_processed   1")
	assert.Contains(t, out, "protocol stats:")
}

func TestTopCmd_PrintsRequestedView(t *testing.T) {
	withDefaultConfig(t)
	path := writeTestPcap(t)

	root := &cobra.Command{Use: "flowcore"}
	root.AddCommand(topCmd)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"top", "sources", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "10.0.0.1")
}

func TestTopCmd_RejectsUnknownView(t *testing.T) {
	withDefaultConfig(t)
	path := writeTestPcap(t)

	root := &cobra.Command{Use: "flowcore"}
	root.AddCommand(topCmd)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"top", "bogus", path})

	err := root.Execute()
	assert.Error(t, err)
}

func TestClearCmd_PreservesCumulativeTotalsAcrossClear(t *testing.T) {
	withDefaultConfig(t)
	path := writeTestPcap(t)

	root := &cobra.Command{Use: "flowcore"}
	root.AddCommand(clearCmd)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"clear", path})

	require.NoError(t, root.Execute())
	out := buf.String()
	assert.Contains(t, out, "before clear: flows=1 packets_processed=1")
	assert.Contains(t, out, "after clear:  flows=0 packets_processed=1")
}
