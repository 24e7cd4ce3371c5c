// Package replay feeds a flow.Tracker from a pcap or pcapng capture file,
// standing in for the live-capture transport that spec.md places out of
// scope for the core.
package replay

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/sonne120/flowcore/flow"
)

var pcapngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

// packetDataSource is the common surface pcapgo.Reader and pcapgo.NgReader
// both implement; Reader depends on it instead of either concrete type so
// ReplayInto doesn't care which format was detected at Open time.
type packetDataSource interface {
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
}

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithLinkType sets the link type the Reader records. The recorded value is
// not consulted when replaying: every frame is handed to the tracker as
// Ethernet II.
func WithLinkType(lt layers.LinkType) Option {
	return func(r *Reader) { r.linkType = lt }
}

// Reader replays the frames in a pcap/pcapng capture into a flow.Tracker,
// one at a time, advancing the tracker's clock from each frame's capture
// timestamp. It mirrors the teacher's collector lifecycle (mutex-guarded
// running flag) despite reading a file instead of a live interface, so a
// host can treat both the same way.
type Reader struct {
	mu      sync.Mutex
	running bool

	source   packetDataSource
	linkType layers.LinkType
}

// Open detects whether src holds pcap or pcapng data (by magic bytes) and
// returns a Reader ready to replay it. The Reader's link type is Ethernet
// unless WithLinkType sets another; it is not read from the file header, and
// frames are decoded as Ethernet II whatever the capture's link type is.
func Open(src io.Reader, opts ...Option) (*Reader, error) {
	r := &Reader{linkType: layers.LinkTypeEthernet}
	for _, opt := range opts {
		opt(r)
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(src, magic); err != nil {
		return nil, fmt.Errorf("replay: failed to read magic bytes: %w", err)
	}
	full := io.MultiReader(bytes.NewReader(magic), src)

	if bytes.Equal(magic, pcapngMagic) {
		ngReader, err := pcapgo.NewNgReader(full, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("replay: failed to open pcapng: %w", err)
		}
		r.source = ngReader
		return r, nil
	}

	pcapReader, err := pcapgo.NewReader(full)
	if err != nil {
		return nil, fmt.Errorf("replay: failed to open pcap: %w", err)
	}
	r.source = pcapReader
	return r, nil
}

// ReplayInto feeds every frame in the capture to tracker.ProcessPacket, in
// file order, using each frame's own capture timestamp (converted to
// microseconds) as the call's nowUs. It returns the number of frames fed
// to the tracker and the number that failed to parse.
func (r *Reader) ReplayInto(tracker *flow.Tracker) (fed, parseErrors int, err error) {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	for {
		data, ci, err := r.source.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fed, parseErrors, fmt.Errorf("replay: read packet: %w", err)
		}

		nowUs := uint64(ci.Timestamp.UnixMicro())
		if procErr := tracker.ProcessPacket(data, nowUs); procErr != nil {
			parseErrors++
			continue
		}
		fed++
	}

	return fed, parseErrors, nil
}

// IsRunning reports whether ReplayInto is currently in progress.
func (r *Reader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
