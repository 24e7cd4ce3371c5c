package flow

// TcpState enumerates the TCP connection states the tracker can passively
// observe. It mirrors the RFC 793 state machine closely enough to be useful
// for display, but only the transitions listed in advanceTCPState are
// modeled — there is no timer-driven state change and no retransmission
// awareness, since the tracker only ever sees traffic that already crossed
// the wire.
type TcpState int

const (
	TCPClosed TcpState = iota
	TCPSynSent
	TCPSynReceived
	TCPEstablished
	TCPFinWait1
	TCPFinWait2
	TCPCloseWait
	TCPLastAck
	TCPTimeWait
	TCPClosing
)

func (s TcpState) String() string {
	switch s {
	case TCPClosed:
		return "CLOSED"
	case TCPSynSent:
		return "SYN_SENT"
	case TCPSynReceived:
		return "SYN_RECEIVED"
	case TCPEstablished:
		return "ESTABLISHED"
	case TCPFinWait1:
		return "FIN_WAIT_1"
	case TCPFinWait2:
		return "FIN_WAIT_2"
	case TCPCloseWait:
		return "CLOSE_WAIT"
	case TCPLastAck:
		return "LAST_ACK"
	case TCPTimeWait:
		return "TIME_WAIT"
	case TCPClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// TCP flag bits, as laid out in the TCP header (offset 13 of a TCP segment).
const (
	TCPFlagFIN uint8 = 0x01
	TCPFlagSYN uint8 = 0x02
	TCPFlagRST uint8 = 0x04
	TCPFlagPSH uint8 = 0x08
	TCPFlagACK uint8 = 0x10
)

// TcpStateTracker advances a flow's TCP snapshot given the flags and
// direction observed on a single segment. It holds no state of its own —
// every method takes the current FlowStats and mutates it in place — so a
// single zero-value TcpStateTracker can be shared across every flow in the
// table without locking.
type TcpStateTracker struct{}

// Observe updates the sticky flags, per-direction seq/ack/window snapshot,
// and tcp_state field on stats for one segment traveling in the given
// direction.
func (TcpStateTracker) Observe(stats *FlowStats, toServer bool, flags uint8, seq, ack uint32, window uint16) {
	syn := flags&TCPFlagSYN != 0
	ackFlag := flags&TCPFlagACK != 0
	fin := flags&TCPFlagFIN != 0
	rst := flags&TCPFlagRST != 0

	if syn && !ackFlag {
		stats.HasSyn = true
	}
	if syn && ackFlag {
		stats.HasSynAck = true
	}
	if fin {
		stats.HasFin = true
	}
	if rst {
		stats.HasRst = true
	}

	if toServer {
		stats.TCPSeqServer = seq
		stats.TCPAckServer = ack
		stats.TCPWindowServer = window
	} else {
		stats.TCPSeqClient = seq
		stats.TCPAckClient = ack
		stats.TCPWindowClient = window
	}

	stats.TCPState = advanceTCPState(stats.TCPState, toServer, syn, ackFlag, fin, rst)
}

// advanceTCPState implements the passive-observation transition table from
// spec.md §4.3. Any flag pattern that doesn't match a transition out of the
// current state leaves the state unchanged — e.g. a flow picked up
// mid-stream stays CLOSED until a recognizable pattern appears.
func advanceTCPState(state TcpState, toServer, syn, ack, fin, rst bool) TcpState {
	if rst {
		return TCPClosed
	}

	switch state {
	case TCPClosed:
		if syn && !ack && toServer {
			return TCPSynSent
		}
	case TCPSynSent:
		if syn && ack && !toServer {
			return TCPSynReceived
		}
	case TCPSynReceived:
		if ack && !syn && toServer {
			return TCPEstablished
		}
	case TCPEstablished:
		if fin && toServer {
			return TCPFinWait1
		}
		if fin && !toServer {
			return TCPCloseWait
		}
	case TCPFinWait1:
		if ack && !toServer {
			return TCPFinWait2
		}
	case TCPFinWait2:
		if fin && !toServer {
			return TCPTimeWait
		}
	case TCPCloseWait:
		if fin && toServer {
			return TCPLastAck
		}
	case TCPLastAck:
		if ack && !toServer {
			return TCPClosed
		}
	}
	return state
}
