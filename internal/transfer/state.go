package transfer

// SenderState represents the current state of the sender in the transfer protocol
type SenderState int

const (
	SenderIdle SenderState = iota
	SenderWaitingPeer
	SenderTransferring
	SenderComplete
	SenderNotReady
	SenderFailed
	SenderClosed
	SenderTimedOut
)

// String returns the string representation of SenderState
func (s SenderState) String() string {
	switch s {
	case SenderIdle:
		return "Idle"
	case SenderWaitingPeer:
		return "WaitingPeer"
	case SenderTransferring:
		return "Transferring"
	case SenderComplete:
		return "Complete"
	case SenderNotReady:
		return "NotReady"
	case SenderFailed:
		return "Failed"
	case SenderClosed:
		return "Closed"
	case SenderTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// ReceiverState represents the current state of the receiver in the transfer protocol
type ReceiverState int

const (
	ReceiverIdle ReceiverState = iota
	ReceiverAwaitingMetadata
	ReceiverReceiving
	ReceiverComplete
	ReceiverClosedBeforeMetadata
	ReceiverClosedIncomplete
	ReceiverError
	ReceiverTimedOut
)

// String returns the string representation of ReceiverState
func (r ReceiverState) String() string {
	switch r {
	case ReceiverIdle:
		return "Idle"
	case ReceiverAwaitingMetadata:
		return "AwaitingMetadata"
	case ReceiverReceiving:
		return "Receiving"
	case ReceiverComplete:
		return "Complete"
	case ReceiverClosedBeforeMetadata:
		return "ClosedBeforeMetadata"
	case ReceiverClosedIncomplete:
		return "ClosedIncomplete"
	case ReceiverError:
		return "Error"
	case ReceiverTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}
