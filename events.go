package srtp

// Event identifies an exceptional condition observed on a stream.
type Event int

const (
	// EventSSRCCollision fires when a stream pinned to one direction is
	// used in the other.
	EventSSRCCollision Event = iota

	// EventKeySoftLimit fires once when a stream's key-usage budget
	// drops into the soft-limit zone.
	EventKeySoftLimit

	// EventKeyHardLimit fires when the key-usage budget is exhausted.
	EventKeyHardLimit

	// EventPacketIndexLimit fires when a packet index counter would
	// overflow its space.
	EventPacketIndexLimit
)

func (e Event) String() string {
	switch e {
	case EventSSRCCollision:
		return "ssrc_collision"
	case EventKeySoftLimit:
		return "key_soft_limit"
	case EventKeyHardLimit:
		return "key_hard_limit"
	case EventPacketIndexLimit:
		return "packet_index_limit"
	}
	return "unknown"
}

// EventHandler receives engine events together with the SSRC of the
// affected stream. A nil handler disables reporting.
type EventHandler func(event Event, ssrc uint32)

func (s *Session) handleEvent(e Event, ssrc uint32) {
	s.log.Debugf("event %v on ssrc %08x", e, ssrc)
	if s.eventHandler != nil {
		s.eventHandler(e, ssrc)
	}
}
