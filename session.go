package srtp

// Stream registry. A session owns a set of concrete streams keyed by
// SSRC plus at most one wildcard template; packets with an unknown
// SSRC clone the template on first sight. Sessions are single-writer:
// callers serialize all operations on one session, distinct sessions
// are independent.

import (
	"github.com/pion/logging"
)

// Session is the top-level engine object.
type Session struct {
	streams      map[uint32]*stream
	template     *stream
	eventHandler EventHandler
	userData     interface{}
	log          logging.LeveledLogger
	closed       bool
}

// SessionOption configures a Session at creation time.
type SessionOption func(*Session)

// WithLoggerFactory routes engine logging through f.
func WithLoggerFactory(f logging.LoggerFactory) SessionOption {
	return func(s *Session) {
		s.log = f.NewLogger("srtp")
	}
}

// WithEventHandler installs h as the session's event handler.
func WithEventHandler(h EventHandler) SessionOption {
	return func(s *Session) {
		s.eventHandler = h
	}
}

// CreateSession builds a session from a list of policies, one stream
// (or template) per entry. On any failure the whole session is rolled
// back and the error returned.
func CreateSession(policies []*Policy, opts ...SessionOption) (*Session, error) {
	s := &Session{
		streams: make(map[uint32]*stream),
		log:     logging.NewDefaultLoggerFactory().NewLogger("srtp"),
	}
	for _, o := range opts {
		o(s)
	}
	for _, p := range policies {
		if err := s.AddStream(p); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// SetEventHandler replaces the session's event handler; nil disables
// reporting.
func (s *Session) SetEventHandler(h EventHandler) {
	s.eventHandler = h
}

// SetUserData attaches an opaque value to the session.
func (s *Session) SetUserData(v interface{}) {
	s.userData = v
}

// UserData returns the value attached with SetUserData.
func (s *Session) UserData() interface{} {
	return s.userData
}

// AddStream installs a stream described by p. A specific SSRC becomes
// a concrete stream; a wildcard becomes the session template, of which
// there can be only one. An undefined SSRC type is rejected.
func (s *Session) AddStream(p *Policy) error {
	if s.closed {
		return errSessionClosed
	}
	if p == nil {
		return badParamf("nil policy")
	}

	switch p.SSRC.Type {
	case SSRCSpecific:
		if _, ok := s.streams[p.SSRC.Value]; ok {
			return badParamf("%s (%08x)", errStreamExists, p.SSRC.Value)
		}
	case SSRCAnyInbound, SSRCAnyOutbound:
		if s.template != nil {
			return badParamf("%s", errTemplateExists)
		}
	default:
		return badParamf("undefined SSRC type in policy")
	}

	str, err := newStreamFromPolicy(p)
	if err != nil {
		return err
	}

	switch p.SSRC.Type {
	case SSRCSpecific:
		s.streams[p.SSRC.Value] = str
	case SSRCAnyInbound:
		str.direction = streamReceiver
		s.template = str
	case SSRCAnyOutbound:
		str.direction = streamSender
		s.template = str
	}
	return nil
}

// RemoveStream unlinks and tears down the concrete stream for ssrc.
func (s *Session) RemoveStream(ssrc uint32) error {
	if s.closed {
		return errSessionClosed
	}
	str, ok := s.streams[ssrc]
	if !ok {
		return ErrNoContext
	}
	delete(s.streams, ssrc)
	str.close()
	return nil
}

func (s *Session) getStream(ssrc uint32) *stream {
	return s.streams[ssrc]
}

// cloneFromTemplate materializes a concrete stream for ssrc from the
// session template and registers it.
func (s *Session) cloneFromTemplate(ssrc uint32, dir streamDirection) (*stream, error) {
	clone, err := s.template.clone(ssrc)
	if err != nil {
		return nil, err
	}
	clone.direction = dir
	s.streams[ssrc] = clone
	return clone, nil
}

// checkDirection pins an unknown stream to dir, or reports a collision
// event when the stream is already pinned the other way. Processing
// continues either way; the event is the caller's signal to rekey.
func (s *Session) checkDirection(str *stream, dir streamDirection) {
	switch str.direction {
	case streamUnknown:
		str.direction = dir
	case dir:
	default:
		s.handleEvent(EventSSRCCollision, str.ssrc)
	}
}

// updateKeyLimit charges one packet against the stream's key budget
// and turns limit transitions into events. A hard limit is an error.
func (s *Session) updateKeyLimit(str *stream) error {
	switch str.limit.update() {
	case keyEventSoftLimit:
		s.handleEvent(EventKeySoftLimit, str.ssrc)
	case keyEventHardLimit:
		s.handleEvent(EventKeyHardLimit, str.ssrc)
		return ErrKeyExpired
	}
	return nil
}

// Close tears the session down: concrete streams first, the template
// (owner of any shared primitives) last. The first failure would stop
// further cleanup; stream teardown itself cannot fail, so Close only
// reports double closes.
func (s *Session) Close() error {
	if s.closed {
		return errSessionClosed
	}
	s.closed = true
	for ssrc, str := range s.streams {
		str.close()
		delete(s.streams, ssrc)
	}
	if s.template != nil {
		s.template.close()
		s.template = nil
	}
	return nil
}
