package srtp

import (
	"net"
	"sync"

	"github.com/pion/logging"
)

// Conn-based session plumbing shared by SessionSRTP and SessionSRTCP.
// A session owns a local engine Session (any-outbound template) for
// protecting writes and a remote engine Session (any-inbound template)
// for unprotecting reads; a reader goroutine demuxes decrypted packets
// into per-SSRC read streams.

type streamSession interface {
	Close() error
	write(b []byte) (int, error)
	decrypt(b []byte) error
}

type readStream interface {
	init(child streamSession, ssrc uint32) error
	write(buf []byte) (int, error)
	GetSSRC() uint32
}

type session struct {
	localSessionMutex sync.Mutex
	localSession      *Session
	remoteSession     *Session

	newStream chan readStream

	started chan interface{}
	closed  chan interface{}

	readStreamsClosed bool
	readStreams       map[uint32]readStream
	readStreamsLock   sync.Mutex

	log      logging.LeveledLogger
	nextConn net.Conn
}

func (s *session) getOrCreateReadStream(ssrc uint32, child streamSession, proto func() readStream) (readStream, bool) {
	s.readStreamsLock.Lock()
	defer s.readStreamsLock.Unlock()

	if s.readStreamsClosed {
		return nil, false
	}

	r, ok := s.readStreams[ssrc]
	if ok {
		return r, false
	}

	r = proto()
	if err := r.init(child, ssrc); err != nil {
		return nil, false
	}
	s.readStreams[ssrc] = r
	return r, true
}

func (s *session) removeReadStream(ssrc uint32) {
	s.readStreamsLock.Lock()
	defer s.readStreamsLock.Unlock()

	if s.readStreamsClosed {
		return
	}
	delete(s.readStreams, ssrc)
}

func (s *session) start(config *Config, child streamSession) error {
	localPolicy, remotePolicy, err := config.enginePolicies()
	if err != nil {
		return err
	}

	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	s.log = loggerFactory.NewLogger("srtp")

	opts := []SessionOption{WithLoggerFactory(loggerFactory)}
	if config.OnEvent != nil {
		opts = append(opts, WithEventHandler(config.OnEvent))
	}

	if s.localSession, err = CreateSession([]*Policy{localPolicy}, opts...); err != nil {
		return err
	}
	if s.remoteSession, err = CreateSession([]*Policy{remotePolicy}, opts...); err != nil {
		return err
	}

	go func() {
		defer func() {
			close(s.newStream)

			s.readStreamsLock.Lock()
			s.readStreamsClosed = true
			s.readStreamsLock.Unlock()
			close(s.closed)
		}()

		b := make([]byte, 8192)
		for {
			i, readErr := s.nextConn.Read(b)
			if readErr != nil {
				return
			}

			if decryptErr := child.decrypt(b[:i]); decryptErr != nil {
				s.log.Infof("failed to handle incoming packet: %v", decryptErr)
			}
		}
	}()

	close(s.started)
	return nil
}

func (s *session) close() error {
	if s.nextConn == nil {
		return nil
	}
	if err := s.nextConn.Close(); err != nil {
		return err
	}
	<-s.closed
	return nil
}
