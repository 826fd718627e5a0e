package srtp

import (
	"fmt"
	"net"
	"sync"

	"github.com/pion/rtcp"
	"github.com/pion/transport/v3/packetio"
)

// SessionSRTCP provides a bi-directional SRTCP session over a
// net.Conn, demuxing inbound compound packets to one read stream per
// destination SSRC.
type SessionSRTCP struct {
	session
	writeStream *WriteStreamSRTCP
}

// NewSessionSRTCP creates an SRTCP session using conn as the
// underlying transport.
func NewSessionSRTCP(conn net.Conn, config *Config) (*SessionSRTCP, error) {
	if config == nil {
		return nil, badParamf("no config provided")
	} else if conn == nil {
		return nil, badParamf("no conn provided")
	}

	s := &SessionSRTCP{
		session: session{
			nextConn:    conn,
			readStreams: map[uint32]readStream{},
			newStream:   make(chan readStream),
			started:     make(chan interface{}),
			closed:      make(chan interface{}),
		},
	}
	s.writeStream = &WriteStreamSRTCP{s}

	if err := s.session.start(config, s); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenWriteStream returns the global write stream for the session.
func (s *SessionSRTCP) OpenWriteStream() (*WriteStreamSRTCP, error) {
	return s.writeStream, nil
}

// OpenReadStream opens a read stream for the given SSRC.
func (s *SessionSRTCP) OpenReadStream(ssrc uint32) (*ReadStreamSRTCP, error) {
	r, _ := s.session.getOrCreateReadStream(ssrc, s, newReadStreamSRTCP)
	if readStream, ok := r.(*ReadStreamSRTCP); ok {
		return readStream, nil
	}
	return nil, fmt.Errorf("failed to open ReadStreamSRTCP, type assertion failed")
}

// AcceptStream returns the read stream for the next inbound SSRC.
func (s *SessionSRTCP) AcceptStream() (*ReadStreamSRTCP, uint32, error) {
	stream, ok := <-s.newStream
	if !ok {
		return nil, 0, errSessionClosed
	}

	readStream, ok := stream.(*ReadStreamSRTCP)
	if !ok {
		return nil, 0, fmt.Errorf("newStream was found, but failed type assertion")
	}
	return readStream, stream.GetSSRC(), nil
}

// Close ends the session.
func (s *SessionSRTCP) Close() error {
	return s.session.close()
}

func (s *SessionSRTCP) write(b []byte) (int, error) {
	if _, ok := <-s.session.started; ok {
		return 0, fmt.Errorf("started channel used incorrectly, should only be closed")
	}

	s.session.localSessionMutex.Lock()
	defer s.session.localSessionMutex.Unlock()

	encrypted, err := s.localSession.ProtectRTCP(append([]byte{}, b...))
	if err != nil {
		return 0, err
	}
	return s.session.nextConn.Write(encrypted)
}

func (s *SessionSRTCP) decrypt(buf []byte) error {
	decrypted, err := s.remoteSession.UnprotectRTCP(append([]byte{}, buf...))
	if err != nil {
		return err
	}

	packets, err := rtcp.Unmarshal(decrypted)
	if err != nil {
		return err
	}

	for _, report := range packets {
		for _, ssrc := range report.DestinationSSRC() {
			r, isNew := s.session.getOrCreateReadStream(ssrc, s, newReadStreamSRTCP)
			if r == nil {
				return nil // Session has been closed
			} else if isNew {
				s.session.newStream <- r // Notify AcceptStream
			}

			if _, err = r.write(decrypted); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadStreamSRTCP handles decrypted RTCP for a single SSRC.
type ReadStreamSRTCP struct {
	mu sync.Mutex

	isInited bool
	isClosed chan bool

	session *SessionSRTCP
	ssrc    uint32

	buffer *packetio.Buffer
}

func newReadStreamSRTCP() readStream {
	return &ReadStreamSRTCP{}
}

func (r *ReadStreamSRTCP) init(child streamSession, ssrc uint32) error {
	sessionSRTCP, ok := child.(*SessionSRTCP)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !ok {
		return fmt.Errorf("ReadStreamSRTCP init failed type assertion")
	} else if r.isInited {
		return fmt.Errorf("ReadStreamSRTCP has already been inited")
	}

	r.session = sessionSRTCP
	r.ssrc = ssrc
	r.isInited = true
	r.isClosed = make(chan bool)
	r.buffer = packetio.NewBuffer()

	// RTCP is a fraction of RTP traffic; a small bound suffices.
	r.buffer.SetLimitCount(64)

	return nil
}

func (r *ReadStreamSRTCP) write(buf []byte) (int, error) {
	n, err := r.buffer.Write(buf)
	if err == packetio.ErrFull {
		// Silently drop data when the buffer is full.
		return len(buf), nil
	}
	return n, err
}

// Read reads the next decrypted RTCP compound packet into buf.
func (r *ReadStreamSRTCP) Read(buf []byte) (int, error) {
	return r.buffer.Read(buf)
}

// ReadRTCP reads the next decrypted compound packet and parses its
// leading header.
func (r *ReadStreamSRTCP) ReadRTCP(buf []byte) (int, *rtcp.Header, error) {
	n, err := r.Read(buf)
	if err != nil {
		return 0, nil, err
	}

	header := &rtcp.Header{}
	if err = header.Unmarshal(buf[:n]); err != nil {
		return 0, nil, err
	}
	return n, header, nil
}

// Close removes the stream from the session and releases its buffer.
func (r *ReadStreamSRTCP) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isInited {
		return errStreamNotInited
	}

	select {
	case <-r.isClosed:
		return fmt.Errorf("stream is already closed")
	default:
		close(r.isClosed)
		if err := r.buffer.Close(); err != nil {
			return err
		}
		r.session.removeReadStream(r.ssrc)
		return nil
	}
}

// GetSSRC returns the SSRC this stream demuxes.
func (r *ReadStreamSRTCP) GetSSRC() uint32 {
	return r.ssrc
}

// WriteStreamSRTCP encrypts outbound RTCP for the session.
type WriteStreamSRTCP struct {
	session *SessionSRTCP
}

// WriteRTCP encrypts an RTCP header and payload to the underlying conn.
func (w *WriteStreamSRTCP) WriteRTCP(header *rtcp.Header, payload []byte) (int, error) {
	headerRaw, err := header.Marshal()
	if err != nil {
		return 0, err
	}
	return w.session.write(append(headerRaw, payload...))
}

// Write encrypts a marshaled RTCP compound packet to the underlying
// conn.
func (w *WriteStreamSRTCP) Write(b []byte) (int, error) {
	return w.session.write(b)
}
