package srtp

import (
	"fmt"
	"net"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/transport/v3/packetio"
)

// SessionSRTP provides an io.ReadWriteCloser-style bi-directional SRTP
// session over a net.Conn. SRTP itself has no such shape, but most
// applications key each direction separately and demux inbound SSRCs;
// this wraps those patterns around the engine so every caller does not
// re-implement them.
type SessionSRTP struct {
	session
	writeStream *WriteStreamSRTP
}

// NewSessionSRTP creates an SRTP session using conn as the underlying
// transport.
func NewSessionSRTP(conn net.Conn, config *Config) (*SessionSRTP, error) {
	if config == nil {
		return nil, badParamf("no config provided")
	} else if conn == nil {
		return nil, badParamf("no conn provided")
	}

	s := &SessionSRTP{
		session: session{
			nextConn:    conn,
			readStreams: map[uint32]readStream{},
			newStream:   make(chan readStream),
			started:     make(chan interface{}),
			closed:      make(chan interface{}),
		},
	}
	s.writeStream = &WriteStreamSRTP{s}

	if err := s.session.start(config, s); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenWriteStream returns the global write stream for the session.
func (s *SessionSRTP) OpenWriteStream() (*WriteStreamSRTP, error) {
	return s.writeStream, nil
}

// OpenReadStream opens a read stream for the given SSRC; use it when
// the SSRC is known up front and AcceptStream is not wanted.
func (s *SessionSRTP) OpenReadStream(ssrc uint32) (*ReadStreamSRTP, error) {
	r, _ := s.session.getOrCreateReadStream(ssrc, s, newReadStreamSRTP)
	if readStream, ok := r.(*ReadStreamSRTP); ok {
		return readStream, nil
	}
	return nil, fmt.Errorf("failed to open ReadStreamSRTP, type assertion failed")
}

// AcceptStream returns the read stream for the next inbound SSRC.
func (s *SessionSRTP) AcceptStream() (*ReadStreamSRTP, uint32, error) {
	stream, ok := <-s.newStream
	if !ok {
		return nil, 0, errSessionClosed
	}

	readStream, ok := stream.(*ReadStreamSRTP)
	if !ok {
		return nil, 0, fmt.Errorf("newStream was found, but failed type assertion")
	}
	return readStream, stream.GetSSRC(), nil
}

// Close ends the session.
func (s *SessionSRTP) Close() error {
	return s.session.close()
}

func (s *SessionSRTP) write(b []byte) (int, error) {
	if _, ok := <-s.session.started; ok {
		return 0, fmt.Errorf("started channel used incorrectly, should only be closed")
	}

	s.session.localSessionMutex.Lock()
	defer s.session.localSessionMutex.Unlock()

	encrypted, err := s.localSession.Protect(append([]byte{}, b...))
	if err != nil {
		return 0, err
	}
	return s.session.nextConn.Write(encrypted)
}

func (s *SessionSRTP) decrypt(buf []byte) error {
	decrypted, err := s.remoteSession.Unprotect(append([]byte{}, buf...))
	if err != nil {
		return err
	}

	p := &rtp.Packet{}
	if err := p.Unmarshal(decrypted); err != nil {
		return err
	}

	r, isNew := s.session.getOrCreateReadStream(p.SSRC, s, newReadStreamSRTP)
	if r == nil {
		return nil // Session has been closed
	} else if isNew {
		s.session.newStream <- r // Notify AcceptStream
	}

	_, err = r.write(decrypted)
	return err
}

// ReadStreamSRTP handles decryption for a single inbound SSRC.
type ReadStreamSRTP struct {
	mu sync.Mutex

	isInited bool
	isClosed chan bool

	session *SessionSRTP
	ssrc    uint32

	buffer *packetio.Buffer
}

func newReadStreamSRTP() readStream {
	return &ReadStreamSRTP{}
}

func (r *ReadStreamSRTP) init(child streamSession, ssrc uint32) error {
	sessionSRTP, ok := child.(*SessionSRTP)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !ok {
		return fmt.Errorf("ReadStreamSRTP init failed type assertion")
	} else if r.isInited {
		return fmt.Errorf("ReadStreamSRTP has already been inited")
	}

	r.session = sessionSRTP
	r.ssrc = ssrc
	r.isInited = true
	r.isClosed = make(chan bool)
	r.buffer = packetio.NewBuffer()

	// The caller might not read every packet; bound the buffer so one
	// idle stream cannot hold the whole session's memory.
	r.buffer.SetLimitCount(512)

	return nil
}

func (r *ReadStreamSRTP) write(buf []byte) (int, error) {
	n, err := r.buffer.Write(buf)
	if err == packetio.ErrFull {
		// Silently drop data when the buffer is full.
		return len(buf), nil
	}
	return n, err
}

// Read reads the next decrypted RTP packet into buf.
func (r *ReadStreamSRTP) Read(buf []byte) (int, error) {
	return r.buffer.Read(buf)
}

// ReadRTP reads the next decrypted packet and parses its header.
func (r *ReadStreamSRTP) ReadRTP(buf []byte) (int, *rtp.Header, error) {
	n, err := r.Read(buf)
	if err != nil {
		return 0, nil, err
	}

	header := &rtp.Header{}
	if _, err = header.Unmarshal(buf[:n]); err != nil {
		return 0, nil, err
	}
	return n, header, nil
}

// Close removes the stream from the session and releases its buffer.
func (r *ReadStreamSRTP) Close() error {
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
func (r *ReadStreamSRTP) GetSSRC() uint32 {
	return r.ssrc
}

// WriteStreamSRTP encrypts outbound RTP for the session.
type WriteStreamSRTP struct {
	session *SessionSRTP
}

// WriteRTP encrypts an RTP header and payload to the underlying conn.
func (w *WriteStreamSRTP) WriteRTP(header *rtp.Header, payload []byte) (int, error) {
	headerRaw, err := header.Marshal()
	if err != nil {
		return 0, err
	}
	return w.session.write(append(headerRaw, payload...))
}

// Write encrypts a marshaled RTP packet to the underlying conn.
func (w *WriteStreamSRTP) Write(b []byte) (int, error) {
	return w.session.write(b)
}
