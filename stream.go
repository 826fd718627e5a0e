package srtp

// Per-SSRC stream context: the cipher and authenticator instances for
// both directions of the protocol pair, the replay databases, the AEAD
// salts, and the usage accounting. Streams are created from a policy
// or cloned from a session template; clones share the cipher,
// authenticator and key-limit objects with their template and own
// everything else.

type streamDirection int

const (
	streamUnknown streamDirection = iota
	streamSender
	streamReceiver
)

type stream struct {
	ssrc uint32

	rtpCipher  packetCipher
	rtpAuth    packetAuth
	rtcpCipher packetCipher
	rtcpAuth   packetAuth
	limit      *keyLimit

	rtpRdbx *rdbx
	rtcpRdb *rdb

	rtpSalt  [aeadSaltLen]byte
	rtcpSalt [aeadSaltLen]byte

	direction     streamDirection
	rtpServices   SecurityServices
	rtcpServices  SecurityServices
	allowRepeatTx bool

	// Normalized replay-window size, carried so clones inherit it.
	windowSize uint32
}

// newStreamFromPolicy allocates and fully initializes a stream. Any
// failure surfaces before the stream is registered anywhere, so there
// is never partially-visible state to unwind.
func newStreamFromPolicy(p *Policy) (*stream, error) {
	if p == nil {
		return nil, badParamf("nil policy")
	}
	maxCombined := p.RTP.CipherKeyLen
	if p.RTCP.CipherKeyLen > maxCombined {
		maxCombined = p.RTCP.CipherKeyLen
	}
	if maxCombined > 0 && len(p.Key) < maxCombined {
		return nil, badParamf("master key of %d bytes shorter than combined key length %d",
			len(p.Key), maxCombined)
	}

	ws, err := checkWindowSize(p.WindowSize)
	if err != nil {
		return nil, err
	}

	str := &stream{
		ssrc:          p.SSRC.Value,
		direction:     streamUnknown,
		rtpServices:   p.RTP.Services,
		rtcpServices:  p.RTCP.Services,
		allowRepeatTx: p.AllowRepeatTx,
		windowSize:    ws,
		limit:         newKeyLimit(defaultKeyLimit),
		rtcpRdb:       &rdb{},
	}

	if str.rtpRdbx, err = newRdbx(ws); err != nil {
		return nil, err
	}
	if str.rtpCipher, err = newCipher(p.RTP.Cipher, p.RTP.CipherKeyLen, p.RTP.AuthTagLen); err != nil {
		return nil, err
	}
	if str.rtpAuth, err = newAuth(p.RTP.Auth, p.RTP.AuthKeyLen, p.RTP.AuthTagLen); err != nil {
		return nil, err
	}
	if str.rtcpCipher, err = newCipher(p.RTCP.Cipher, p.RTCP.CipherKeyLen, p.RTCP.AuthTagLen); err != nil {
		return nil, err
	}
	if str.rtcpAuth, err = newAuth(p.RTCP.Auth, p.RTCP.AuthKeyLen, p.RTCP.AuthTagLen); err != nil {
		return nil, err
	}

	if err = str.initKeys(p); err != nil {
		return nil, err
	}
	return str, nil
}

// initKeys runs the KDF and feeds the derived material to the stream's
// ciphers and authenticators. Temporary key buffers are wiped on every
// exit path.
func (str *stream) initKeys(p *Policy) (err error) {
	rtpBase := baseKeyLen(p.RTP.Cipher, p.RTP.CipherKeyLen)
	rtpSalt := p.RTP.CipherKeyLen - rtpBase
	rtcpBase := baseKeyLen(p.RTCP.Cipher, p.RTCP.CipherKeyLen)
	rtcpSalt := p.RTCP.CipherKeyLen - rtcpBase
	if rtpBase < 0 || rtpSalt < 0 || rtcpBase < 0 || rtcpSalt < 0 {
		return badParamf("combined key length %d/%d inconsistent with cipher",
			p.RTP.CipherKeyLen, p.RTCP.CipherKeyLen)
	}

	prf, err := newKDF(p.Key, kdfKeyLenFor(p.RTP.CipherKeyLen, p.RTCP.CipherKeyLen))
	if err != nil {
		return err
	}
	defer prf.close()

	keyBuf := make([]byte, maxInt(p.RTP.CipherKeyLen, p.RTCP.CipherKeyLen))
	authBuf := make([]byte, maxInt(p.RTP.AuthKeyLen, p.RTCP.AuthKeyLen))
	defer zeroize(keyBuf)
	defer zeroize(authBuf)

	// SRTP keys.
	if err = prf.generate(labelRTPEncryption, keyBuf[:rtpBase]); err != nil {
		return err
	}
	if err = prf.generate(labelRTPSalt, keyBuf[rtpBase:rtpBase+rtpSalt]); err != nil {
		return err
	}
	copy(str.rtpSalt[:], keyBuf[rtpBase:rtpBase+rtpSalt])
	if err = str.rtpCipher.setKey(keyBuf[:rtpBase+rtpSalt]); err != nil {
		return err
	}
	if err = prf.generate(labelRTPMAC, authBuf[:p.RTP.AuthKeyLen]); err != nil {
		return err
	}
	if err = str.rtpAuth.setKey(authBuf[:p.RTP.AuthKeyLen]); err != nil {
		return err
	}

	// SRTCP keys.
	if err = prf.generate(labelRTCPEncryption, keyBuf[:rtcpBase]); err != nil {
		return err
	}
	if err = prf.generate(labelRTCPSalt, keyBuf[rtcpBase:rtcpBase+rtcpSalt]); err != nil {
		return err
	}
	copy(str.rtcpSalt[:], keyBuf[rtcpBase:rtcpBase+rtcpSalt])
	if err = str.rtcpCipher.setKey(keyBuf[:rtcpBase+rtcpSalt]); err != nil {
		return err
	}
	if err = prf.generate(labelRTCPMAC, authBuf[:p.RTCP.AuthKeyLen]); err != nil {
		return err
	}
	return str.rtcpAuth.setKey(authBuf[:p.RTCP.AuthKeyLen])
}

// clone builds a concrete stream for ssrc from a template. The cipher,
// authenticator and key-limit objects are shared by reference; replay
// state and salts are per-clone.
func (str *stream) clone(ssrc uint32) (*stream, error) {
	replayDB, err := newRdbx(str.windowSize)
	if err != nil {
		return nil, err
	}
	c := &stream{
		ssrc:          ssrc,
		rtpCipher:     str.rtpCipher,
		rtpAuth:       str.rtpAuth,
		rtcpCipher:    str.rtcpCipher,
		rtcpAuth:      str.rtcpAuth,
		limit:         str.limit,
		rtpRdbx:       replayDB,
		rtcpRdb:       &rdb{},
		direction:     streamUnknown,
		rtpServices:   str.rtpServices,
		rtcpServices:  str.rtcpServices,
		allowRepeatTx: str.allowRepeatTx,
		windowSize:    str.windowSize,
	}
	c.rtpSalt = str.rtpSalt
	c.rtcpSalt = str.rtcpSalt
	return c, nil
}

// close wipes the stream's owned key material. Shared primitives are
// the template's to dispose; Go's collector reclaims the memory, the
// zeroization is what matters here.
func (str *stream) close() {
	zeroize(str.rtpSalt[:])
	zeroize(str.rtcpSalt[:])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
