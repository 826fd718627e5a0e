package srtp

import (
	"encoding/binary"

	"github.com/pion/rtp"
)

// SRTP data path. Both transform families share stream resolution,
// replay handling and framing; they differ in IV formation, AAD, where
// the tag lives, and whether integrity comes from a separate MAC or
// from the AEAD itself.

// Protect transforms an RTP packet into its SRTP form in place and
// returns the packet extended by the authentication tag. The slice may
// be reallocated if it lacks capacity for the tag.
func (s *Session) Protect(pkt []byte) ([]byte, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	header, headerLen, err := parseRTPHeader(pkt)
	if err != nil {
		return nil, err
	}

	str := s.getStream(header.SSRC)
	if str == nil {
		if s.template == nil {
			return nil, ErrNoContext
		}
		if str, err = s.cloneFromTemplate(header.SSRC, streamSender); err != nil {
			return nil, err
		}
	} else {
		s.checkDirection(str, streamSender)
	}

	if str.rtpCipher.aead() {
		return s.protectAEAD(pkt, header, headerLen, str)
	}

	if err = s.updateKeyLimit(str); err != nil {
		return nil, err
	}

	est, _, err := s.commitSenderIndex(str, header.SequenceNumber)
	if err != nil {
		return nil, err
	}

	var iv [16]byte
	binary.BigEndian.PutUint32(iv[4:8], header.SSRC)
	binary.BigEndian.PutUint64(iv[8:16], est<<16)
	if err = str.rtpCipher.setIV(iv[:], directionEncrypt); err != nil {
		return nil, err
	}

	// Keystream prefix for universal-hash authenticators; both shipped
	// MACs use none.
	if n := str.rtpAuth.prefixLen(); n > 0 {
		prefix := make([]byte, n)
		if err = str.rtpCipher.keystream(prefix); err != nil {
			return nil, err
		}
	}

	if str.rtpServices&ServiceConfidentiality != 0 {
		if err = str.rtpCipher.encrypt(pkt[headerLen:]); err != nil {
			return nil, err
		}
	}

	if str.rtpServices&ServiceAuthentication != 0 {
		tag := make([]byte, str.rtpAuth.tagLen())
		if err = s.computeRTPAuth(str, pkt, est, tag); err != nil {
			return nil, err
		}
		pkt = append(pkt, tag...)
	}
	return pkt, nil
}

// Unprotect validates an SRTP packet and recovers the RTP packet in
// place, returning the shortened slice. Replay state, stream direction
// and template cloning are only touched after authentication succeeds.
func (s *Session) Unprotect(pkt []byte) ([]byte, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	header, headerLen, err := parseRTPHeader(pkt)
	if err != nil {
		return nil, err
	}

	str := s.getStream(header.SSRC)
	provisional := false
	var est uint64
	var delta int32
	if str == nil {
		if s.template == nil {
			return nil, ErrNoContext
		}
		// Use the template provisionally; est is the bare sequence
		// number since no replay history exists for this SSRC yet.
		str = s.template
		provisional = true
		est = uint64(header.SequenceNumber)
		delta = int32(header.SequenceNumber)
	} else {
		est, delta = str.rtpRdbx.estimate(header.SequenceNumber)
		if err = str.rtpRdbx.check(delta); err != nil {
			return nil, err
		}
	}

	if str.rtpCipher.aead() {
		return s.unprotectAEAD(pkt, header, headerLen, str, provisional, est, delta)
	}

	tagLen := str.rtpAuth.tagLen()
	if len(pkt) < headerLen+tagLen {
		return nil, badParamf("SRTP packet of %d bytes shorter than header and tag", len(pkt))
	}

	var iv [16]byte
	binary.BigEndian.PutUint32(iv[4:8], header.SSRC)
	binary.BigEndian.PutUint64(iv[8:16], est<<16)
	if err = str.rtpCipher.setIV(iv[:], directionDecrypt); err != nil {
		return nil, err
	}

	if str.rtpServices&ServiceAuthentication != 0 {
		if n := str.rtpAuth.prefixLen(); n > 0 {
			prefix := make([]byte, n)
			if err = str.rtpCipher.keystream(prefix); err != nil {
				return nil, err
			}
		}
		tag := make([]byte, tagLen)
		if err = s.computeRTPAuth(str, pkt[:len(pkt)-tagLen], est, tag); err != nil {
			return nil, err
		}
		if !tagsMatch(tag, pkt[len(pkt)-tagLen:]) {
			return nil, ErrAuthFail
		}
	}

	if err = s.updateKeyLimit(str); err != nil {
		return nil, err
	}

	if str.rtpServices&ServiceConfidentiality != 0 {
		if err = str.rtpCipher.encrypt(pkt[headerLen : len(pkt)-tagLen]); err != nil {
			return nil, err
		}
	}

	if _, err = s.commitReceiverState(str, header.SSRC, provisional, delta); err != nil {
		return nil, err
	}
	return pkt[:len(pkt)-tagLen], nil
}

// protectAEAD is the AES-GCM send path. The RTP header is AAD, the
// payload is sealed in place, and the tag is appended.
func (s *Session) protectAEAD(pkt []byte, header *rtp.Header, headerLen int, str *stream) ([]byte, error) {
	if err := s.updateKeyLimit(str); err != nil {
		return nil, err
	}
	est, _, err := s.commitSenderIndex(str, header.SequenceNumber)
	if err != nil {
		return nil, err
	}

	iv := aeadRTPIV(header.SSRC, est, &str.rtpSalt)
	if err = str.rtpCipher.setIV(iv[:], directionEncrypt); err != nil {
		return nil, err
	}
	if err = str.rtpCipher.setAAD(pkt[:headerLen]); err != nil {
		return nil, err
	}
	if err = str.rtpCipher.encrypt(pkt[headerLen:]); err != nil {
		return nil, err
	}

	tag := make([]byte, str.rtpCipher.authTagLen())
	if _, err = str.rtpCipher.tag(tag); err != nil {
		return nil, err
	}
	return append(pkt, tag...), nil
}

// unprotectAEAD is the AES-GCM receive path; the cipher validates the
// tag as part of decryption, after which shared state may be touched.
func (s *Session) unprotectAEAD(pkt []byte, header *rtp.Header, headerLen int, str *stream,
	provisional bool, est uint64, delta int32) ([]byte, error) {
	tagLen := str.rtpCipher.authTagLen()
	if len(pkt) < headerLen+tagLen {
		return nil, badParamf("SRTP packet of %d bytes shorter than header and tag", len(pkt))
	}

	iv := aeadRTPIV(header.SSRC, est, &str.rtpSalt)
	if err := str.rtpCipher.setIV(iv[:], directionDecrypt); err != nil {
		return nil, err
	}
	if err := str.rtpCipher.setAAD(pkt[:headerLen]); err != nil {
		return nil, err
	}
	n, err := str.rtpCipher.decrypt(pkt[headerLen:])
	if err != nil {
		return nil, err
	}

	if err = s.updateKeyLimit(str); err != nil {
		return nil, err
	}
	if _, err = s.commitReceiverState(str, header.SSRC, provisional, delta); err != nil {
		return nil, err
	}
	return pkt[:headerLen+n], nil
}

// commitSenderIndex reconstructs the extended index for a packet being
// sent and commits it to the replay database. A repeated index is
// tolerated only when the policy allows exact retransmission.
func (s *Session) commitSenderIndex(str *stream, seq uint16) (uint64, int32, error) {
	est, delta := str.rtpRdbx.estimate(seq)
	if err := str.rtpRdbx.check(delta); err != nil {
		if !(err == ErrReplayFail && str.allowRepeatTx) {
			return 0, 0, err
		}
		return est, delta, nil
	}
	if err := str.rtpRdbx.add(delta); err != nil {
		s.handleEvent(EventPacketIndexLimit, str.ssrc)
		return 0, 0, err
	}
	return est, delta, nil
}

// commitReceiverState performs the post-authentication mutations of
// the receive path: direction pinning, template promotion, and the
// replay-database commit. It returns the stream that actually carries
// the packet (the clone, for a first-seen SSRC).
func (s *Session) commitReceiverState(str *stream, ssrc uint32, provisional bool, delta int32) (*stream, error) {
	if provisional {
		var err error
		if str, err = s.cloneFromTemplate(ssrc, streamReceiver); err != nil {
			return nil, err
		}
	} else {
		s.checkDirection(str, streamReceiver)
	}
	if err := str.rtpRdbx.add(delta); err != nil {
		s.handleEvent(EventPacketIndexLimit, str.ssrc)
		return nil, err
	}
	return str, nil
}

// computeRTPAuth runs the MAC over the packet followed by the rollover
// counter, as RFC 3711 defines M = Authenticated Portion || ROC.
func (s *Session) computeRTPAuth(str *stream, authed []byte, est uint64, tag []byte) error {
	var roc [4]byte
	binary.BigEndian.PutUint32(roc[:], uint32(est>>16))
	if err := str.rtpAuth.start(); err != nil {
		return err
	}
	if err := str.rtpAuth.update(authed); err != nil {
		return err
	}
	return str.rtpAuth.compute(roc[:], tag)
}

// aeadRTPIV forms the 96-bit GCM nonce for RTP: two zero octets, the
// SSRC, the ROC and the sequence number, XORed with the session salt.
func aeadRTPIV(ssrc uint32, est uint64, salt *[aeadSaltLen]byte) [aeadSaltLen]byte {
	var iv [aeadSaltLen]byte
	binary.BigEndian.PutUint32(iv[2:6], ssrc)
	binary.BigEndian.PutUint32(iv[6:10], uint32(est>>16))
	binary.BigEndian.PutUint16(iv[10:12], uint16(est))
	for i := range iv {
		iv[i] ^= salt[i]
	}
	return iv
}
