package srtp

import (
	"encoding/binary"
)

// SRTCP data path. Every protected RTCP packet gains a trailer word
// (E-bit plus 31-bit index); the sender authenticates unconditionally.
// Non-AEAD packets end in [trailer | tag], AEAD packets in [tag |
// trailer].

// ProtectRTCP transforms an RTCP compound packet into its SRTCP form,
// returning the packet extended by the trailer and authentication tag.
func (s *Session) ProtectRTCP(pkt []byte) ([]byte, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	ssrc, err := parseRTCPHeader(pkt)
	if err != nil {
		return nil, err
	}

	str := s.getStream(ssrc)
	if str == nil {
		if s.template == nil {
			return nil, ErrNoContext
		}
		if str, err = s.cloneFromTemplate(ssrc, streamSender); err != nil {
			return nil, err
		}
	} else {
		s.checkDirection(str, streamSender)
	}

	if str.rtcpCipher.aead() {
		return s.protectRTCPAEAD(pkt, ssrc, str)
	}

	if err = str.rtcpRdb.increment(); err != nil {
		s.handleEvent(EventPacketIndexLimit, ssrc)
		return nil, err
	}
	index := str.rtcpRdb.value()
	encrypted := str.rtcpServices&ServiceConfidentiality != 0

	iv := srtcpIV(ssrc, index)
	if err = str.rtcpCipher.setIV(iv[:], directionEncrypt); err != nil {
		return nil, err
	}
	if n := str.rtcpAuth.prefixLen(); n > 0 {
		prefix := make([]byte, n)
		if err = str.rtcpCipher.keystream(prefix); err != nil {
			return nil, err
		}
	}
	if encrypted {
		if err = str.rtcpCipher.encrypt(pkt[rtcpHeaderLen:]); err != nil {
			return nil, err
		}
	}

	trailer := srtcpTrailer(index, encrypted)
	pkt = append(pkt, trailer[:]...)

	// The sender always authenticates RTCP, whatever the service mask
	// says; the tag covers the trailer.
	tag := make([]byte, str.rtcpAuth.tagLen())
	if err = str.rtcpAuth.start(); err != nil {
		return nil, err
	}
	if err = str.rtcpAuth.update(pkt); err != nil {
		return nil, err
	}
	if err = str.rtcpAuth.compute(nil, tag); err != nil {
		return nil, err
	}
	return append(pkt, tag...), nil
}

// UnprotectRTCP validates an SRTCP packet and recovers the RTCP
// packet, returning the shortened slice.
func (s *Session) UnprotectRTCP(pkt []byte) ([]byte, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	if len(pkt) < rtcpHeaderLen+srtcpTrailerLen {
		return nil, badParamf("SRTCP packet of %d bytes cannot carry a trailer", len(pkt))
	}
	ssrc, err := parseRTCPHeader(pkt)
	if err != nil {
		return nil, err
	}

	str := s.getStream(ssrc)
	provisional := false
	if str == nil {
		if s.template == nil {
			return nil, ErrNoContext
		}
		str = s.template
		provisional = true
	}

	if str.rtcpCipher.aead() {
		return s.unprotectRTCPAEAD(pkt, ssrc, str, provisional)
	}

	tagLen := str.rtcpAuth.tagLen()
	if len(pkt) < rtcpHeaderLen+tagLen+srtcpTrailerLen {
		return nil, badParamf("SRTCP packet of %d bytes shorter than header, tag and trailer", len(pkt))
	}

	authLen := len(pkt) - tagLen
	index, ebit := splitSRTCPTrailer(pkt[:authLen])
	encrypted := str.rtcpServices&ServiceConfidentiality != 0
	if ebit != encrypted {
		return nil, ErrCantCheck
	}

	if err = str.rtcpRdb.check(index); err != nil {
		return nil, err
	}

	iv := srtcpIV(ssrc, index)
	if err = str.rtcpCipher.setIV(iv[:], directionDecrypt); err != nil {
		return nil, err
	}

	tag := make([]byte, tagLen)
	if err = str.rtcpAuth.start(); err != nil {
		return nil, err
	}
	if err = str.rtcpAuth.update(pkt[:authLen]); err != nil {
		return nil, err
	}
	if err = str.rtcpAuth.compute(nil, tag); err != nil {
		return nil, err
	}
	if !tagsMatch(tag, pkt[authLen:]) {
		return nil, ErrAuthFail
	}

	if encrypted {
		if err = str.rtcpCipher.encrypt(pkt[rtcpHeaderLen : authLen-srtcpTrailerLen]); err != nil {
			return nil, err
		}
	}

	if str, err = s.commitRTCPReceiverState(str, ssrc, provisional, index); err != nil {
		return nil, err
	}
	return pkt[:authLen-srtcpTrailerLen], nil
}

// protectRTCPAEAD is the AES-GCM send path for RTCP. When encrypting,
// AAD is the RTCP header plus the trailer word; when not, AAD is the
// whole packet plus the trailer word and only the tag is produced.
func (s *Session) protectRTCPAEAD(pkt []byte, ssrc uint32, str *stream) ([]byte, error) {
	if err := str.rtcpRdb.increment(); err != nil {
		s.handleEvent(EventPacketIndexLimit, ssrc)
		return nil, err
	}
	index := str.rtcpRdb.value()
	encrypted := str.rtcpServices&ServiceConfidentiality != 0
	trailer := srtcpTrailer(index, encrypted)

	iv := aeadRTCPIV(ssrc, index, &str.rtcpSalt)
	if err := str.rtcpCipher.setIV(iv[:], directionEncrypt); err != nil {
		return nil, err
	}

	if encrypted {
		if err := str.rtcpCipher.setAAD(pkt[:rtcpHeaderLen]); err != nil {
			return nil, err
		}
		if err := str.rtcpCipher.setAAD(trailer[:]); err != nil {
			return nil, err
		}
		if err := str.rtcpCipher.encrypt(pkt[rtcpHeaderLen:]); err != nil {
			return nil, err
		}
	} else {
		if err := str.rtcpCipher.setAAD(pkt); err != nil {
			return nil, err
		}
		if err := str.rtcpCipher.setAAD(trailer[:]); err != nil {
			return nil, err
		}
		if err := str.rtcpCipher.encrypt(pkt[len(pkt):]); err != nil {
			return nil, err
		}
	}

	tag := make([]byte, str.rtcpCipher.authTagLen())
	if _, err := str.rtcpCipher.tag(tag); err != nil {
		return nil, err
	}
	pkt = append(pkt, tag...)
	return append(pkt, trailer[:]...), nil
}

// unprotectRTCPAEAD is the AES-GCM receive path for RTCP; the trailer
// sits behind the tag and joins the AAD.
func (s *Session) unprotectRTCPAEAD(pkt []byte, ssrc uint32, str *stream, provisional bool) ([]byte, error) {
	tagLen := str.rtcpCipher.authTagLen()
	if len(pkt) < rtcpHeaderLen+tagLen+srtcpTrailerLen {
		return nil, badParamf("SRTCP packet of %d bytes shorter than header, tag and trailer", len(pkt))
	}

	index, ebit := splitSRTCPTrailer(pkt)
	encrypted := str.rtcpServices&ServiceConfidentiality != 0
	if ebit != encrypted {
		return nil, ErrCantCheck
	}
	if err := str.rtcpRdb.check(index); err != nil {
		return nil, err
	}

	iv := aeadRTCPIV(ssrc, index, &str.rtcpSalt)
	if err := str.rtcpCipher.setIV(iv[:], directionDecrypt); err != nil {
		return nil, err
	}

	body := len(pkt) - srtcpTrailerLen - tagLen
	trailerStart := len(pkt) - srtcpTrailerLen
	if encrypted {
		if err := str.rtcpCipher.setAAD(pkt[:rtcpHeaderLen]); err != nil {
			return nil, err
		}
		if err := str.rtcpCipher.setAAD(pkt[trailerStart:]); err != nil {
			return nil, err
		}
		if _, err := str.rtcpCipher.decrypt(pkt[rtcpHeaderLen:trailerStart]); err != nil {
			return nil, err
		}
	} else {
		if err := str.rtcpCipher.setAAD(pkt[:body]); err != nil {
			return nil, err
		}
		if err := str.rtcpCipher.setAAD(pkt[trailerStart:]); err != nil {
			return nil, err
		}
		if _, err := str.rtcpCipher.decrypt(pkt[body:trailerStart]); err != nil {
			return nil, err
		}
	}

	var err error
	if str, err = s.commitRTCPReceiverState(str, ssrc, provisional, index); err != nil {
		return nil, err
	}
	return pkt[:body], nil
}

func (s *Session) commitRTCPReceiverState(str *stream, ssrc uint32, provisional bool, index uint32) (*stream, error) {
	if provisional {
		var err error
		if str, err = s.cloneFromTemplate(ssrc, streamReceiver); err != nil {
			return nil, err
		}
	} else {
		s.checkDirection(str, streamReceiver)
	}
	str.rtcpRdb.add(index)
	return str, nil
}

// srtcpIV forms the 128-bit AES-CM IV for RTCP: zero word, SSRC, and
// the 31-bit index straddling the last two words at a 16-bit offset.
func srtcpIV(ssrc, index uint32) [16]byte {
	var iv [16]byte
	binary.BigEndian.PutUint32(iv[4:8], ssrc)
	binary.BigEndian.PutUint32(iv[8:12], index>>16)
	binary.BigEndian.PutUint32(iv[12:16], index<<16)
	return iv
}

// aeadRTCPIV forms the 96-bit GCM nonce for RTCP: two zero octets, the
// SSRC, two zero octets, and the 31-bit index, XORed with the RTCP
// session salt.
func aeadRTCPIV(ssrc, index uint32, salt *[aeadSaltLen]byte) [aeadSaltLen]byte {
	var iv [aeadSaltLen]byte
	binary.BigEndian.PutUint32(iv[2:6], ssrc)
	binary.BigEndian.PutUint32(iv[8:12], index&maxSRTCPIndex)
	for i := range iv {
		iv[i] ^= salt[i]
	}
	return iv
}
