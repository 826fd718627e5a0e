package srtp

import (
	"encoding/binary"
	"fmt"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// Packet framing. The RTP encrypted region starts after the fixed
// header, CSRC list, and any header extension; everything before it is
// the AEAD AAD. The SRTCP encrypted region starts after the 8-byte
// header, and the packet gains a 4-byte trailer word (E-bit + 31-bit
// index) ahead of or behind the auth tag depending on the transform.

const (
	rtpHeaderLen  = 12
	rtcpHeaderLen = 8

	srtcpTrailerLen = 4
	srtcpEBit       = uint32(1) << 31
)

// parseRTPHeader validates the RTP header and returns it along with
// the offset of the encrypted region.
func parseRTPHeader(buf []byte) (*rtp.Header, int, error) {
	if len(buf) < rtpHeaderLen {
		return nil, 0, badParamf("RTP packet of %d bytes shorter than header", len(buf))
	}
	header := &rtp.Header{}
	n, err := header.Unmarshal(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrBadParam, err)
	}
	return header, n, nil
}

// parseRTCPHeader validates the RTCP header and returns the packet's
// SSRC. SRTCP operates on the compound packet as a whole, so only the
// leading header is inspected.
func parseRTCPHeader(buf []byte) (uint32, error) {
	if len(buf) < rtcpHeaderLen {
		return 0, badParamf("RTCP packet of %d bytes shorter than header", len(buf))
	}
	var header rtcp.Header
	if err := header.Unmarshal(buf); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrParse, err)
	}
	return binary.BigEndian.Uint32(buf[4:8]), nil
}

// srtcpTrailer assembles the trailer word for index, with the E-bit
// reflecting whether the payload is encrypted.
func srtcpTrailer(index uint32, encrypted bool) [srtcpTrailerLen]byte {
	word := index & maxSRTCPIndex
	if encrypted {
		word |= srtcpEBit
	}
	var trailer [srtcpTrailerLen]byte
	binary.BigEndian.PutUint32(trailer[:], word)
	return trailer
}

// splitSRTCPTrailer reads the trailer word at the end of a protected
// packet and returns the index and E-bit.
func splitSRTCPTrailer(buf []byte) (index uint32, encrypted bool) {
	word := binary.BigEndian.Uint32(buf[len(buf)-srtcpTrailerLen:])
	return word & maxSRTCPIndex, word&srtcpEBit != 0
}
