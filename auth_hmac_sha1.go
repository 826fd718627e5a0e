package srtp

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec
	"fmt"
	"hash"
)

// hmacSHA1 is the RFC 3711 packet authenticator. The HMAC output is
// truncated to the policy's tag length (80 or 32 bits on the wire).
// SRTP_PREFIX_LENGTH is zero for HMAC-SHA1, so no keystream prefix is
// ever requested.
type hmacSHA1 struct {
	mac   hash.Hash
	keyLn int
	tagLn int
}

func newHMACSHA1(keyLen, tagLen int) (packetAuth, error) {
	if tagLen <= 0 || tagLen > sha1.Size {
		return nil, fmt.Errorf("%w: HMAC-SHA1 tag length %d", ErrInitFail, tagLen)
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: HMAC-SHA1 key length %d", ErrInitFail, keyLen)
	}
	return &hmacSHA1{keyLn: keyLen, tagLn: tagLen}, nil
}

func (h *hmacSHA1) id() AuthID     { return AuthHMACSHA1 }
func (h *hmacSHA1) tagLen() int    { return h.tagLn }
func (h *hmacSHA1) prefixLen() int { return 0 }
func (h *hmacSHA1) keyLen() int    { return h.keyLn }

func (h *hmacSHA1) setKey(key []byte) error {
	if len(key) != h.keyLn {
		return fmt.Errorf("%w: HMAC-SHA1 key length %d, want %d", ErrInitFail, len(key), h.keyLn)
	}
	h.mac = hmac.New(sha1.New, key)
	return nil
}

func (h *hmacSHA1) start() error {
	if h.mac == nil {
		return errStreamNotInited
	}
	h.mac.Reset()
	return nil
}

func (h *hmacSHA1) update(buf []byte) error {
	if h.mac == nil {
		return errStreamNotInited
	}
	_, err := h.mac.Write(buf)
	return err
}

func (h *hmacSHA1) compute(extra, out []byte) error {
	if h.mac == nil {
		return errStreamNotInited
	}
	if extra != nil {
		if _, err := h.mac.Write(extra); err != nil {
			return err
		}
	}
	sum := h.mac.Sum(nil)
	copy(out, sum[:h.tagLn])
	return nil
}
