package srtp

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const icmSaltLen = 14

// aesICM implements AES counter mode as used by SRTP (AES-CM, called
// ICM by the protocol). The combined key carries the AES key followed
// by a 14-byte salt; the salt, left-aligned over the high 14 octets of
// the counter block, is XORed with the caller-supplied IV to form the
// initial counter.
type aesICM struct {
	block  cipher.Block
	offset [aes.BlockSize]byte
	stream cipher.Stream
	keyLen int
}

func newAESICM(keyLen, _ int) (packetCipher, error) {
	switch keyLen {
	case 30, 38, 46:
	default:
		return nil, fmt.Errorf("%w: AES_ICM combined key length %d", ErrInitFail, keyLen)
	}
	return &aesICM{keyLen: keyLen}, nil
}

func (c *aesICM) id() CipherID {
	return CipherAESICM
}

func (c *aesICM) aead() bool { return false }

func (c *aesICM) authTagLen() int { return 0 }

func (c *aesICM) setKey(key []byte) error {
	if len(key) != c.keyLen {
		return fmt.Errorf("%w: AES_ICM key length %d, want %d", ErrInitFail, len(key), c.keyLen)
	}
	base := len(key) - icmSaltLen
	block, err := aes.NewCipher(key[:base])
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInitFail, err)
	}
	c.block = block
	copy(c.offset[:icmSaltLen], key[base:])
	c.offset[14] = 0
	c.offset[15] = 0
	return nil
}

func (c *aesICM) setIV(iv []byte, _ cipherDirection) error {
	if len(iv) != aes.BlockSize {
		return fmt.Errorf("%w: AES_ICM IV length %d", ErrCipherFail, len(iv))
	}
	var counter [aes.BlockSize]byte
	for i := range counter {
		counter[i] = c.offset[i] ^ iv[i]
	}
	c.stream = cipher.NewCTR(c.block, counter[:])
	return nil
}

func (c *aesICM) setAAD([]byte) error { return nil }

func (c *aesICM) encrypt(buf []byte) error {
	if c.stream == nil {
		return ErrCipherFail
	}
	c.stream.XORKeyStream(buf, buf)
	return nil
}

func (c *aesICM) decrypt(buf []byte) (int, error) {
	if err := c.encrypt(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (c *aesICM) keystream(out []byte) error {
	if c.stream == nil {
		return ErrCipherFail
	}
	zeroize(out)
	c.stream.XORKeyStream(out, out)
	return nil
}

func (c *aesICM) tag([]byte) (int, error) {
	return 0, fmt.Errorf("%w: AES_ICM has no tag", ErrCipherFail)
}
