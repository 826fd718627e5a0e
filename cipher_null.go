package srtp

// nullCipher passes packets through untouched. Policies that request
// authentication only still run the full pipeline with it in place.
type nullCipher struct{}

func newNullCipher(int, int) (packetCipher, error) {
	return nullCipher{}, nil
}

func (nullCipher) id() CipherID { return CipherNull }

func (nullCipher) aead() bool { return false }

func (nullCipher) authTagLen() int { return 0 }

func (nullCipher) setKey([]byte) error { return nil }

func (nullCipher) setIV([]byte, cipherDirection) error { return nil }

func (nullCipher) setAAD([]byte) error { return nil }

func (nullCipher) encrypt([]byte) error { return nil }

func (nullCipher) decrypt(buf []byte) (int, error) { return len(buf), nil }

func (nullCipher) keystream(out []byte) error {
	zeroize(out)
	return nil
}

func (nullCipher) tag([]byte) (int, error) { return 0, nil }

// nullAuth produces and accepts empty tags.
type nullAuth struct{}

func newNullAuth(int, int) (packetAuth, error) {
	return nullAuth{}, nil
}

func (nullAuth) id() AuthID { return AuthNull }

func (nullAuth) tagLen() int { return 0 }

func (nullAuth) prefixLen() int { return 0 }

func (nullAuth) keyLen() int { return 0 }

func (nullAuth) setKey([]byte) error { return nil }

func (nullAuth) start() error { return nil }

func (nullAuth) update([]byte) error { return nil }

func (nullAuth) compute(_, _ []byte) error { return nil }
