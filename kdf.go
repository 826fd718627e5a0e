package srtp

// Labeled key derivation from the master key and salt, RFC 3711 §4.3.
// AES counter mode acts as the PRF: the master key and salt key an
// AES-ICM instance, and each derivation runs it over a nonce whose
// octet 7 carries the label. The ICM salt offset folds the master salt
// into the counter, which reproduces the RFC's x = label XOR salt
// input block.

const (
	labelRTPEncryption  = 0x00
	labelRTPMAC         = 0x01
	labelRTPSalt        = 0x02
	labelRTCPEncryption = 0x03
	labelRTCPMAC        = 0x04
	labelRTCPSalt       = 0x05
)

const (
	kdfKeyLen128 = 30 // AES-128-CTR PRF: 16-byte key + 14-byte salt
	kdfKeyLen256 = 46 // AES-256-CTR PRF: 32-byte key + 14-byte salt
)

type kdf struct {
	cipher packetCipher
	key    []byte
}

// newKDF keys the PRF with masterKey (master key followed by master
// salt), zero-padded or truncated to kdfKeyLen. The padded copy is
// owned by the kdf and wiped by close.
func newKDF(masterKey []byte, kdfKeyLen int) (*kdf, error) {
	c, err := newCipher(CipherAESICM, kdfKeyLen, 0)
	if err != nil {
		return nil, err
	}
	key := make([]byte, kdfKeyLen)
	copy(key, masterKey)
	if err := c.setKey(key); err != nil {
		zeroize(key)
		return nil, err
	}
	return &kdf{cipher: c, key: key}, nil
}

// generate fills out with keystream derived for label.
func (k *kdf) generate(label byte, out []byte) error {
	var nonce [16]byte
	nonce[7] = label
	if err := k.cipher.setIV(nonce[:], directionEncrypt); err != nil {
		return err
	}
	return k.cipher.keystream(out)
}

func (k *kdf) close() {
	zeroize(k.key)
}

// kdfKeyLenFor picks the PRF strength: any combined key length beyond
// the 128-bit profile's 30 bytes promotes the PRF to AES-256-CTR.
func kdfKeyLenFor(rtpKeyLen, rtcpKeyLen int) int {
	if rtpKeyLen > kdfKeyLen128 || rtcpKeyLen > kdfKeyLen128 {
		return kdfKeyLen256
	}
	return kdfKeyLen128
}

// baseKeyLen splits a policy's combined cipher key length into its key
// part; the remainder is salt.
func baseKeyLen(id CipherID, combined int) int {
	switch id {
	case CipherAESICM:
		return combined - icmSaltLen
	case CipherAES128GCM:
		return 16
	case CipherAES256GCM:
		return 32
	default:
		return combined
	}
}
