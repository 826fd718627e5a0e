package srtp

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// RFC 3711 appendix B.3 key derivation vectors.
func TestKDFReferenceVectors(t *testing.T) {
	masterKey := fromHex(t, "e1f97a0d3e018be0d64fa32c06de4139")
	masterSalt := fromHex(t, "0ec675ad498afeebb6960b3aabe6")

	prf, err := newKDF(append(masterKey, masterSalt...), kdfKeyLen128)
	require.NoError(t, err)
	defer prf.close()

	cipherKey := make([]byte, 16)
	require.NoError(t, prf.generate(labelRTPEncryption, cipherKey))
	assert.Equal(t, fromHex(t, "c61e7a93744f39ee10734afe3ff7a087"), cipherKey)

	cipherSalt := make([]byte, 14)
	require.NoError(t, prf.generate(labelRTPSalt, cipherSalt))
	assert.Equal(t, fromHex(t, "30cbbc08863d8c85d49db34a9ae1"), cipherSalt)

	authKey := make([]byte, 20)
	require.NoError(t, prf.generate(labelRTPMAC, authKey))
	assert.Equal(t, fromHex(t, "cebe321f6ff7716b6fd4ab49af256a156d38baa4"), authKey)
}

func TestKDFLabelsAreIndependent(t *testing.T) {
	key := make([]byte, 30)
	for i := range key {
		key[i] = byte(i)
	}

	prf, err := newKDF(key, kdfKeyLen128)
	require.NoError(t, err)
	defer prf.close()

	outputs := make(map[string]byte)
	for _, label := range []byte{
		labelRTPEncryption, labelRTPMAC, labelRTPSalt,
		labelRTCPEncryption, labelRTCPMAC, labelRTCPSalt,
	} {
		out := make([]byte, 16)
		require.NoError(t, prf.generate(label, out))
		prev, dup := outputs[string(out)]
		assert.False(t, dup, "labels %#x and %#x derived identical keystream", prev, label)
		outputs[string(out)] = label
	}
}

func TestKDFKeyLenPromotion(t *testing.T) {
	assert.Equal(t, kdfKeyLen128, kdfKeyLenFor(30, 30))
	assert.Equal(t, kdfKeyLen128, kdfKeyLenFor(28, 28))
	assert.Equal(t, kdfKeyLen256, kdfKeyLenFor(46, 30))
	assert.Equal(t, kdfKeyLen256, kdfKeyLenFor(30, 46))
	assert.Equal(t, kdfKeyLen256, kdfKeyLenFor(44, 44))
}

func TestBaseKeyLen(t *testing.T) {
	assert.Equal(t, 16, baseKeyLen(CipherAESICM, 30))
	assert.Equal(t, 32, baseKeyLen(CipherAESICM, 46))
	assert.Equal(t, 16, baseKeyLen(CipherAES128GCM, 28))
	assert.Equal(t, 32, baseKeyLen(CipherAES256GCM, 44))
	assert.Equal(t, 0, baseKeyLen(CipherNull, 0))
}

// RFC 3711 appendix B.2 AES-CM keystream vectors: with a zero IV the
// counter is exactly the session salt shifted into the high bytes.
func TestAESICMKeystreamVectors(t *testing.T) {
	key := fromHex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	salt := fromHex(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfd")

	c, err := newCipher(CipherAESICM, 30, 0)
	require.NoError(t, err)
	require.NoError(t, c.setKey(append(key, salt...)))

	var iv [16]byte
	require.NoError(t, c.setIV(iv[:], directionEncrypt))

	out := make([]byte, 48)
	require.NoError(t, c.keystream(out))
	assert.Equal(t, fromHex(t,
		"e03ead0935c95e80e166b16dd92b4eb4"+
			"d23513162b02d0f72a43a2fe4a5f97ab"+
			"41e95b3bb0a2e8dd477901e4fca894c0"), out)
}
