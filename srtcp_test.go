package srtp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRTCPPacket returns a receiver report with one report block, so
// the encrypted region is non-empty.
func buildRTCPPacket(ssrc uint32) []byte {
	buf := make([]byte, 32)
	buf[0] = 0x81 // V=2, RC=1
	buf[1] = 0xC9 // receiver report
	binary.BigEndian.PutUint16(buf[2:4], 7)
	binary.BigEndian.PutUint32(buf[4:8], ssrc)
	binary.BigEndian.PutUint32(buf[8:12], 0x01020304) // reportee SSRC
	buf[12] = 0x20                                    // fraction lost
	copy(buf[16:], []byte{0x00, 0x00, 0x10, 0x00})    // highest seq
	return buf
}

func TestRTCPNullCipherHMAC(t *testing.T) {
	const ssrc = 0xDEADBEEF
	key := patternKey(30, 0x42)
	policy := testPolicy(ssrc, CryptoPolicyNullCipherHMACSHA1_80(), key)

	sender := mustCreateSession(t, []*Policy{policy})
	original := buildRTCPPacket(ssrc)

	protected, err := sender.ProtectRTCP(append([]byte{}, original...))
	require.NoError(t, err)
	require.Len(t, protected, len(original)+srtcpTrailerLen+10)

	// Null cipher leaves the report in the clear; the trailer carries
	// E=0 and index 1.
	assert.Equal(t, original, protected[:len(original)])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, protected[len(original):len(original)+4])

	t.Run("round trip", func(t *testing.T) {
		receiver := mustCreateSession(t, []*Policy{testPolicy(ssrc, CryptoPolicyNullCipherHMACSHA1_80(), key)})
		recovered, err := receiver.UnprotectRTCP(append([]byte{}, protected...))
		require.NoError(t, err)
		assert.Equal(t, original, recovered)
	})

	t.Run("corrupted trailer index", func(t *testing.T) {
		receiver := mustCreateSession(t, []*Policy{testPolicy(ssrc, CryptoPolicyNullCipherHMACSHA1_80(), key)})
		tampered := append([]byte{}, protected...)
		tampered[len(original)+3] ^= 0x02 // bit 1 of the trailer index
		_, err := receiver.UnprotectRTCP(tampered)
		assert.ErrorIs(t, err, ErrAuthFail)
	})

	t.Run("e-bit contradicts policy", func(t *testing.T) {
		receiver := mustCreateSession(t, []*Policy{testPolicy(ssrc, CryptoPolicyNullCipherHMACSHA1_80(), key)})
		tampered := append([]byte{}, protected...)
		tampered[len(original)] |= 0x80 // E-bit
		_, err := receiver.UnprotectRTCP(tampered)
		assert.ErrorIs(t, err, ErrCantCheck)
	})
}

func TestRTCPRoundTripAESCM(t *testing.T) {
	const ssrc = 0x22446688
	key := patternKey(30, 0x99)
	policy := testPolicy(ssrc, CryptoPolicyAESCM128HMACSHA1_80(), key)

	sender := mustCreateSession(t, []*Policy{policy})
	receiver := mustCreateSession(t, []*Policy{testPolicy(ssrc, CryptoPolicyAESCM128HMACSHA1_80(), key)})

	for i := 0; i < 3; i++ {
		original := buildRTCPPacket(ssrc)
		protected, err := sender.ProtectRTCP(append([]byte{}, original...))
		require.NoError(t, err)

		// E-bit set, index increments per packet.
		index, encrypted := splitSRTCPTrailer(protected[:len(protected)-10])
		assert.True(t, encrypted)
		assert.Equal(t, uint32(i+1), index)
		assert.NotEqual(t, original[8:], protected[8:len(original)])

		recovered, err := receiver.UnprotectRTCP(append([]byte{}, protected...))
		require.NoError(t, err)
		assert.Equal(t, original, recovered)

		_, err = receiver.UnprotectRTCP(append([]byte{}, protected...))
		assert.ErrorIs(t, err, ErrReplayFail)
	}
}

func TestRTCPRoundTripGCM(t *testing.T) {
	const ssrc = 0x55667788

	t.Run("with confidentiality", func(t *testing.T) {
		key := patternKey(28, 0x24)
		policy := testPolicy(ssrc, CryptoPolicyAEADAES128GCM(), key)
		sender := mustCreateSession(t, []*Policy{policy})
		receiver := mustCreateSession(t, []*Policy{testPolicy(ssrc, CryptoPolicyAEADAES128GCM(), key)})

		original := buildRTCPPacket(ssrc)
		protected, err := sender.ProtectRTCP(append([]byte{}, original...))
		require.NoError(t, err)
		// AEAD layout: header, sealed payload, tag, trailer.
		require.Len(t, protected, len(original)+16+srtcpTrailerLen)
		index, encrypted := splitSRTCPTrailer(protected)
		assert.True(t, encrypted)
		assert.Equal(t, uint32(1), index)

		recovered, err := receiver.UnprotectRTCP(append([]byte{}, protected...))
		require.NoError(t, err)
		assert.Equal(t, original, recovered)

		tampered := append([]byte{}, protected...)
		tampered[9] ^= 0x80
		_, err = receiver.UnprotectRTCP(tampered)
		assert.ErrorIs(t, err, ErrAuthFail)
	})

	t.Run("authentication only", func(t *testing.T) {
		key := patternKey(28, 0x6C)
		cp := CryptoPolicyAEADAES128GCM()
		cp.Services = ServiceAuthentication
		sender := mustCreateSession(t, []*Policy{testPolicy(ssrc, cp, key)})
		receiver := mustCreateSession(t, []*Policy{testPolicy(ssrc, cp, key)})

		original := buildRTCPPacket(ssrc)
		protected, err := sender.ProtectRTCP(append([]byte{}, original...))
		require.NoError(t, err)

		// Payload rides in the clear, E-bit stays low.
		assert.Equal(t, original, protected[:len(original)])
		_, encrypted := splitSRTCPTrailer(protected)
		assert.False(t, encrypted)

		tampered := append([]byte{}, protected...)
		tampered[12] ^= 0x01
		_, err = receiver.UnprotectRTCP(tampered)
		assert.ErrorIs(t, err, ErrAuthFail)

		recovered, err := receiver.UnprotectRTCP(append([]byte{}, protected...))
		require.NoError(t, err)
		assert.Equal(t, original, recovered)
	})
}

func TestRTCPTooShort(t *testing.T) {
	const ssrc = 0x10203040
	key := make([]byte, 30)
	receiver := mustCreateSession(t, []*Policy{testPolicy(ssrc, CryptoPolicyAESCM128HMACSHA1_80(), key)})

	_, err := receiver.UnprotectRTCP(buildRTCPPacket(ssrc)[:6])
	assert.ErrorIs(t, err, ErrBadParam)

	// Header and trailer fit, but not the auth tag.
	sender := mustCreateSession(t, []*Policy{testPolicy(ssrc, CryptoPolicyAESCM128HMACSHA1_80(), key)})
	protected, err := sender.ProtectRTCP(buildRTCPPacket(ssrc))
	require.NoError(t, err)
	_, err = receiver.UnprotectRTCP(protected[:rtcpHeaderLen+srtcpTrailerLen+10-1])
	assert.ErrorIs(t, err, ErrBadParam)
}

func TestRTCPSenderIndexOverflow(t *testing.T) {
	const ssrc = 0x0BADF00D
	var events []Event
	sender := mustCreateSession(t,
		[]*Policy{testPolicy(ssrc, CryptoPolicyAESCM128HMACSHA1_80(), make([]byte, 30))},
		WithEventHandler(func(e Event, _ uint32) { events = append(events, e) }),
	)
	sender.getStream(ssrc).rtcpRdb.windowStart = maxSRTCPIndex

	_, err := sender.ProtectRTCP(buildRTCPPacket(ssrc))
	assert.ErrorIs(t, err, ErrKeyExpired)
	assert.Contains(t, events, EventPacketIndexLimit)
}
