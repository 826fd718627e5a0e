package srtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wildcardPolicy(typ SSRCType, cp CryptoPolicy, key []byte) *Policy {
	return &Policy{
		SSRC: SSRCSpec{Type: typ},
		RTP:  cp,
		RTCP: cp,
		Key:  key,
	}
}

func TestAddStreamValidation(t *testing.T) {
	key := make([]byte, 30)
	cp := CryptoPolicyAESCM128HMACSHA1_80()

	s := mustCreateSession(t, nil)

	require.NoError(t, s.AddStream(testPolicy(1, cp, key)))
	assert.ErrorIs(t, s.AddStream(testPolicy(1, cp, key)), ErrBadParam)

	require.NoError(t, s.AddStream(wildcardPolicy(SSRCAnyInbound, cp, key)))
	assert.ErrorIs(t, s.AddStream(wildcardPolicy(SSRCAnyOutbound, cp, key)), ErrBadParam)

	assert.ErrorIs(t, s.AddStream(&Policy{RTP: cp, RTCP: cp, Key: key}), ErrBadParam)
	assert.ErrorIs(t, s.AddStream(nil), ErrBadParam)
}

func TestAddStreamBadWindowSize(t *testing.T) {
	key := make([]byte, 30)
	cp := CryptoPolicyAESCM128HMACSHA1_80()

	for _, ws := range []uint32{63, 0x8000} {
		p := testPolicy(1, cp, key)
		p.WindowSize = ws
		_, err := CreateSession([]*Policy{p})
		assert.ErrorIs(t, err, ErrBadParam, "window size %d", ws)
	}
	for _, ws := range []uint32{0, 64, 0x7FFF} {
		p := testPolicy(1, cp, key)
		p.WindowSize = ws
		_, err := CreateSession([]*Policy{p})
		assert.NoError(t, err, "window size %d", ws)
	}
}

func TestAddStreamShortMasterKey(t *testing.T) {
	p := testPolicy(1, CryptoPolicyAESCM128HMACSHA1_80(), make([]byte, 16))
	_, err := CreateSession([]*Policy{p})
	assert.ErrorIs(t, err, ErrBadParam)
}

func TestRemoveStream(t *testing.T) {
	key := make([]byte, 30)
	cp := CryptoPolicyAESCM128HMACSHA1_80()
	s := mustCreateSession(t, []*Policy{testPolicy(7, cp, key)})

	require.NoError(t, s.RemoveStream(7))
	assert.ErrorIs(t, s.RemoveStream(7), ErrNoContext)

	_, err := s.Protect(buildRTPPacket(t, 7, 1, []byte("x")))
	assert.ErrorIs(t, err, ErrNoContext)
}

// An inbound template clones a receiver-directed stream on the first
// unprotected packet of a new SSRC; the clone shares crypto primitives
// with the template, and using the SSRC for sending afterwards is a
// collision.
func TestTemplateCloneOnFirstUnprotect(t *testing.T) {
	const ssrc = 0xABCD1234
	key := patternKey(30, 0x7E)
	cp := CryptoPolicyAESCM128HMACSHA1_80()

	var events []Event
	receiver := mustCreateSession(t,
		[]*Policy{wildcardPolicy(SSRCAnyInbound, cp, key)},
		WithEventHandler(func(e Event, eventSSRC uint32) {
			events = append(events, e)
			assert.Equal(t, uint32(ssrc), eventSSRC)
		}),
	)
	sender := mustCreateSession(t, []*Policy{testPolicy(ssrc, cp, key)})

	original := buildRTPPacket(t, ssrc, 1, []byte("first sight"))
	protected, err := sender.Protect(append([]byte{}, original...))
	require.NoError(t, err)

	recovered, err := receiver.Unprotect(protected)
	require.NoError(t, err)
	assert.Equal(t, original, recovered)

	clone := receiver.getStream(ssrc)
	require.NotNil(t, clone)
	assert.Equal(t, streamReceiver, clone.direction)

	// Shared by reference with the template.
	template := receiver.template
	assert.True(t, clone.rtpCipher == template.rtpCipher)
	assert.True(t, clone.rtpAuth == template.rtpAuth)
	assert.True(t, clone.rtcpCipher == template.rtcpCipher)
	assert.True(t, clone.rtcpAuth == template.rtcpAuth)
	assert.True(t, clone.limit == template.limit)
	// Replay state is per-clone.
	assert.True(t, clone.rtpRdbx != template.rtpRdbx)
	assert.True(t, clone.rtcpRdb != template.rtcpRdb)

	// Sending on a receiver-pinned stream collides, once per call.
	_, err = receiver.Protect(buildRTPPacket(t, ssrc, 2, []byte("wrong way")))
	require.NoError(t, err)
	assert.Equal(t, []Event{EventSSRCCollision}, events)
	assert.Equal(t, streamReceiver, clone.direction)
}

// A failed authentication against the template must not leave any
// stream behind.
func TestTemplateNotPromotedOnAuthFailure(t *testing.T) {
	const ssrc = 0x44556677
	cp := CryptoPolicyAESCM128HMACSHA1_80()

	receiver := mustCreateSession(t, []*Policy{wildcardPolicy(SSRCAnyInbound, cp, patternKey(30, 0x01))})
	sender := mustCreateSession(t, []*Policy{testPolicy(ssrc, cp, patternKey(30, 0x02))})

	protected, err := sender.Protect(buildRTPPacket(t, ssrc, 1, []byte("keyed differently")))
	require.NoError(t, err)

	_, err = receiver.Unprotect(protected)
	assert.ErrorIs(t, err, ErrAuthFail)
	assert.Nil(t, receiver.getStream(ssrc))
}

func TestOutboundTemplateClonesOnProtect(t *testing.T) {
	key := patternKey(30, 0x3C)
	cp := CryptoPolicyAESCM128HMACSHA1_80()

	sender := mustCreateSession(t, []*Policy{wildcardPolicy(SSRCAnyOutbound, cp, key)})

	for _, ssrc := range []uint32{10, 20, 30} {
		_, err := sender.Protect(buildRTPPacket(t, ssrc, 1, []byte("x")))
		require.NoError(t, err)
		str := sender.getStream(ssrc)
		require.NotNil(t, str)
		assert.Equal(t, streamSender, str.direction)
	}
}

func TestSessionUserData(t *testing.T) {
	s := mustCreateSession(t, nil)
	assert.Nil(t, s.UserData())

	type carrier struct{ n int }
	s.SetUserData(&carrier{n: 3})
	assert.Equal(t, 3, s.UserData().(*carrier).n)

	s.SetUserData(nil)
	assert.Nil(t, s.UserData())
}

func TestSessionCreateRollsBackOnBadPolicy(t *testing.T) {
	key := make([]byte, 30)
	cp := CryptoPolicyAESCM128HMACSHA1_80()

	bad := testPolicy(2, cp, key)
	bad.WindowSize = 1

	_, err := CreateSession([]*Policy{testPolicy(1, cp, key), bad})
	assert.ErrorIs(t, err, ErrBadParam)
}

func TestStreamTeardownZeroizesSalts(t *testing.T) {
	key := patternKey(30, 0x5A)
	s := mustCreateSession(t, []*Policy{testPolicy(9, CryptoPolicyAESCM128HMACSHA1_80(), key)})

	str := s.getStream(9)
	require.NotNil(t, str)
	require.NotEqual(t, [aeadSaltLen]byte{}, str.rtpSalt)

	require.NoError(t, s.RemoveStream(9))
	assert.Equal(t, [aeadSaltLen]byte{}, str.rtpSalt)
	assert.Equal(t, [aeadSaltLen]byte{}, str.rtcpSalt)
}
