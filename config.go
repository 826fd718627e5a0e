package srtp

import "github.com/pion/logging"

// SessionKeys carries the keying material for one direction pair of a
// transport session, typically exported from a DTLS handshake or a
// MIKEY exchange.
type SessionKeys struct {
	LocalMasterKey   []byte
	LocalMasterSalt  []byte
	RemoteMasterKey  []byte
	RemoteMasterSalt []byte
}

// Config collects everything needed to start a transport session.
type Config struct {
	Keys          SessionKeys
	Profile       ProtectionProfile
	LoggerFactory logging.LoggerFactory

	// Window overrides the replay-window size for remote streams;
	// zero selects the engine default.
	Window uint32

	// OnEvent, when set, receives engine events from both the local
	// and remote sides of the session.
	OnEvent EventHandler
}

// enginePolicies maps a config to the template policies of the local
// (sending) and remote (receiving) engine sessions.
func (c *Config) enginePolicies() (local, remote *Policy, err error) {
	rtpPolicy, err := c.Profile.RTPPolicy()
	if err != nil {
		return nil, nil, err
	}
	rtcpPolicy, err := c.Profile.RTCPPolicy()
	if err != nil {
		return nil, nil, err
	}

	keyLen, err := c.Profile.KeyLen()
	if err != nil {
		return nil, nil, err
	}
	saltLen, err := c.Profile.SaltLen()
	if err != nil {
		return nil, nil, err
	}
	if len(c.Keys.LocalMasterKey) != keyLen || len(c.Keys.RemoteMasterKey) != keyLen {
		return nil, nil, badParamf("master key must be %d bytes for %v", keyLen, c.Profile)
	}
	if len(c.Keys.LocalMasterSalt) != saltLen || len(c.Keys.RemoteMasterSalt) != saltLen {
		return nil, nil, badParamf("master salt must be %d bytes for %v", saltLen, c.Profile)
	}

	localKey := make([]byte, 0, keyLen+saltLen)
	localKey = append(localKey, c.Keys.LocalMasterKey...)
	localKey = append(localKey, c.Keys.LocalMasterSalt...)
	remoteKey := make([]byte, 0, keyLen+saltLen)
	remoteKey = append(remoteKey, c.Keys.RemoteMasterKey...)
	remoteKey = append(remoteKey, c.Keys.RemoteMasterSalt...)

	local = &Policy{
		SSRC: SSRCSpec{Type: SSRCAnyOutbound},
		RTP:  rtpPolicy,
		RTCP: rtcpPolicy,
		Key:  localKey,
	}
	remote = &Policy{
		SSRC:       SSRCSpec{Type: SSRCAnyInbound},
		RTP:        rtpPolicy,
		RTCP:       rtcpPolicy,
		Key:        remoteKey,
		WindowSize: c.Window,
	}
	return local, remote, nil
}
