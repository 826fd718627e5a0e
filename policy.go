package srtp

import "fmt"

// SecurityServices selects which protections a policy applies.
type SecurityServices int

const (
	// ServiceNone applies neither confidentiality nor authentication.
	ServiceNone SecurityServices = 0
	// ServiceConfidentiality encrypts the packet body.
	ServiceConfidentiality SecurityServices = 1 << 0
	// ServiceAuthentication authenticates the packet.
	ServiceAuthentication SecurityServices = 1 << 1
	// ServiceConfAndAuth applies both protections.
	ServiceConfAndAuth = ServiceConfidentiality | ServiceAuthentication
)

// SSRCType tags how a policy binds to synchronization sources.
type SSRCType int

const (
	// SSRCUndefined is invalid in a policy handed to the engine.
	SSRCUndefined SSRCType = iota
	// SSRCSpecific binds the policy to a single SSRC value.
	SSRCSpecific
	// SSRCAnyInbound installs a receive-side template stream.
	SSRCAnyInbound
	// SSRCAnyOutbound installs a send-side template stream.
	SSRCAnyOutbound
)

// SSRCSpec is the tagged SSRC selector of a policy.
type SSRCSpec struct {
	Type  SSRCType
	Value uint32
}

// CryptoPolicy describes one direction's transforms: the cipher, its
// combined key+salt length, the authenticator, and the services to
// apply.
type CryptoPolicy struct {
	Cipher       CipherID
	CipherKeyLen int
	Auth         AuthID
	AuthKeyLen   int
	AuthTagLen   int
	Services     SecurityServices
}

// Policy configures one stream (or template). Key holds the master key
// immediately followed by the master salt. WindowSize zero selects the
// default replay window. AllowRepeatTx permits a sender to re-protect
// an identical packet index, for retransmission schemes that resend
// byte-identical packets.
type Policy struct {
	SSRC          SSRCSpec
	RTP           CryptoPolicy
	RTCP          CryptoPolicy
	Key           []byte
	WindowSize    uint32
	AllowRepeatTx bool
}

// Crypto-policy constructors for the profiles the engine ships with.

// CryptoPolicyAESCM128HMACSHA1_80 is the RFC 3711 default transform.
func CryptoPolicyAESCM128HMACSHA1_80() CryptoPolicy {
	return CryptoPolicy{
		Cipher:       CipherAESICM,
		CipherKeyLen: 30,
		Auth:         AuthHMACSHA1,
		AuthKeyLen:   20,
		AuthTagLen:   10,
		Services:     ServiceConfAndAuth,
	}
}

// CryptoPolicyAESCM128HMACSHA1_32 trims the auth tag to 32 bits.
func CryptoPolicyAESCM128HMACSHA1_32() CryptoPolicy {
	p := CryptoPolicyAESCM128HMACSHA1_80()
	p.AuthTagLen = 4
	return p
}

// CryptoPolicyAESCM256HMACSHA1_80 uses a 256-bit counter-mode key.
func CryptoPolicyAESCM256HMACSHA1_80() CryptoPolicy {
	p := CryptoPolicyAESCM128HMACSHA1_80()
	p.CipherKeyLen = 46
	return p
}

// CryptoPolicyAESCM256HMACSHA1_32 trims the auth tag to 32 bits.
func CryptoPolicyAESCM256HMACSHA1_32() CryptoPolicy {
	p := CryptoPolicyAESCM256HMACSHA1_80()
	p.AuthTagLen = 4
	return p
}

// CryptoPolicyNullCipherHMACSHA1_80 authenticates without encrypting.
func CryptoPolicyNullCipherHMACSHA1_80() CryptoPolicy {
	return CryptoPolicy{
		Cipher:       CipherNull,
		CipherKeyLen: 0,
		Auth:         AuthHMACSHA1,
		AuthKeyLen:   20,
		AuthTagLen:   10,
		Services:     ServiceAuthentication,
	}
}

// CryptoPolicyAEADAES128GCM authenticates and encrypts in one AEAD
// pass; the separate authenticator slot stays null.
func CryptoPolicyAEADAES128GCM() CryptoPolicy {
	return CryptoPolicy{
		Cipher:       CipherAES128GCM,
		CipherKeyLen: 28,
		Auth:         AuthNull,
		AuthKeyLen:   0,
		AuthTagLen:   16,
		Services:     ServiceConfAndAuth,
	}
}

// CryptoPolicyAEADAES256GCM is the 256-bit AEAD transform.
func CryptoPolicyAEADAES256GCM() CryptoPolicy {
	p := CryptoPolicyAEADAES128GCM()
	p.Cipher = CipherAES256GCM
	p.CipherKeyLen = 44
	return p
}

// ProtectionProfile names a negotiated SRTP profile.
type ProtectionProfile uint16

// Named profiles. The numeric values follow the DTLS-SRTP registry
// where one exists.
const (
	ProtectionProfileAes128CmHmacSha1_80 ProtectionProfile = 0x0001
	ProtectionProfileAes128CmHmacSha1_32 ProtectionProfile = 0x0002
	ProtectionProfileAes256CmHmacSha1_80 ProtectionProfile = 0x0003
	ProtectionProfileAes256CmHmacSha1_32 ProtectionProfile = 0x0004
	ProtectionProfileNullHmacSha1_80     ProtectionProfile = 0x0005
	ProtectionProfileNullHmacSha1_32     ProtectionProfile = 0x0006
	ProtectionProfileAeadAes128Gcm       ProtectionProfile = 0x0007
	ProtectionProfileAeadAes256Gcm       ProtectionProfile = 0x0008
)

func (p ProtectionProfile) String() string {
	switch p {
	case ProtectionProfileAes128CmHmacSha1_80:
		return "SRTP_AES128_CM_SHA1_80"
	case ProtectionProfileAes128CmHmacSha1_32:
		return "SRTP_AES128_CM_SHA1_32"
	case ProtectionProfileAes256CmHmacSha1_80:
		return "SRTP_AES256_CM_SHA1_80"
	case ProtectionProfileAes256CmHmacSha1_32:
		return "SRTP_AES256_CM_SHA1_32"
	case ProtectionProfileNullHmacSha1_80:
		return "SRTP_NULL_SHA1_80"
	case ProtectionProfileNullHmacSha1_32:
		return "SRTP_NULL_SHA1_32"
	case ProtectionProfileAeadAes128Gcm:
		return "SRTP_AEAD_AES_128_GCM"
	case ProtectionProfileAeadAes256Gcm:
		return "SRTP_AEAD_AES_256_GCM"
	}
	return fmt.Sprintf("unknown profile 0x%04x", uint16(p))
}

// KeyLen returns the master key length the profile expects.
func (p ProtectionProfile) KeyLen() (int, error) {
	switch p {
	case ProtectionProfileAes128CmHmacSha1_80, ProtectionProfileAes128CmHmacSha1_32,
		ProtectionProfileNullHmacSha1_80, ProtectionProfileAeadAes128Gcm:
		return 16, nil
	case ProtectionProfileAes256CmHmacSha1_80, ProtectionProfileAes256CmHmacSha1_32,
		ProtectionProfileAeadAes256Gcm:
		return 32, nil
	}
	return 0, badParamf("no key length for %v", p)
}

// SaltLen returns the master salt length the profile expects.
func (p ProtectionProfile) SaltLen() (int, error) {
	switch p {
	case ProtectionProfileAes128CmHmacSha1_80, ProtectionProfileAes128CmHmacSha1_32,
		ProtectionProfileAes256CmHmacSha1_80, ProtectionProfileAes256CmHmacSha1_32,
		ProtectionProfileNullHmacSha1_80:
		return 14, nil
	case ProtectionProfileAeadAes128Gcm, ProtectionProfileAeadAes256Gcm:
		return 12, nil
	}
	return 0, badParamf("no salt length for %v", p)
}

// RTPPolicy maps the profile to its RTP crypto policy. NULL_SHA1_32 is
// rejected: a 32-bit tag over an unencrypted stream offers nothing.
func (p ProtectionProfile) RTPPolicy() (CryptoPolicy, error) {
	switch p {
	case ProtectionProfileAes128CmHmacSha1_80:
		return CryptoPolicyAESCM128HMACSHA1_80(), nil
	case ProtectionProfileAes128CmHmacSha1_32:
		return CryptoPolicyAESCM128HMACSHA1_32(), nil
	case ProtectionProfileAes256CmHmacSha1_80:
		return CryptoPolicyAESCM256HMACSHA1_80(), nil
	case ProtectionProfileAes256CmHmacSha1_32:
		return CryptoPolicyAESCM256HMACSHA1_32(), nil
	case ProtectionProfileNullHmacSha1_80:
		return CryptoPolicyNullCipherHMACSHA1_80(), nil
	case ProtectionProfileAeadAes128Gcm:
		return CryptoPolicyAEADAES128GCM(), nil
	case ProtectionProfileAeadAes256Gcm:
		return CryptoPolicyAEADAES256GCM(), nil
	}
	return CryptoPolicy{}, badParamf("unsupported profile %v", p)
}

// RTCPPolicy maps the profile to its RTCP crypto policy. RFC 3711
// requires the 80-bit tag for RTCP, so 32-bit profiles are silently
// upgraded.
func (p ProtectionProfile) RTCPPolicy() (CryptoPolicy, error) {
	cp, err := p.RTPPolicy()
	if err != nil {
		return CryptoPolicy{}, err
	}
	if cp.Auth == AuthHMACSHA1 && cp.AuthTagLen == 4 {
		cp.AuthTagLen = 10
	}
	return cp, nil
}
