package srtp

import (
	"errors"
	"fmt"
)

// Status sentinels returned by the engine. Callers match them with
// errors.Is; the data path wraps them with context where useful.
var (
	// ErrBadParam reports an argument or packet that violates a
	// structural precondition (truncated header, bad window size).
	ErrBadParam = errors.New("srtp: invalid parameter")

	// ErrInitFail reports a primitive that could not be constructed
	// from the supplied policy (unknown id, wrong key length).
	ErrInitFail = errors.New("srtp: initialization failed")

	// ErrNoContext reports a packet whose SSRC matches no stream and
	// no template exists to clone one from.
	ErrNoContext = errors.New("srtp: no stream context for SSRC")

	// ErrReplayFail reports an index inside the replay window that has
	// already been seen.
	ErrReplayFail = errors.New("srtp: replayed packet")

	// ErrReplayOld reports an index older than the replay window.
	ErrReplayOld = errors.New("srtp: packet index older than replay window")

	// ErrKeyExpired reports that the key-usage hard limit has been
	// reached or a packet index counter has been exhausted.
	ErrKeyExpired = errors.New("srtp: key usage limit reached")

	// ErrAuthFail reports an authentication tag mismatch.
	ErrAuthFail = errors.New("srtp: authentication failed")

	// ErrCipherFail reports a failure signaled by a cipher primitive.
	ErrCipherFail = errors.New("srtp: cipher operation failed")

	// ErrParse reports a self-inconsistent RTCP header.
	ErrParse = errors.New("srtp: malformed packet header")

	// ErrCantCheck reports an SRTCP E-bit that contradicts the
	// configured confidentiality service.
	ErrCantCheck = errors.New("srtp: E-bit does not match policy")

	errStreamExists    = errors.New("srtp: stream already exists for SSRC")
	errTemplateExists  = errors.New("srtp: session already has a template stream")
	errSessionClosed   = errors.New("srtp: session is closed")
	errStreamNotInited = errors.New("srtp: stream has not been initialized")
)

func badParamf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadParam, fmt.Sprintf(format, args...))
}
