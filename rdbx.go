package srtp

// Replay protection for SRTP. The extended 48-bit packet index
// (ROC << 16 | SEQ) is reconstructed from the 16-bit wire sequence
// number against the current high-water mark, then checked against a
// sliding window of already-seen indices.

const (
	seqMedian = 1 << 15
	seqMax    = 1 << 16

	minWindowSize     = 64
	maxWindowSize     = 0x8000
	defaultWindowSize = 128

	// Largest representable extended index.
	maxExtendedIndex = (uint64(1) << 48) - 1
)

// bitvector is a fixed-length bitmask. Bit length-1 tracks the current
// high-water index; lower bits track progressively older indices.
type bitvector struct {
	words  []uint64
	length uint32
}

func newBitvector(length uint32) bitvector {
	words := (length + 63) / 64
	return bitvector{words: make([]uint64, words), length: words * 64}
}

func (v *bitvector) get(i uint32) bool {
	return v.words[i>>6]>>(i&63)&1 == 1
}

func (v *bitvector) set(i uint32) {
	v.words[i>>6] |= 1 << (i & 63)
}

// shift moves the window forward by n positions: bit p+n becomes bit p
// and the oldest n bits fall off.
func (v *bitvector) shift(n uint32) {
	if n >= v.length {
		for i := range v.words {
			v.words[i] = 0
		}
		return
	}
	wordShift := int(n >> 6)
	bitShift := n & 63
	nw := len(v.words)
	for i := 0; i < nw; i++ {
		var w uint64
		if i+wordShift < nw {
			w = v.words[i+wordShift] >> bitShift
			if bitShift > 0 && i+wordShift+1 < nw {
				w |= v.words[i+wordShift+1] << (64 - bitShift)
			}
		}
		v.words[i] = w
	}
}

// rdbx holds the SRTP extended-index high-water mark and replay window.
// The zero index is ambiguous (nothing seen vs. packet zero seen); the
// window bit for the current index disambiguates, so a fresh rdbx
// accepts packet zero exactly once.
type rdbx struct {
	index  uint64
	window bitvector
}

// checkWindowSize normalizes and validates a replay-window size from
// policy: zero selects the default, anything outside [64, 0x8000) is
// rejected.
func checkWindowSize(ws uint32) (uint32, error) {
	if ws == 0 {
		return defaultWindowSize, nil
	}
	if ws < minWindowSize || ws >= maxWindowSize {
		return 0, badParamf("replay window size %d outside [%d, %d)", ws, minWindowSize, maxWindowSize)
	}
	return ws, nil
}

func newRdbx(windowSize uint32) (*rdbx, error) {
	ws, err := checkWindowSize(windowSize)
	if err != nil {
		return nil, err
	}
	return &rdbx{window: newBitvector(ws)}, nil
}

// estimate reconstructs the most likely extended index for the wire
// sequence number s and returns it with the signed distance from the
// current index. Until the index has moved past the sequence median
// the stream is considered young and s is taken at face value, which
// keeps a high first sequence number from borrowing a rollover that
// never happened.
func (r *rdbx) estimate(s uint16) (uint64, int32) {
	if r.index > seqMedian {
		return indexGuess(r.index, s)
	}
	return uint64(s), int32(s) - int32(uint16(r.index))
}

func indexGuess(local uint64, s uint16) (uint64, int32) {
	localROC := uint32(local >> 16)
	localSeq := uint16(local)

	guessROC := localROC
	diff := int32(s) - int32(localSeq)
	if localSeq < seqMedian {
		if diff > seqMedian {
			guessROC = localROC - 1
			diff -= seqMax
		}
	} else {
		if int32(localSeq)-seqMedian > int32(s) {
			guessROC = localROC + 1
			diff += seqMax
		}
	}
	return uint64(guessROC)<<16 | uint64(s), diff
}

// check reports whether an index at signed distance delta from the
// current high-water mark would be acceptable: ahead of the window is
// fine, behind the window is ErrReplayOld, inside the window it is
// ErrReplayFail iff the index has been seen.
func (r *rdbx) check(delta int32) error {
	switch {
	case delta > 0:
		return nil
	case int32(r.window.length)+delta <= 0:
		return ErrReplayOld
	case r.window.get(uint32(int32(r.window.length) - 1 + delta)):
		return ErrReplayFail
	}
	return nil
}

// add commits the index at distance delta, advancing the high-water
// mark and shifting the window when the packet is new. Callers must
// have passed check first; committing past the 48-bit index space
// fails with ErrKeyExpired.
func (r *rdbx) add(delta int32) error {
	if delta > 0 {
		if r.index+uint64(delta) > maxExtendedIndex {
			return ErrKeyExpired
		}
		r.index += uint64(delta)
		r.window.shift(uint32(delta))
		r.window.set(r.window.length - 1)
		return nil
	}
	r.window.set(uint32(int32(r.window.length) - 1 + delta))
	return nil
}
