package ledger

// MintingState is the one-way minting latch. The only transition is
// MintingActive -> MintingFinished.
type MintingState uint8

const (
	MintingActive MintingState = iota
	MintingFinished
)

func (s MintingState) String() string {
	switch s {
	case MintingActive:
		return "active"
	case MintingFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Finished reports whether the latch has been set.
func (s MintingState) Finished() bool {
	return s == MintingFinished
}

// Finish returns the state after finishing minting. A finished latch cannot
// be finished again.
func (s MintingState) Finish() (MintingState, error) {
	if s.Finished() {
		return s, ErrMintingHasFinished
	}
	return MintingFinished, nil
}
