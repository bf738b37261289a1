package domain

const (
	// Input limits
	MaxNameLength    = 128
	MaxURLLength     = 1024
	MaxContactLength = 256

	// BasisPoints is the denominator for every share expressed in bps
	BasisPoints = 10_000

	// Default shares
	DEFAULT_REBATE_BPS       = 1_000
	DEFAULT_HOLDER_SHARE_BPS = 9_000

	// ETHEREUM_ZERO_ADDRESS is the textual form of the "none" identity
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"
)
