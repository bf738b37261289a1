package constants

const (
	MAX_PAGE_SIZE          = 100
	DEFAULT_PAGE_SIZE      = 20
	MAX_SEED_NAMES         = 500
	MAX_REQUEST_BODY_BYTES = 64 << 10
)
