package services

import "errors"

// Lead service errors
var (
	ErrDepositNotFinite    = errors.New("deposit bounds must be finite numbers")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
	ErrDepositRangeInverse = errors.New("deposit_min must not exceed deposit_max")
)
