package escrow

import "math"

// Payout is the pot released to the winner. It fails closed instead of
// wrapping.
func Payout(stake int64) (int64, error) {
	return MulAmount(stake, 2)
}

// MulAmount multiplies two non-negative amounts.
func MulAmount(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrMathOverflow
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, ErrMathOverflow
	}
	return a * b, nil
}

// AddAmount adds two non-negative amounts.
func AddAmount(a, b int64) (int64, error) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}
