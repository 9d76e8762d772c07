package helpers

import "github.com/shopspring/decimal"

// AmountDecimals is the number of minor-unit digits in one display unit.
const AmountDecimals = 9

// DisplayAmount renders minor units as a fixed-point string, 50000000 ->
// "0.050000000".
func DisplayAmount(minor int64) string {
	return decimal.New(minor, -AmountDecimals).StringFixed(AmountDecimals)
}
