package model

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// PriceKey is the canonical price field of a proposal's details.
	PriceKey = "price_total"
	// LegacyPriceKey is still written by older offer forms.
	LegacyPriceKey = "total_price"

	DefaultFeePercent = 5
)

var (
	ErrMissingPrice  = errors.New("proposal details carry no price_total")
	ErrInvalidPrice  = errors.New("proposal price is not a number")
	ErrPriceTooLarge = errors.New("proposal price does not fit in cents")

	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ExtractPrice reads the price from a proposal's details. The canonical key wins
// when both keys are present. Numbers and numeric strings are accepted.
func ExtractPrice(details map[string]interface{}) (decimal.Decimal, error) {
	raw, ok := details[PriceKey]
	if !ok || raw == nil {
		raw, ok = details[LegacyPriceKey]
	}
	if !ok || raw == nil {
		return decimal.Zero, ErrMissingPrice
	}

	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, ErrInvalidPrice
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, ErrInvalidPrice
		}
		return d, nil
	default:
		return decimal.Zero, ErrInvalidPrice
	}
}

// ToCents converts a major-unit price to integer cents, rounding half away from zero.
// Prices whose cents overflow int64 return ErrPriceTooLarge.
func ToCents(price decimal.Decimal) (int64, error) {
	cents := price.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, ErrPriceTooLarge
	}
	return cents.IntPart(), nil
}

// SplitFee computes the platform fee and the forwarder's net for a total in cents.
// fee = round(total * percent / 100), net = total - fee.
func SplitFee(totalCents int64, feePercent decimal.Decimal) (feeCents, netCents int64) {
	feeCents = decimal.NewFromInt(totalCents).Mul(feePercent).Div(hundred).Round(0).IntPart()
	return feeCents, totalCents - feeCents
}
