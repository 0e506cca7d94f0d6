package domain

import "fmt"

// Amounts are int64 values in the smallest currency unit (cents). The fee
// rate is expressed in basis points so fee math stays in integers.
const (
	// FeeRateDivisor converts basis points to a fraction.
	FeeRateDivisor = 10_000

	// DefaultFeeRateBPS is the entry/exit fee applied on token deposit and
	// withdrawal: 250 basis points, i.e. 2.5%.
	DefaultFeeRateBPS = 250
)

// CheckedAdd returns a+b or ErrOverflow if the sum is not representable.
func CheckedAdd(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}

// CheckedMul returns a*b or ErrOverflow if the product is not representable.
func CheckedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/b != a {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return product, nil
}

// Fee computes floor(amount * rateBPS / 10000). Truncation is always toward
// zero; substituting rounding would break the conservation invariant
// (sum of balances + burned == minted).
func Fee(amount int64, rateBPS int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if rateBPS < 0 || rateBPS > FeeRateDivisor {
		return 0, fmt.Errorf("%w: fee rate %d bps", ErrInvalidAmount, rateBPS)
	}
	scaled, err := CheckedMul(amount, rateBPS)
	if err != nil {
		return 0, err
	}
	return scaled / FeeRateDivisor, nil
}
