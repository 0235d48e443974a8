// Package money formats the int64 minor-unit amounts used throughout the
// ledger domain as human-readable decimal strings, and back. All ledger
// arithmetic stays in int64 minor units (domain.Entry.Amount,
// domain.Account balances); this package exists only for the API/report
// boundary where a decimal string is friendlier than "150000000".
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// ToMinorUnits converts a human-readable decimal string to minor units at
// the given exponent. E.g. ToMinorUnits("19.99", 2) -> 1999.
// String manipulation avoids float precision loss on currency amounts.
func ToMinorUnits(amountStr string, exponent int) (int64, error) {
	if amountStr == "" {
		return 0, fmt.Errorf("money: amount is required")
	}

	negative := false
	if strings.HasPrefix(amountStr, "-") {
		negative = true
		amountStr = amountStr[1:]
	}

	parts := strings.SplitN(amountStr, ".", 2)
	intPart := parts[0]
	if intPart == "" {
		intPart = "0"
	}

	decPart := ""
	if len(parts) > 1 {
		decPart = parts[1]
	}
	if len(decPart) < exponent {
		decPart += strings.Repeat("0", exponent-len(decPart))
	} else if len(decPart) > exponent {
		decPart = decPart[:exponent]
	}

	combined := strings.TrimLeft(intPart+decPart, "0")
	if combined == "" {
		combined = "0"
	}

	value, err := strconv.ParseInt(combined, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q: %w", amountStr, err)
	}
	if negative {
		value = -value
	}
	return value, nil
}

// FromMinorUnits renders minor units as a decimal string at the given
// exponent. E.g. FromMinorUnits(1999, 2) -> "19.99".
func FromMinorUnits(amount int64, exponent int) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := strconv.FormatInt(amount, 10)
	if exponent == 0 {
		if negative {
			return "-" + str
		}
		return str
	}

	for len(str) <= exponent {
		str = "0" + str
	}

	pos := len(str) - exponent
	result := str[:pos] + "." + str[pos:]

	if negative {
		result = "-" + result
	}
	return result
}
