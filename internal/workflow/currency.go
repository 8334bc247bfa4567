package workflow

import (
    "fmt"
    "math"
    "strconv"
    "strings"
)

// BaseCurrency is the currency every financial amount is normalized to
// at submission time. The entered amount, currency and rate are kept on
// the subscription so the conversion stays auditable.
const BaseCurrency = "INR"

// RateTable maps a currency code to how many units of the base currency
// one unit of it is worth. The base currency itself maps to 1.
type RateTable map[string]float64

// DefaultRates is the built-in conversion table used when no
// CURRENCY_RATES override is configured.
func DefaultRates() RateTable {
    return RateTable{
        "INR": 1,
        "USD": 83.50,
        "EUR": 90.20,
        "GBP": 105.60,
        "AED": 22.70,
        "SGD": 61.90,
    }
}

// ParseRates parses a "USD=83.5,EUR=90.2" style override string into a
// RateTable. The base currency is always present with rate 1. Malformed
// entries are rejected rather than skipped so a typo in the environment
// fails loudly at startup.
func ParseRates(s string) (RateTable, error) {
    t := RateTable{BaseCurrency: 1}
    for _, part := range strings.Split(s, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }
        code, val, ok := strings.Cut(part, "=")
        if !ok {
            return nil, fmt.Errorf("malformed rate entry %q", part)
        }
        rate, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
        if err != nil || rate <= 0 {
            return nil, fmt.Errorf("invalid rate for %s: %q", code, val)
        }
        t[strings.ToUpper(strings.TrimSpace(code))] = rate
    }
    return t, nil
}

// Convert normalizes an amount entered in the given currency to cents of
// the base currency, returning the converted amount and the rate used.
// Unknown currencies are a validation failure.
func (t RateTable) Convert(amountCents int64, currency string) (int64, float64, error) {
    code := strings.ToUpper(strings.TrimSpace(currency))
    if code == "" {
        code = BaseCurrency
    }
    rate, ok := t[code]
    if !ok {
        return 0, 0, fmt.Errorf("%w: unknown currency %q", ErrValidation, currency)
    }
    return int64(math.Round(float64(amountCents) * rate)), rate, nil
}
