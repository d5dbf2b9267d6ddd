package helpers

import "slices"

const MaxSymbolLength = 10

// ValidIntervals are the bar sizes the chart endpoint accepts.
var ValidIntervals = []string{
	"1m", "2m", "5m", "15m", "30m", "60m", "90m",
	"1h", "1d", "5d", "1wk", "1mo", "3mo",
}

// -----------------------------------------------------------------------------

// ValidateSymbol accepts 1-10 ASCII letters, digits, dots and hyphens.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return NewValidationError("invalid ticker symbol: empty")
	}
	if len(symbol) > MaxSymbolLength {
		return NewValidationError("invalid ticker symbol %q: longer than %d characters", symbol, MaxSymbolLength)
	}

	for _, c := range symbol {
		isAlnum := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !isAlnum && c != '.' && c != '-' {
			return NewValidationError("invalid ticker symbol %q: unexpected character %q", symbol, c)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func ValidateInterval(interval string) error {
	if !slices.Contains(ValidIntervals, interval) {
		return NewValidationError("invalid interval: %s", interval)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ValidateHistory checks the inputs of a chart request.
func ValidateHistory(periodDays int, interval string) error {
	if periodDays <= 0 {
		return NewValidationError("period days must be positive, got %d", periodDays)
	}
	return ValidateInterval(interval)
}

// -----------------------------------------------------------------------------

// DaysToPeriod maps a day count onto the range strings the chart endpoint knows.
func DaysToPeriod(days int) string {
	switch {
	case days <= 1:
		return "1d"
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	case days <= 1825:
		return "5y"
	case days <= 3650:
		return "10y"
	}
	return "max"
}
