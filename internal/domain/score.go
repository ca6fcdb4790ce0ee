package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeScore converts a display score ("85%", "85/100", "85") into the
// canonical raw/total pair. It belongs at ingestion boundaries only.
func NormalizeScore(display string) (raw, total int, err error) {
	s := strings.TrimSpace(display)
	if s == "" {
		return 0, 0, fmt.Errorf("%w: empty score", ErrMalformedScore)
	}
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		raw, err = parseWhole(pct)
		if err != nil {
			return 0, 0, err
		}
		total = 100
	} else if num, den, ok := strings.Cut(s, "/"); ok {
		if raw, err = parseWhole(num); err != nil {
			return 0, 0, err
		}
		if total, err = parseWhole(den); err != nil {
			return 0, 0, err
		}
	} else {
		if raw, err = parseWhole(s); err != nil {
			return 0, 0, err
		}
		total = 100
	}
	if total <= 0 || raw < 0 || raw > total {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedScore, display)
	}
	return raw, total, nil
}

func parseWhole(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedScore, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: negative score %q", ErrMalformedScore, s)
	}
	// Fractional percentages are rounded to whole points.
	return int(math.Round(f)), nil
}
