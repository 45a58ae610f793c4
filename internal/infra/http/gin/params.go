package ginserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rentalspot/internal/domain/shared/daterange"
)

func parseDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := daterange.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD): %w", field, err)
	}
	return t, nil
}

func parseDates(inField, inRaw, outField, outRaw string) (time.Time, time.Time, error) {
	in, err := parseDate(inField, inRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := parseDate(outField, outRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

func parseIntWithDefault(field, raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	return v, nil
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
