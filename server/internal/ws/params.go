package ws

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"
)

// maxIntervalMs is the largest interval that fits in a time.Duration.
const maxIntervalMs = math.MaxInt64 / int64(time.Millisecond)

// maxSigma bounds how far from the mean a draw is assumed to land when
// checking that samples stay finite.
const maxSigma = 64

// Params are the per-session distribution and cadence settings.
type Params struct {
	Mean     float64
	Std      float64
	Interval time.Duration
}

// ParseParams reads mean, std and interval (milliseconds) from q. All three
// are required; std must be non-negative and interval at least 1 and small
// enough to fit a time.Duration.
func ParseParams(q url.Values) (Params, error) {
	var p Params
	var err error

	if p.Mean, err = parseFloat(q, "mean"); err != nil {
		return Params{}, err
	}
	if p.Std, err = parseFloat(q, "std"); err != nil {
		return Params{}, err
	}
	if p.Std < 0 {
		return Params{}, fmt.Errorf("query parameter std must be non-negative, got %v", p.Std)
	}
	if math.IsInf(math.Abs(p.Mean)+maxSigma*p.Std, 0) {
		return Params{}, fmt.Errorf("query parameters mean and std are too large to produce finite samples")
	}

	raw := q.Get("interval")
	if raw == "" {
		return Params{}, fmt.Errorf("query parameter interval is required")
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if errors.Is(err, strconv.ErrRange) || ms > maxIntervalMs {
		return Params{}, fmt.Errorf("query parameter interval must be at most %d, got %q", maxIntervalMs, raw)
	}
	if err != nil {
		return Params{}, fmt.Errorf("query parameter interval must be an integer, got %q", raw)
	}
	if ms < 1 {
		return Params{}, fmt.Errorf("query parameter interval must be at least 1, got %d", ms)
	}
	p.Interval = time.Duration(ms) * time.Millisecond

	return p, nil
}

func parseFloat(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, fmt.Errorf("query parameter %s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("query parameter %s must be a finite number, got %q", name, raw)
	}
	return v, nil
}
