package course

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var errInvalidDuration = errors.New("invalid duration")

// ParseDuration parses a lesson duration written as "mm:ss" or "h:mm:ss".
func ParseDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Wrapf(errInvalidDuration, "%q", s)
	}

	var total time.Duration
	units := []time.Duration{time.Second, time.Minute, time.Hour}
	for i := range parts {
		part := parts[len(parts)-1-i]
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || (i < 2 && i < len(parts)-1 && n >= 60) {
			return 0, errors.Wrapf(errInvalidDuration, "%q", s)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}

// TotalDuration sums the durations of the lessons. Unparsable durations count as zero.
func (c Course) TotalDuration() time.Duration {
	var total time.Duration
	for _, l := range c.Lessons {
		if d, err := ParseDuration(l.Duration); err == nil {
			total += d
		}
	}
	return total
}
