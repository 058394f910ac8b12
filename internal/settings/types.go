package settings

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Hour is an hour of day, 0-23. It reads "7", "7 am", "3 pm", "noon" and
// "midnight".
type Hour int

// MarshalText implements encoding.TextMarshaler.
func (h Hour) MarshalText() ([]byte, error) {
	return []byte(strconv.Itoa(int(h))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hour) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	switch s {
	case "midnight":
		*h = 0
		return nil
	case "noon":
		*h = 12
		return nil
	}
	suffix := ""
	if strings.HasSuffix(s, "am") || strings.HasSuffix(s, "pm") {
		suffix = s[len(s)-2:]
		s = strings.TrimSpace(s[:len(s)-2])
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid hour %q", string(b))
	}
	if suffix != "" {
		if n < 1 || n > 12 {
			return fmt.Errorf("hour %q out of range", string(b))
		}
		n %= 12
		if suffix == "pm" {
			n += 12
		}
	}
	if n < 0 || n > 23 {
		return fmt.Errorf("hour %q out of range", string(b))
	}
	*h = Hour(n)
	return nil
}

// Duration is a bin width. It reads Go durations ("1h", "15m") and labels
// such as "15 minutes" or "2 hours".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	s := time.Duration(d).String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

var labelPattern = regexp.MustCompile(`^(\d+)\s*(minutes?|mins?|t|hours?|h)$`)

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}
	m := labelPattern.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("invalid bin width %q", string(b))
	}
	n, _ := strconv.Atoi(m[1])
	unit := time.Hour
	if strings.HasPrefix(m[2], "m") || m[2] == "t" {
		unit = time.Minute
	}
	*d = Duration(time.Duration(n) * unit)
	return nil
}
