package util

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	suffix string
	scale  int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// SizeBytes parses a size such as "10MB", "512kb" or "1024" into bytes.
// Units are binary.
func SizeBytes(s string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	scale := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(v, u.suffix) {
			v, scale = strings.TrimSpace(v[:len(v)-len(u.suffix)]), u.scale
			break
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * scale, nil
}

// ParseSize is SizeBytes with a fallback for empty or malformed input.
func ParseSize(s string, defaultBytes int64) int64 {
	n, err := SizeBytes(s)
	if err != nil {
		return defaultBytes
	}
	return n
}
