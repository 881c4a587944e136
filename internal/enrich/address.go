package enrich

import (
	"strconv"
	"strings"
)

// AddressRange is a house number split from its unit designator.
// HasNumber is false when no leading integer was found.
type AddressRange struct {
	Number    int64
	HasNumber bool
	Unit      string
}

// ParseAddressRange splits values like "123", "123-A" or "A-1". A plain
// integer is a number with an empty unit. Otherwise the value is split at
// the first '-': the left side becomes the number when it is an integer
// and the right side is the unit. Anything else has neither.
func ParseAddressRange(s string) AddressRange {
	s = strings.TrimSpace(s)
	if s == "" {
		return AddressRange{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return AddressRange{Number: n, HasNumber: true}
	}
	left, right, found := strings.Cut(s, "-")
	if !found {
		return AddressRange{}
	}
	out := AddressRange{Unit: strings.TrimSpace(right)}
	if n, err := strconv.ParseInt(strings.TrimSpace(left), 10, 64); err == nil {
		out.Number, out.HasNumber = n, true
	}
	return out
}
