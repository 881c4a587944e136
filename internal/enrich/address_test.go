package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddressRange(t *testing.T) {
	cases := []struct {
		in   string
		want AddressRange
	}{
		{"123", AddressRange{Number: 123, HasNumber: true}},
		{"123-A", AddressRange{Number: 123, HasNumber: true, Unit: "A"}},
		{"A-1", AddressRange{Unit: "1"}},
		{"", AddressRange{}},
		{"  42 ", AddressRange{Number: 42, HasNumber: true}},
		{"12-B-3", AddressRange{Number: 12, HasNumber: true, Unit: "B-3"}},
		{"-5", AddressRange{Number: -5, HasNumber: true}},
		{"ABC", AddressRange{}},
		{"7-", AddressRange{Number: 7, HasNumber: true}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseAddressRange(tc.in), "ParseAddressRange(%q)", tc.in)
	}
}
