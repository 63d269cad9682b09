package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ipv4 zeroes last octet", "203.0.113.42", "203.0.113.0"},
		{"ipv4 already zeroed", "10.0.0.0", "10.0.0.0"},
		{"ipv6 keeps /48", "2001:db8:abcd:1234::1", "2001:db8:abcd::"},
		{"ipv6 loopback", "::1", "::"},
		{"invalid input unchanged", "not-an-ip", "not-an-ip"},
		{"empty input unchanged", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AnonymizeIP(tc.input))
		})
	}
}
