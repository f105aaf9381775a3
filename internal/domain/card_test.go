package domain

import (
	"strconv"
	"testing"
)

func TestValidCardNumber(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"4000003972196501", true},
		{"4000003972196502", false},
		{"400000397219650", false},
		{"40000039721965011", false},
		{"40000039721965a2", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidCardNumber(tt.number); got != tt.valid {
			t.Errorf("ValidCardNumber(%q) = %v, want %v", tt.number, got, tt.valid)
		}
	}
}

func TestLuhnChecksumProducesValidNumber(t *testing.T) {
	for _, payload := range []string{"400000397219650", "400000000000000", "400000123456789"} {
		number := payload + strconv.Itoa(LuhnChecksum(payload))
		if !ValidCardNumber(number) {
			t.Errorf("expected %s to be valid", number)
		}
	}
}
