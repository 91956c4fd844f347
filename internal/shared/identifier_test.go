package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces hash and dot", "Invoice Type #1.A", "INVOICETYPE1_A"},
		{"underscore kept", "claim_form", "CLAIM_FORM"},
		{"multiple dots", "a.b.c", "A_B_C"},
		{"only symbols", "#!@ ", ""},
		{"empty", "", ""},
		{"non ascii dropped", "Factuur é 2", "FACTUUR2"},
		{"already clean", "KYC_1", "KYC_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToIdentifier(tt.in))
		})
	}
}
