package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"   ", ""},
		{"Stage 1", "Stage 1"},
		{"  Stage \t  1 \n", "Stage 1"},
		{"Begin  CPR", "Begin CPR"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeWhitespace(tt.input), "input %q", tt.input)
	}
}

func TestCapitalizeWords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"lower case", "pulse check", "Pulse Check"},
		{"mixed case word", "oRDER cOOLING", "Order Cooling"},
		{"acronym kept", "Order EKG", "Order EKG"},
		{"digits with upper unit kept", "Defib 100J", "Defib 100J"},
		{"digits with lower unit", "100j test", "100j Test"},
		{"parenthesized word", "Defib (UNsynchronized Shock)", "Defib (Unsynchronized Shock)"},
		{"padded parentheses", "Defib   ( UNsynchronized   Shock  )   100J ", "Defib (Unsynchronized Shock) 100J"},
		{"hyphenated", "Order Chest X-ray", "Order Chest X-ray"},
		{"punctuation", "punctuation, should work!", "Punctuation, Should Work!"},
		{"parenthesized number", "Insert Lactated Ringers (1 Liter)", "Insert Lactated Ringers (1 Liter)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CapitalizeWords(tt.input))
		})
	}
}
