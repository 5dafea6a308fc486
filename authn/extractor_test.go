package authn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid bearer token", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"empty header", "", ""},
		{"lowercase scheme", "bearer abc.def.ghi", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz", ""},
		{"no space after scheme", "Bearerabc", ""},
		{"scheme only", "Bearer ", ""},
		{"token with trailing space preserved", "Bearer abc ", "abc "},
		{"bare token without scheme", "abc.def.ghi", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBearerToken(tt.header))
		})
	}
}
