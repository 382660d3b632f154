package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text untouched", in: "alice", want: "alice"},
		{name: "percent escaped", in: "100%", want: `100\%`},
		{name: "underscore escaped", in: "snake_case", want: `snake\_case`},
		{name: "backslash escaped first", in: `a\%b`, want: `a\\\%b`},
		{name: "bare wildcard", in: "%", want: `\%`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeLike(tt.in))
		})
	}
}
