package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSize(t *testing.T) {
	tests := []struct {
		name    string
		bytes   int64
		wantErr bool
	}{
		{"zero", 0, false},
		{"normal", 1 << 20, false},
		{"max", MaxFileSize, false},
		{"negative", -1, true},
		{"over max", MaxFileSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSize(tt.bytes)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bytes, s.Bytes())
		})
	}
}

func TestSizeArithmetic(t *testing.T) {
	a, err := NewSize(400)
	require.NoError(t, err)
	b, err := NewSize(100)
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(500), sum.Bytes())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(300), diff.Bytes())

	_, err = b.Sub(a)
	require.Error(t, err, "subtraction below zero must fail")
}

func TestSizeHuman(t *testing.T) {
	s, err := NewSize(1500000)
	require.NoError(t, err)
	assert.Equal(t, "1.5 MB", s.Human())
}
