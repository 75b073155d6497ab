package file

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "uploads/abc.txt", false},
		{"nested tenant path", "tenants/acme/2024/01/report.pdf", false},
		{"single segment", "file.bin", false},
		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "uploads/../secrets", true},
		{"dot segment", "uploads/./x", true},
		{"empty segment", "uploads//x", true},
		{"drive prefix", "c:/windows", true},
		{"backslash", `uploads\evil`, true},
		{"control char", "uploads/a\x00b", true},
		{"reserved device name", "uploads/con.txt", true},
		{"reserved device upper", "NUL", true},
		{"overlong segment", "uploads/" + strings.Repeat("a", 256), true},
		{"overlong key", strings.Repeat("a/", 600) + "x", true},
		{"wildcard", "uploads/*.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewStorageKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, k.String())
		})
	}
}

func TestStorageKeyJoinAndBase(t *testing.T) {
	k, err := NewStorageKey("tenants/acme")
	require.NoError(t, err)

	joined, err := k.Join("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "tenants/acme/report.pdf", joined.String())
	assert.Equal(t, "report.pdf", joined.Base())

	_, err = k.Join("..")
	require.Error(t, err)
}
