package file

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileID(t *testing.T) {
	id, err := NewFileID()
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	parsed, err := uuid.Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestParseFileID(t *testing.T) {
	id, err := NewFileID()
	require.NoError(t, err)

	roundTripped, err := ParseFileID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, roundTripped)

	_, err = ParseFileID("not-a-uuid")
	require.Error(t, err)
}

func TestUploadSessionIDOrdering(t *testing.T) {
	// v7 ids embed a timestamp, so later ids sort after earlier ones.
	first, err := NewUploadSessionID()
	require.NoError(t, err)
	second, err := NewUploadSessionID()
	require.NoError(t, err)

	assert.LessOrEqual(t, first.String(), second.String())
}
