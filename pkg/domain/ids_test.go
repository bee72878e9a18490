package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "healthnet/pkg/domain-errors"
)

// TestParseWorkerID_Invariants validates the parsing invariant:
// "IDs must be positive decimal integers"
func TestParseWorkerID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseWorkerID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseWorkerID("not-a-number")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero and negatives", func(t *testing.T) {
		for _, in := range []string{"0", "-4"} {
			_, err := ParseWorkerID(in)
			require.Error(t, err, in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("accepts padded positive id", func(t *testing.T) {
		id, err := ParseWorkerID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, WorkerID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

func TestParseRecordID(t *testing.T) {
	id, err := ParseRecordID("7")
	require.NoError(t, err)
	assert.Equal(t, RecordID(7), id)
	assert.False(t, id.IsZero())

	_, err = ParseRecordID("9223372036854775808")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
