package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func TestCursorRoundTrip(t *testing.T) {
	sentAt := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	cursor := CursorFor(models.Message{SentAt: sentAt, Sequence: 42})

	token := cursor.Encode()
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, decoded.SentAt.Equal(sentAt))
	assert.Equal(t, int64(42), decoded.Sequence)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{
		"%%%not-base64%%%",
		"aGVsbG8",          // decodes but has no separator
		"YWJjOmRlZg",       // decodes to abc:def, non-numeric
		"MTcwMDAwMDAwMDph", // numeric nanos, non-numeric sequence
	} {
		_, err := DecodeCursor(token)
		assert.Error(t, err, "token %q", token)
	}
}
