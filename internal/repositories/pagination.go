package repositories

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"messaging-service/internal/models"
)

// PageCursor anchors message pagination at a (sent_at, sequence) position.
type PageCursor struct {
	SentAt   time.Time
	Sequence int64
}

// CursorFor builds the cursor pointing at a message.
func CursorFor(msg models.Message) PageCursor {
	return PageCursor{SentAt: msg.SentAt, Sequence: msg.Sequence}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c PageCursor) Encode() string {
	raw := fmt.Sprintf("%d:%d", c.SentAt.UnixNano(), c.Sequence)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (PageCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return PageCursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return PageCursor{}, fmt.Errorf("decode cursor: malformed token")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return PageCursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return PageCursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	return PageCursor{SentAt: time.Unix(0, nanos).UTC(), Sequence: seq}, nil
}
