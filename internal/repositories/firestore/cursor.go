package firestore

import (
	"errors"
	"time"

	"github.com/shiny-beauty/api/internal/platform/pagination"
)

// List cursors carry the sort key of the last returned document. Timestamps
// travel as RFC3339 strings so JSON round-tripping cannot lose precision.
func encodeListToken(ts time.Time, id string) string {
	token, err := pagination.EncodeToken(pagination.Cursor{
		StartAfter: []any{ts.UTC().Format(time.RFC3339Nano), id},
	})
	if err != nil {
		return ""
	}
	return token
}

func decodeListToken(token string) (time.Time, string, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", errors.New("malformed cursor")
	}
	rawTime, ok := cursor.StartAfter[0].(string)
	if !ok {
		return time.Time{}, "", errors.New("malformed cursor timestamp")
	}
	id, ok := cursor.StartAfter[1].(string)
	if !ok {
		return time.Time{}, "", errors.New("malformed cursor id")
	}
	ts, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return time.Time{}, "", err
	}
	return ts.UTC(), id, nil
}
