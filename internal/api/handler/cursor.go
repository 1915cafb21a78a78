package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/trade-insights/internal/storage"
)

// DecodeRunCursor parses the opaque next_cursor of GET /runs
func DecodeRunCursor(cursorStr string) (*storage.RunCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var startedAt, id int64
	if _, err := fmt.Sscanf(parts[0], "%d", &startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at in cursor: %w", err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &id); err != nil {
		return nil, fmt.Errorf("invalid id in cursor: %w", err)
	}

	return &storage.RunCursor{
		StartedAt: time.Unix(0, startedAt).UTC(),
		ID:        id,
	}, nil
}

// EncodeRunCursor is the inverse of DecodeRunCursor
func EncodeRunCursor(cursor storage.RunCursor) string {
	cs := fmt.Sprintf("%d|%d", cursor.StartedAt.UnixNano(), cursor.ID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
