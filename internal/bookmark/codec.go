package bookmark

import (
	"encoding/json"

	"cryptoverse/internal/domain"
)

// Encode serializes a collection into the durable mirror format: a JSON array
// of {id, name, symbol, image} objects. An empty collection encodes as "[]".
func Encode(bookmarks []domain.Bookmark) (string, error) {
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	data, err := json.Marshal(bookmarks)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a mirror payload. Records without an id and repeated ids are
// dropped so the no-duplicate invariant holds even for hand-edited payloads;
// the first occurrence wins.
func Decode(payload string) ([]domain.Bookmark, error) {
	var raw []domain.Bookmark
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, err
	}

	result := make([]domain.Bookmark, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, b := range raw {
		if b.Validate() != nil {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		result = append(result, b)
	}
	return result, nil
}
