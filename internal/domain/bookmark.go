package domain

import "strings"

// Bookmark is a coin the user saved for quick access.
// Records are immutable once created; a toggle either adds or removes the whole record.
type Bookmark struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image"`
}

// Validate rejects records that cannot be keyed.
func (b Bookmark) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrInvalidBookmark
	}
	return nil
}

// BookmarkFromCoin builds a bookmark record from a market list entry.
func BookmarkFromCoin(c MarketCoin) Bookmark {
	return Bookmark{
		ID:     c.ID,
		Name:   c.Name,
		Symbol: c.Symbol,
		Image:  c.Image,
	}
}

// BookmarkFromDetail builds a bookmark record from a coin detail document.
// The detail page bookmarks the large image variant.
func BookmarkFromDetail(d CoinDetail) Bookmark {
	return Bookmark{
		ID:     d.ID,
		Name:   d.Name,
		Symbol: d.Symbol,
		Image:  d.Image.Large,
	}
}

// ContainsBookmark reports whether id appears in the collection.
func ContainsBookmark(bookmarks []Bookmark, id string) bool {
	return IndexOfBookmark(bookmarks, id) >= 0
}

// IndexOfBookmark returns the position of id in the collection or -1.
func IndexOfBookmark(bookmarks []Bookmark, id string) int {
	for i, b := range bookmarks {
		if b.ID == id {
			return i
		}
	}
	return -1
}
