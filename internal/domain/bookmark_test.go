package domain

import (
	"errors"
	"testing"
)

func TestBookmark_Validate(t *testing.T) {
	if err := (Bookmark{ID: "bitcoin"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Bookmark{ID: "  "}).Validate(); !errors.Is(err, ErrInvalidBookmark) {
		t.Errorf("expected ErrInvalidBookmark, got %v", err)
	}
}

func TestBookmarkFromDetail_UsesLargeImage(t *testing.T) {
	var d CoinDetail
	d.ID, d.Name, d.Symbol = "bitcoin", "Bitcoin", "btc"
	d.Image.Small = "small.png"
	d.Image.Large = "large.png"

	b := BookmarkFromDetail(d)
	if b.Image != "large.png" {
		t.Errorf("expected large image, got %s", b.Image)
	}
	if b.ID != "bitcoin" || b.Symbol != "btc" {
		t.Errorf("unexpected record %+v", b)
	}
}

func TestIndexOfBookmark(t *testing.T) {
	list := []Bookmark{{ID: "bitcoin"}, {ID: "ethereum"}}

	if IndexOfBookmark(list, "ethereum") != 1 {
		t.Error("expected ethereum at index 1")
	}
	if ContainsBookmark(list, "solana") {
		t.Error("solana should not be contained")
	}
}
