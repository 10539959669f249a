package infra

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/disintegration/imaging"
)

func pngBody(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(64, 64, color.NRGBA{R: 247, G: 147, B: 26, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestIconDownloader_DownloadAndCache(t *testing.T) {
	body := pngBody(t)
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer server.Close()

	d, err := NewIconDownloader(t.TempDir())
	if err != nil {
		t.Fatalf("NewIconDownloader failed: %v", err)
	}

	path, err := d.DownloadIcon(context.Background(), "bitcoin", server.URL+"/large.png")
	if err != nil {
		t.Fatalf("DownloadIcon failed: %v", err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("failed to open saved icon: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, IconSize, IconSize) {
		t.Errorf("expected %dx%d icon, got %v", IconSize, IconSize, img.Bounds())
	}

	// Second call is a cache hit
	if _, err := d.DownloadIcon(context.Background(), "bitcoin", server.URL+"/large.png"); err != nil {
		t.Fatalf("cached DownloadIcon failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 download, got %d", calls)
	}
}

func TestIconDownloader_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	d, _ := NewIconDownloader(t.TempDir())

	t.Run("bad status", func(t *testing.T) {
		if _, err := d.DownloadIcon(context.Background(), "ethereum", server.URL); err == nil {
			t.Error("expected error for 404")
		}
		if _, err := os.Stat(d.GetIconPath("ethereum")); err == nil {
			t.Error("no file should be written on failure")
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		if got := d.GetIconPath("../../etc/passwd"); got != d.GetIconPath("etcpasswd") {
			t.Errorf("id was not sanitized: %s", got)
		}
		if _, err := d.DownloadIcon(context.Background(), "../", server.URL); err == nil {
			t.Error("expected error for empty sanitized id")
		}
	})
}
