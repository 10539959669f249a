package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	globalJSON = `{"data":{"active_cryptocurrencies":14000,"markets":1100,
		"total_market_cap":{"usd":2500000000000},"total_volume":{"usd":95000000000},
		"market_cap_percentage":{"btc":52.4},"market_cap_change_percentage_24h_usd":-1.2}}`
	marketsJSON = `[
		{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"%[1]s/btc.png","current_price":65000,"market_cap":1280000000000,"market_cap_rank":1,"total_volume":30000000000,"price_change_percentage_24h":2.5},
		{"id":"ethereum","symbol":"eth","name":"Ethereum","image":"%[1]s/eth.png","current_price":3200,"market_cap":385000000000,"market_cap_rank":2,"total_volume":15000000000,"price_change_percentage_24h":-0.8}
	]`
	detailJSON = `{"id":"bitcoin","symbol":"btc","name":"Bitcoin","market_cap_rank":1,
		"description":{"en":"Bitcoin is a cryptocurrency. It launched in 2009. It is decentralized. It is scarce."},
		"image":{"large":"%s/bitcoin.png"},
		"links":{"homepage":["https://www.bitcoin.org/"],"subreddit_url":"https://www.reddit.com/r/Bitcoin/"},
		"market_data":{"current_price":{"usd":65000},"market_cap":{"usd":1280000000000},"total_volume":{"usd":30000000000},
		"ath":{"usd":73000},"price_change_percentage_24h":2.5,"circulating_supply":19700000,"total_supply":21000000,"max_supply":21000000},
		"tickers":[{"base":"BTC","target":"USDT"},{"base":"BTC","target":"USD"}]}`
	solanaJSON = `{"id":"solana","symbol":"sol","name":"Solana","market_cap_rank":5,
		"image":{"large":"%s/solana.png"},"market_data":{"current_price":{"usd":150}}}`
	historyJSON  = `{"prices":[[1704067200000,42000.5],[1704153600000,44100.25]]}`
	trendingJSON = `{"coins":[{"item":{"id":"pepe","name":"Pepe","symbol":"PEPE","market_cap_rank":30}},
		{"item":{"id":"sui","name":"Sui","symbol":"SUI","market_cap_rank":20}},
		{"item":{"id":"kaspa","name":"Kaspa","symbol":"KAS","market_cap_rank":25}},
		{"item":{"id":"bonk","name":"Bonk","symbol":"BONK","market_cap_rank":60}},
		{"item":{"id":"jupiter","name":"Jupiter","symbol":"JUP","market_cap_rank":70}}]}`
)

type fakeAPI struct {
	*httptest.Server
	detailCalls atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /global", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, globalJSON)
	})
	mux.HandleFunc("GET /coins/markets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, marketsJSON, api.URL)
	})
	mux.HandleFunc("GET /coins/{id}", func(w http.ResponseWriter, r *http.Request) {
		doc, ok := map[string]string{"bitcoin": detailJSON, "solana": solanaJSON}[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"coin not found"}`)
			return
		}
		api.detailCalls.Add(1)
		fmt.Fprintf(w, doc, api.URL)
	})
	mux.HandleFunc("GET /coins/{id}/market_chart", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, historyJSON)
	})
	mux.HandleFunc("GET /search/trending", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, trendingJSON)
	})
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
api:
  base_url: %s
  requests_per_minute: 0
storage:
  path: %s
  icon_dir: %s
logging:
  level: error
  dir: %s
`, baseURL, filepath.Join(dir, "app.db"), filepath.Join(dir, "icons"), filepath.Join(dir, "logs"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func run(t *testing.T, config string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), "test", append([]string{"--config", config}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestGlobal(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	out, _, err := run(t, cfg, "-o", "json", "global")
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 14000, stats["active_cryptocurrencies"])

	out, _, err = run(t, cfg, "-o", "table", "global")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Market Cap")
	assert.Contains(t, out, "$2.5T")
	assert.Contains(t, out, "52.40%")
}

func TestCoins_Search(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	out, _, err := run(t, cfg, "-o", "json", "coins", "--search", "ETH")
	require.NoError(t, err)
	var coins []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &coins))
	require.Len(t, coins, 1)
	assert.Equal(t, "ethereum", coins[0]["id"])

	out, _, err = run(t, cfg, "-o", "table", "coins", "-n", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Bitcoin")
	assert.Contains(t, out, "$65,000.00")
	assert.Contains(t, out, "$1.28T")
}

func TestCoin(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	out, _, err := run(t, cfg, "-o", "table", "coin", "bitcoin")
	require.NoError(t, err)
	assert.Contains(t, out, "bitcoin.org")
	assert.Contains(t, out, "reddit.com")
	assert.Contains(t, out, "21M")
	assert.Contains(t, out, "$73,000.00")

	_, _, err = run(t, cfg, "coin", "dogecoin")
	assert.ErrorContains(t, err, `coin "dogecoin" not found`)
	assert.ErrorContains(t, err, "404")
}

func TestHistory(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	out, _, err := run(t, cfg, "-o", "json", "history", "bitcoin", "--days", "7")
	require.NoError(t, err)
	var history struct {
		Prices []struct {
			Price string `json:"price"`
		} `json:"prices"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history.Prices, 2)
	assert.Equal(t, "44100.25", history.Prices[1].Price)

	out, _, err = run(t, cfg, "-o", "table", "history", "bitcoin", "-d", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "7d")
	assert.Contains(t, out, "$44,100.25")
	assert.Contains(t, out, "+5.00%")
}

func TestTrending(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	out, _, err := run(t, cfg, "-o", "json", "trending")
	require.NoError(t, err)
	var coins []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &coins))
	assert.Len(t, coins, 4)

	out, _, err = run(t, cfg, "-o", "json", "trending", "--limit", "0")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &coins))
	assert.Len(t, coins, 5)
}

func TestBookmarks_ToggleAndList(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	// Coins on the list are recorded as the list shows them.
	out, _, err := run(t, cfg, "bookmarks", "toggle", "bitcoin", "-o", "table")
	require.NoError(t, err)
	assert.Equal(t, "Added Bitcoin (bitcoin) to bookmarks\n", out)
	assert.Equal(t, int32(0), api.detailCalls.Load())

	// Others come from their detail document.
	out, _, err = run(t, cfg, "bookmarks", "toggle", "solana", "-o", "table")
	require.NoError(t, err)
	assert.Equal(t, "Added Solana (solana) to bookmarks\n", out)
	assert.Equal(t, int32(1), api.detailCalls.Load())

	out, _, err = run(t, cfg, "-o", "json", "bookmarks", "list")
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "bitcoin", list[0]["id"])
	assert.Equal(t, api.URL+"/btc.png", list[0]["image"])
	assert.Equal(t, "solana", list[1]["id"])
	assert.Equal(t, api.URL+"/solana.png", list[1]["image"])

	// Removing does not need the detail document.
	out, _, err = run(t, cfg, "-o", "table", "bm", "toggle", "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "Removed Bitcoin (bitcoin) from bookmarks\n", out)
	_, _, err = run(t, cfg, "-o", "table", "bm", "toggle", "solana")
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.detailCalls.Load())

	out, _, err = run(t, cfg, "-o", "json", "bookmarks", "list")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestBookmarks_ToggleUnknownCoin(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	_, _, err := run(t, cfg, "bookmarks", "toggle", "dogecoin")
	assert.ErrorContains(t, err, `coin "dogecoin" not found`)

	out, _, err := run(t, cfg, "-o", "json", "bookmarks", "list")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

// Output written to the process stdout, not only to the command's writer,
// must stay parseable.
func TestBookmarks_JSONListOnFreshDatabaseIsClean(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = orig })

	captured := make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(r)
		captured <- b
	}()

	runErr := Run(context.Background(), "test", []string{"--config", cfg, "-o", "json", "bookmarks", "list"}, os.Stdout, io.Discard)
	os.Stdout = orig
	require.NoError(t, w.Close())
	out := <-captured
	require.NoError(t, runErr)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(out, &list), "stdout was %q", out)
	assert.Empty(t, list)
}

func TestTheme(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	out, _, err := run(t, cfg, "-o", "table", "theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out)

	out, _, err = run(t, cfg, "-o", "table", "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	out, _, err = run(t, cfg, "-o", "json", "theme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"darkMode":true}`, out)
}

func TestInvalidOutputFormat(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api.URL)

	_, _, err := run(t, cfg, "-o", "yaml", "global")
	assert.ErrorContains(t, err, "invalid format")
}
