package cli

import (
	"errors"
	"fmt"
	"strconv"

	"cryptoverse/internal/domain"
	"cryptoverse/internal/format"
	"cryptoverse/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCase = cases.Title(language.English)

func newGlobalCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "global",
		Short: "Show global crypto stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := rt.app.Market.GlobalStats(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rt.format, stats, func() TableData {
				change := stats.MarketCapChangePercentage24hUSD
				return TableData{
					Headers: []string{"Stat", "Value"},
					Rows: [][]string{
						{"Total Cryptocurrencies", format.Millify(decimal.NewFromInt(int64(stats.ActiveCryptocurrencies)))},
						{"Total Exchanges", format.Millify(decimal.NewFromInt(int64(stats.Markets)))},
						{"Total Market Cap", "$" + format.Millify(stats.TotalMarketCapUSD())},
						{"Total 24h Volume", "$" + format.Millify(stats.TotalVolumeUSD())},
						{"BTC Dominance", stats.BitcoinDominance().StringFixed(2) + "%"},
						{"Market Cap 24h", format.Trend(change, format.Percent(change))},
					},
					RightAligned: map[int]bool{1: true},
				}
			})
		},
	}
}

func newCoinsCommand(rt *runtime) *cobra.Command {
	var (
		count  int
		search string
	)
	cmd := &cobra.Command{
		Use:   "coins",
		Short: "List coins by market cap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coins, err := rt.app.Market.Search(cmd.Context(), count, search)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rt.format, coins, func() TableData {
				data := TableData{
					Headers:      []string{"#", "Coin", "Symbol", "Price", "Market Cap", "24h", "Saved"},
					RightAligned: map[int]bool{0: true, 3: true, 4: true, 5: true},
				}
				for _, c := range coins {
					change := c.PriceChangePercentage24h.Decimal
					saved := ""
					if rt.app.Bookmarks.IsBookmarked(c.ID) {
						saved = "*"
					}
					data.Rows = append(data.Rows, []string{
						strconv.Itoa(c.MarketCapRank),
						c.Name,
						c.Symbol,
						format.USD(c.CurrentPrice),
						"$" + format.Millify(c.MarketCap),
						format.Trend(change, format.PercentOrDash(c.PriceChangePercentage24h)),
						saved,
					})
				}
				return data
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", domain.FullListSize, fmt.Sprintf("number of coins to fetch (%d for the simplified list)", domain.SimplifiedListSize))
	cmd.Flags().StringVarP(&search, "search", "s", "", "keep coins whose name contains this text")
	return cmd
}

func newCoinCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "coin <id>",
		Short: "Show details of one coin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := rt.app.Market.CoinDetail(cmd.Context(), args[0])
			if err != nil {
				return coinError(args[0], err)
			}
			return render(cmd.OutOrStdout(), rt.format, d, func() TableData {
				return coinDetailTable(d, rt.app.Bookmarks.IsBookmarked(d.ID))
			})
		},
	}
}

// coinError names the coin when the API reports it does not exist.
func coinError(id string, err error) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
		return fmt.Errorf("coin %q not found: %w", id, err)
	}
	return err
}

func coinDetailTable(d *domain.CoinDetail, saved bool) TableData {
	md := d.MarketData
	change := md.PriceChangePercentage24h.Decimal
	rows := [][]string{
		{"Name", fmt.Sprintf("%s (%s)", d.Name, d.Symbol)},
		{"Price to USD", format.USD(md.CurrentPrice.USD())},
		{"24h Change", format.Trend(change, format.PercentOrDash(md.PriceChangePercentage24h))},
		{"Rank", strconv.Itoa(d.MarketCapRank)},
		{"24h Volume", "$" + format.Millify(md.TotalVolume.USD())},
		{"Market Cap", "$" + format.Millify(md.MarketCap.USD())},
		{"All-time-high", format.USD(md.ATH.USD())},
		{"Number Of Markets", strconv.Itoa(d.NumberOfMarkets())},
		{"Total Supply", format.Millify(md.TotalSupply.Decimal)},
		{"Circulating Supply", format.Millify(md.CirculatingSupply.Decimal)},
		{"Max Supply", format.MaxSupply(md.MaxSupply)},
		{"Bookmarked", strconv.FormatBool(saved)},
	}
	for _, category := range d.Categories {
		rows = append(rows, []string{"Category", titleCase.String(category)})
	}
	rows = append(rows, linkRows(d.Links)...)
	if summary := format.Summary(d.Description.EN); summary != "" {
		rows = append(rows, []string{"About", summary})
	}
	return TableData{Headers: []string{"Stat", "Value"}, Rows: rows}
}

func linkRows(links domain.CoinLinks) [][]string {
	var rows [][]string
	add := func(kind, url string) {
		if url != "" {
			rows = append(rows, []string{kind, format.LinkHost(url)})
		}
	}
	for _, u := range links.Homepage {
		add("Website", u)
	}
	for _, u := range links.BlockchainSite {
		add("Explorer", u)
	}
	for _, u := range links.ReposURL.GitHub {
		add("Source Code", u)
	}
	add("Reddit", links.SubredditURL)
	return rows
}

func newHistoryCommand(rt *runtime) *cobra.Command {
	var (
		days   int
		points bool
	)
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show the USD price history of a coin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := service.NewChartView(rt.app.Market, args[0])
			h, err := view.Select(cmd.Context(), days)
			if err != nil {
				return coinError(args[0], err)
			}
			selected, _ := view.Current()
			return render(cmd.OutOrStdout(), rt.format, h, func() TableData {
				if points {
					return historyPointsTable(h)
				}
				return historySummaryTable(view.CoinID(), selected, h)
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", domain.DefaultHistoryDays, "timeframe in days: "+timeframeHelp())
	cmd.Flags().BoolVar(&points, "points", false, "list every sample instead of a summary")
	return cmd
}

func timeframeHelp() string {
	s := ""
	for i, tf := range domain.Timeframes {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d (%s)", tf.Days, tf.Label)
	}
	return s
}

func timeframeLabel(days int) string {
	for _, tf := range domain.Timeframes {
		if tf.Days == days {
			return tf.Label
		}
	}
	return fmt.Sprintf("%dd", days)
}

func historySummaryTable(coinID string, days int, h *domain.PriceHistory) TableData {
	rows := [][]string{
		{"Coin", coinID},
		{"Timeframe", timeframeLabel(days)},
		{"Samples", strconv.Itoa(len(h.Prices))},
	}
	if latest, ok := h.Latest(); ok {
		rows = append(rows,
			[]string{"First", format.USD(h.Prices[0].Price)},
			[]string{"Latest", format.USD(latest.Price)},
			[]string{"As Of", latest.Time.Format("2006-01-02 15:04 MST")},
		)
	}
	if change, ok := h.Change(); ok {
		rows = append(rows, []string{"Change", format.Trend(change, format.Percent(change))})
	}
	return TableData{Headers: []string{"Stat", "Value"}, Rows: rows}
}

func historyPointsTable(h *domain.PriceHistory) TableData {
	data := TableData{Headers: []string{"Time", "Price"}, RightAligned: map[int]bool{1: true}}
	for _, p := range h.Prices {
		data.Rows = append(data.Rows, []string{p.Time.Format("2006-01-02 15:04"), format.USD(p.Price)})
	}
	return data
}

func newTrendingCommand(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Show trending coins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coins, err := rt.app.Market.Trending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rt.format, coins, func() TableData {
				data := TableData{Headers: []string{"#", "Coin", "Symbol", "Rank"}, RightAligned: map[int]bool{0: true, 3: true}}
				for i, c := range coins {
					data.Rows = append(data.Rows, []string{strconv.Itoa(i + 1), c.Name, c.Symbol, strconv.Itoa(c.MarketCapRank)})
				}
				return data
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", domain.TrendingPreview, "number of coins to show (0 for all)")
	return cmd
}
