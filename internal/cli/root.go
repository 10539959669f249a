// Package cli implements the cryptoverse command line.
package cli

import (
	"context"
	"io"
	"time"

	"cryptoverse/internal/app"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// runtime carries global flags and the bootstrapped application into commands.
type runtime struct {
	configPath string
	output     string
	format     Format
	app        *app.Bootstrap
}

// Run executes the command line described by args.
func Run(ctx context.Context, version string, args []string, stdout, stderr io.Writer) error {
	rt := &runtime{}
	root := newRootCommand(rt, version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	rt.close()
	return err
}

func newRootCommand(rt *runtime, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "cryptoverse",
		Short: "Cryptocurrency market data with local bookmarks",
		Long: `Cryptoverse shows market-wide statistics, coin rankings, coin details,
price history and trending coins from the CoinGecko API.

Bookmarked coins are kept in a local database and can be streamed with
live prices over a websocket with the serve command.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rt.setup,
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "config file (default: configs/config.yaml or the user config dir)")
	root.PersistentFlags().StringVarP(&rt.output, "output", "o", "", "output format: table or json (default: table on a terminal)")

	root.AddCommand(
		newGlobalCommand(rt),
		newCoinsCommand(rt),
		newCoinCommand(rt),
		newHistoryCommand(rt),
		newTrendingCommand(rt),
		newBookmarksCommand(rt),
		newThemeCommand(rt),
		newServeCommand(rt),
	)
	return root
}

func (rt *runtime) setup(cmd *cobra.Command, _ []string) error {
	format, err := ParseFormat(rt.output)
	if err != nil {
		return err
	}
	rt.format = format

	b := app.NewBootstrap()
	if err := b.Initialize(cmd.Context(), rt.configPath); err != nil {
		return err
	}
	rt.app = b
	return nil
}

func (rt *runtime) close() {
	if rt.app == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.app.Shutdown(ctx); err != nil {
		rt.app.Logger.Warn("Shutdown incomplete", "error", err)
	}
	rt.app = nil
}
