package cli

import (
	"fmt"
	"log/slog"

	"cryptoverse/internal/domain"

	"github.com/spf13/cobra"
)

func newBookmarksCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmarks",
		Aliases: []string{"bm"},
		Short:   "Manage bookmarked coins",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List bookmarked coins",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return renderBookmarks(cmd, rt)
			},
		},
		&cobra.Command{
			Use:   "toggle <id>",
			Short: "Bookmark a coin, or remove it if already bookmarked",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return toggleBookmark(cmd, rt, args[0])
			},
		},
		&cobra.Command{
			Use:   "icons",
			Short: "Download icons of bookmarked coins",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rt.app.SyncIcons(cmd.Context())
				return renderBookmarks(cmd, rt)
			},
		},
	)
	return cmd
}

// bookmarkRow is a bookmark joined with its cached icon.
type bookmarkRow struct {
	domain.Bookmark
	IconPath string `json:"icon_path,omitempty"`
}

func renderBookmarks(cmd *cobra.Command, rt *runtime) error {
	bookmarks := rt.app.Bookmarks.List()

	icons := make(map[string]string)
	if infos, err := rt.app.Storage.GetAllCoins(cmd.Context()); err == nil {
		for _, info := range infos {
			icons[info.ID] = info.IconPath
		}
	}

	rows := make([]bookmarkRow, 0, len(bookmarks))
	for _, b := range bookmarks {
		rows = append(rows, bookmarkRow{Bookmark: b, IconPath: icons[b.ID]})
	}

	return render(cmd.OutOrStdout(), rt.format, rows, func() TableData {
		data := TableData{Headers: []string{"ID", "Name", "Symbol", "Icon"}}
		for _, r := range rows {
			data.Rows = append(data.Rows, []string{r.ID, r.Name, r.Symbol, r.IconPath})
		}
		return data
	})
}

func toggleBookmark(cmd *cobra.Command, rt *runtime, id string) error {
	ctx := cmd.Context()

	// Removal only needs the id.
	record := domain.Bookmark{ID: id}
	if !rt.app.Bookmarks.IsBookmarked(id) {
		var err error
		if record, err = lookupBookmark(cmd, rt, id); err != nil {
			return err
		}
	}

	commit, err := rt.app.Bookmarks.Toggle(ctx, record)
	if err != nil {
		return err
	}
	if commit.Err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: bookmark change was not saved: %v\n", commit.Err)
	}

	if rt.format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"bookmark":  commit.Bookmark,
			"added":     commit.Added,
			"persisted": commit.Persisted,
		})
	}
	msg := "Removed %s (%s) from bookmarks\n"
	if commit.Added {
		msg = "Added %s (%s) to bookmarks\n"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), msg, commit.Bookmark.Name, commit.Bookmark.ID)
	return err
}

// lookupBookmark describes a coin the way the coins list shows it, falling
// back to the detail document for coins outside the top of the list.
func lookupBookmark(cmd *cobra.Command, rt *runtime, id string) (domain.Bookmark, error) {
	ctx := cmd.Context()
	coins, err := rt.app.Market.Coins(ctx, domain.FullListSize)
	if err != nil {
		rt.app.Logger.Warn("Coins list unavailable, using coin detail", slog.String("coin_id", id), slog.Any("error", err))
	}
	for _, c := range coins {
		if c.ID == id {
			return domain.BookmarkFromCoin(c), nil
		}
	}

	detail, err := rt.app.Market.CoinDetail(ctx, id)
	if err != nil {
		return domain.Bookmark{}, coinError(id, err)
	}
	return domain.BookmarkFromDetail(*detail), nil
}
