package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newThemeCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show the display theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printTheme(cmd, rt, rt.app.Theme.DarkMode())
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dark, err := rt.app.Theme.Toggle(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: theme preference was not saved: %v\n", err)
			}
			return printTheme(cmd, rt, dark)
		},
	})
	return cmd
}

func printTheme(cmd *cobra.Command, rt *runtime, dark bool) error {
	if rt.format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]bool{"darkMode": dark})
	}
	name := "light"
	if dark {
		name = "dark"
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), name)
	return err
}
