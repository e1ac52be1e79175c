package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SlawomirKedra/qr-song-card/fonts"
	"github.com/SlawomirKedra/qr-song-card/layout"
)

func newThemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "列出可用的背面风格",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, info := range layout.Themes() {
				fmt.Fprintf(w, "%s\t%s\n", info.Theme, info.Description)
			}
			return w.Flush()
		},
	}
}

func newFontsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fonts",
		Short: "列出内置字体（可在配置中写作 embed:<名称>）",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range fonts.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "embed:%s\n", name)
			}
		},
	}
}
