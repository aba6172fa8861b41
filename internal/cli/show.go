package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"price-target-alerts/internal/app"
)

var (
	showChain string
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent price samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Chain: strings.ToLower(strings.TrimSpace(showChain)),
			Limit: showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showChain, "chain", "", "Only show samples for this chain")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of samples to display")
}
