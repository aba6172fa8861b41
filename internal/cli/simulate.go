package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateChain    string
	simulateIncrease float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a test increase notification through the real email channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateIncrease <= 0 {
			return errors.New("--increase must be greater than 0")
		}

		pct := decimal.NewFromFloat(simulateIncrease)
		return getApp().SimulateAlert(cmd.Context(), simulateChain, pct)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateChain, "chain", "ethereum", "Chain named in the test notification")
	simulateCmd.Flags().Float64Var(&simulateIncrease, "increase", 5.0, "Simulated hourly increase percentage")
}
