package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"price-target-alerts/internal/app"
)

var (
	setAlertChain  string
	setAlertTarget string
	setAlertEmail  string
)

var setAlertCmd = &cobra.Command{
	Use:   "set-alert",
	Short: "Register a one-shot price-target alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := decimal.NewFromString(setAlertTarget)
		if err != nil {
			return errors.New("--target must be a decimal number")
		}

		return getApp().SetAlert(cmd.Context(), app.SetAlertOptions{
			Chain:       setAlertChain,
			TargetPrice: target,
			Email:       setAlertEmail,
		})
	},
}

func init() {
	setAlertCmd.Flags().StringVar(&setAlertChain, "chain", "", "Chain to watch (required)")
	setAlertCmd.Flags().StringVar(&setAlertTarget, "target", "", "Target price in USD (required)")
	setAlertCmd.Flags().StringVar(&setAlertEmail, "email", "", "Recipient email address (required)")
	_ = setAlertCmd.MarkFlagRequired("chain")
	_ = setAlertCmd.MarkFlagRequired("target")
	_ = setAlertCmd.MarkFlagRequired("email")
}
