package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dropwatch/internal/app"
)

var (
	showLimit    int
	showMarkRead int64
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent price alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showMarkRead > 0 {
			return getApp().MarkAlertRead(cmd.Context(), showMarkRead)
		}
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		return getApp().Show(cmd.Context(), app.ShowOptions{Limit: showLimit})
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of alerts to display")
	showCmd.Flags().Int64Var(&showMarkRead, "mark-read", 0, "Mark the alert with this id as read instead of listing")
}
