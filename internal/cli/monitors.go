package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dropwatch/internal/app"
)

var (
	addUser   string
	addURL    string
	addStore  string
	addTarget string

	removeID int64
	enableID int64
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Start tracking a product URL for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addUser == "" || addURL == "" {
			return fmt.Errorf("--user and --url are required")
		}
		return getApp().Add(cmd.Context(), app.AddOptions{
			UserID:      addUser,
			ProductURL:  addURL,
			StoreName:   addStore,
			TargetPrice: addTarget,
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Stop tracking a monitor and delete its history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if removeID <= 0 {
			return fmt.Errorf("--id must be greater than zero")
		}
		return getApp().Remove(cmd.Context(), removeID)
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Re-enable tracking for a monitor disabled by repeated failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		if enableID <= 0 {
			return fmt.Errorf("--id must be greater than zero")
		}
		return getApp().Reenable(cmd.Context(), enableID)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitored items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().List(cmd.Context())
	},
}

func init() {
	addCmd.Flags().StringVar(&addUser, "user", "", "User id that owns the monitor")
	addCmd.Flags().StringVar(&addURL, "url", "", "Product URL to track")
	addCmd.Flags().StringVar(&addStore, "store", "", "Retailer name")
	addCmd.Flags().StringVar(&addTarget, "target", "", "Optional target price")

	removeCmd.Flags().Int64Var(&removeID, "id", 0, "Monitor id to remove")
	enableCmd.Flags().Int64Var(&enableID, "id", 0, "Monitor id to re-enable")
}
