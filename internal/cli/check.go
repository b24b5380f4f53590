package cli

import (
	"github.com/spf13/cobra"
)

var checkID int64

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one check cycle now, or a single monitor with --id",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckNow(cmd.Context(), checkID)
	},
}

func init() {
	checkCmd.Flags().Int64Var(&checkID, "id", 0, "Check only the monitor with this id")
}
