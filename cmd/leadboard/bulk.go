package main

import (
	"fmt"

	"leadboard_backend/internal/board"
	"leadboard_backend/internal/bulk"

	"github.com/spf13/cobra"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Apply one action to many leads",
}

var bulkAssignCmd = &cobra.Command{
	Use:   "assign <lead-id>...",
	Short: "Assign many leads to one owner",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBulkAssign,
}

var bulkStageCmd = &cobra.Command{
	Use:   "stage <lead-id>...",
	Short: "Move many leads to one stage",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBulkStage,
}

var (
	bulkOwner      string
	bulkUnassign   bool
	bulkStage      string
	bulkConcurrent int
)

func init() {
	bulkCmd.PersistentFlags().IntVar(&bulkConcurrent, "concurrency", bulkConcurrency(), "Mutations in flight at once (LEADBOARD_BULK_CONCURRENCY)")
	bulkAssignCmd.Flags().StringVar(&bulkOwner, "owner", "", "Owner to assign")
	bulkAssignCmd.Flags().BoolVar(&bulkUnassign, "unassign", false, "Remove the owner instead")
	bulkStageCmd.Flags().StringVar(&bulkStage, "stage", "", "Target stage (key or any label)")
	_ = bulkStageCmd.MarkFlagRequired("stage")

	bulkCmd.AddCommand(bulkAssignCmd, bulkStageCmd)
	rootCmd.AddCommand(bulkCmd)
}

func runBulkAssign(cmd *cobra.Command, args []string) error {
	if (bulkOwner == "") == !bulkUnassign {
		return fmt.Errorf("give exactly one of --owner or --unassign")
	}
	ownerID, err := parseOptionalID(bulkOwner, "owner")
	if err != nil {
		return err
	}
	return runBulk(cmd, args, bulk.ActionReassign, bulk.Params{OwnerID: ownerID})
}

func runBulkStage(cmd *cobra.Command, args []string) error {
	return runBulk(cmd, args, bulk.ActionChangeStage, bulk.Params{Stage: bulkStage})
}

func runBulk(cmd *cobra.Command, args []string, action bulk.Action, params bulk.Params) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	b, err := loadBoard(cmd.Context(), cmd, board.Filter{})
	if err != nil {
		return err
	}
	result, err := bulk.New(b, bulkConcurrent, cliLogger(cmd)).Apply(cmd.Context(), ids, action, params)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, item := range result.Items {
		switch {
		case item.Err != nil:
			fmt.Fprintf(out, "%s  %s: %v\n", item.LeadID, item.Status, item.Err)
		case item.Warning != nil:
			fmt.Fprintf(out, "%s  %s (warning: %v)\n", item.LeadID, item.Status, item.Warning)
		default:
			fmt.Fprintf(out, "%s  %s\n", item.LeadID, item.Status)
		}
	}
	fmt.Fprintf(out, "%d succeeded, %d failed, %d blocked\n",
		result.Count(bulk.StatusSucceeded), result.Count(bulk.StatusFailed), result.Count(bulk.StatusBlocked))

	if failed := result.Count(bulk.StatusFailed); failed > 0 {
		return fmt.Errorf("%d of %d leads failed", failed, len(result.Items))
	}
	return nil
}
