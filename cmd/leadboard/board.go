package main

import (
	"fmt"
	"io"

	"leadboard_backend/internal/board"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show leads grouped by stage",
	Args:  cobra.NoArgs,
	RunE:  runBoard,
}

var moveCmd = &cobra.Command{
	Use:   "move <lead-id> <stage>",
	Short: "Move a lead to a stage (key or any label)",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

var assignCmd = &cobra.Command{
	Use:   "assign <lead-id> [owner-id]",
	Short: "Assign a lead to an owner, or remove its owner with --unassign",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAssign,
}

var (
	boardCampaign  string
	boardOwner     string
	boardSearch    string
	boardShowEmpty bool
	assignUnassign bool
)

func init() {
	boardCmd.Flags().StringVar(&boardCampaign, "campaign", "", "Only leads of this campaign")
	boardCmd.Flags().StringVar(&boardOwner, "owner", "", "Only leads of this owner")
	boardCmd.Flags().StringVar(&boardSearch, "search", "", "Free-text search")
	boardCmd.Flags().BoolVar(&boardShowEmpty, "all", false, "Also print empty columns")
	assignCmd.Flags().BoolVar(&assignUnassign, "unassign", false, "Remove the current owner")

	rootCmd.AddCommand(boardCmd, moveCmd, assignCmd)
}

func runBoard(cmd *cobra.Command, _ []string) error {
	campaignID, err := parseOptionalID(boardCampaign, "campaign")
	if err != nil {
		return err
	}
	ownerID, err := parseOptionalID(boardOwner, "owner")
	if err != nil {
		return err
	}

	b, err := loadBoard(cmd.Context(), cmd, board.Filter{CampaignID: campaignID, OwnerID: ownerID, Search: boardSearch})
	if err != nil {
		return err
	}
	printColumns(cmd.OutOrStdout(), b.Columns(), boardShowEmpty)
	return nil
}

func printColumns(w io.Writer, columns []board.Column, showEmpty bool) {
	for _, col := range columns {
		if len(col.Leads) == 0 && !showEmpty {
			continue
		}
		fmt.Fprintf(w, "== %s (%d) ==\n", col.Label, len(col.Leads))
		for _, card := range col.Leads {
			owner := "unassigned"
			if card.OwnerID != nil {
				owner = card.OwnerID.String()
			}
			line := fmt.Sprintf("  %s  %-30s %-16s %s", card.ID, card.Name, card.Phone, owner)
			if card.Pending {
				line += "  (pending)"
			}
			fmt.Fprintln(w, line)
		}
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[:1])
	if err != nil {
		return err
	}

	b, err := loadBoard(cmd.Context(), cmd, board.Filter{})
	if err != nil {
		return err
	}
	result, err := b.Drop(cmd.Context(), ids[0], args[1])
	if err != nil {
		return err
	}

	label := b.Catalog().Label(result.Stage)
	if !result.Moved {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already in %s\n", ids[0], label)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s moved to %s\n", ids[0], label)
	return nil
}

func runAssign(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[:1])
	if err != nil {
		return err
	}
	if assignUnassign == (len(args) == 2) {
		return fmt.Errorf("give exactly one of an owner id or --unassign")
	}
	var ownerID *uuid.UUID
	if len(args) == 2 {
		owners, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		ownerID = &owners[0]
	}

	b, err := loadBoard(cmd.Context(), cmd, board.Filter{})
	if err != nil {
		return err
	}
	result, err := b.Reassign(cmd.Context(), ids[0], ownerID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ownerID == nil {
		fmt.Fprintf(out, "%s unassigned\n", ids[0])
	} else {
		fmt.Fprintf(out, "%s assigned to %s\n", ids[0], ownerID)
	}
	if result.AutoAdvanced {
		fmt.Fprintf(out, "%s moved to %s\n", ids[0], result.Lead.StageLabel)
	}
	if result.Warning != nil {
		fmt.Fprintf(out, "warning: %v\n", result.Warning)
	}
	return nil
}
