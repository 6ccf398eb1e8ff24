package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"leadboard_backend/internal/imports"
	"leadboard_backend/internal/imports/domain"
	"leadboard_backend/internal/imports/transport"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a CSV/TSV file of leads into a campaign",
	Long:  "Uploads the file for a preview, applies the suggested column mapping plus any --map overrides, starts the import and follows it until it finishes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var importStatusCmd = &cobra.Command{
	Use:   "import-status <job-id>",
	Short: "Show the current state of an import job",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportStatus,
}

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List active campaigns",
	Args:  cobra.NoArgs,
	RunE:  runCampaigns,
}

var (
	importCampaign string
	importMap      []string
	importNoWait   bool
	importInterval time.Duration
)

func init() {
	importCmd.Flags().StringVar(&importCampaign, "campaign", "", "Destination campaign id")
	importCmd.Flags().StringArrayVar(&importMap, "map", nil, "Column mapping override header=field; an empty field unmaps the header (repeatable)")
	importCmd.Flags().BoolVar(&importNoWait, "no-wait", false, "Print the job id and return without following progress")
	importCmd.Flags().DurationVar(&importInterval, "interval", time.Second, "Progress poll interval")
	_ = importCmd.MarkFlagRequired("campaign")

	rootCmd.AddCommand(importCmd, importStatusCmd, campaignsCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	campaignID, err := uuid.Parse(importCampaign)
	if err != nil {
		return fmt.Errorf("invalid --campaign %q", importCampaign)
	}
	overrides, err := parseMapping(importMap)
	if err != nil {
		return err
	}

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	client := newClient()

	preview, err := client.UploadForPreview(ctx, filepath.Base(args[0]), file)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	fmt.Fprintf(out, "%s: %d rows, columns %s\n", preview.FileName, preview.TotalRows, strings.Join(preview.Headers, ", "))

	mapping := mergeMapping(preview.SuggestedMapping, overrides)
	printMapping(out, preview.Headers, mapping)

	job, err := client.ConfirmImport(ctx, transport.ConfirmImportRequest{
		PreviewID:  preview.ID,
		CampaignID: campaignID,
		Mapping:    mapping,
	})
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	fmt.Fprintf(out, "job %s %s\n", job.ID, job.Status)
	if importNoWait {
		return nil
	}

	last := job
	final, err := imports.NewPoller(client, importInterval).Wait(ctx, job.ID, func(s transport.JobResponse) {
		if s.Status != last.Status || s.Processed != last.Processed {
			fmt.Fprintf(out, "%s %d/%d (created %d, failed %d)\n", s.Status, s.Processed, s.TotalRows, s.Created, s.Failed)
		}
		last = s
	})
	if err != nil {
		return fmt.Errorf("job %s: %w (check later with import-status)", job.ID, err)
	}
	return printJob(out, final)
}

func runImportStatus(cmd *cobra.Command, args []string) error {
	jobID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}
	job, err := newClient().PollImportJob(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	return printJob(cmd.OutOrStdout(), job)
}

func runCampaigns(cmd *cobra.Command, _ []string) error {
	items, err := newClient().ListCampaigns(cmd.Context())
	if err != nil {
		return err
	}
	for _, c := range items {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", c.ID, c.Name)
	}
	return nil
}

// parseMapping reads header=field pairs, splitting at the last '='.
func parseMapping(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		i := strings.LastIndex(pair, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid --map %q, want header=field", pair)
		}
		out[strings.TrimSpace(pair[:i])] = strings.TrimSpace(pair[i+1:])
	}
	return out, nil
}

func mergeMapping(suggested, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(suggested)+len(overrides))
	for header, field := range suggested {
		out[header] = field
	}
	for header, field := range overrides {
		if field == "" {
			delete(out, header)
			continue
		}
		// A field moved to another header leaves its suggested header.
		for h, f := range out {
			if f == field && h != header {
				delete(out, h)
			}
		}
		out[header] = field
	}
	return out
}

func printMapping(w io.Writer, headers []string, mapping map[string]string) {
	for _, h := range headers {
		field, ok := mapping[h]
		if !ok {
			field = "(ignored)"
		}
		fmt.Fprintf(w, "  %-24s -> %s\n", h, field)
	}
}

func printJob(w io.Writer, job transport.JobResponse) error {
	fmt.Fprintf(w, "job %s %s: %d/%d processed, %d created, %d failed\n",
		job.ID, job.Status, job.Processed, job.TotalRows, job.Created, job.Failed)
	if job.ErrorMessage != nil {
		fmt.Fprintf(w, "error: %s\n", *job.ErrorMessage)
	}

	rowErrors := append([]transport.RowErrorResponse(nil), job.Errors...)
	sort.Slice(rowErrors, func(i, j int) bool { return rowErrors[i].Row < rowErrors[j].Row })
	for _, e := range rowErrors {
		fmt.Fprintf(w, "  row %d: %s\n", e.Row, strings.Join(e.Issues, "; "))
	}

	if job.Status == string(domain.JobFailed) {
		return fmt.Errorf("import failed")
	}
	return nil
}
