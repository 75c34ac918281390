package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/livingpark/ppmi/internal/domain/cohort"
	"github.com/livingpark/ppmi/internal/domain/imaging"
	"github.com/livingpark/ppmi/internal/domain/protocol"
	"github.com/livingpark/ppmi/internal/domain/study"
)

func cohortIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cohort-id [PATNO...]",
		Short: "Print the identifier of a set of patients",
		Long: "Print the identifier of a set of patients given as arguments or read\n" +
			"from the PATNO column of a CSV cohort table (--from).",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			mode, _ := cmd.Flags().GetString("mode")

			ids := append([]string(nil), args...)
			if from != "" {
				f, err := os.Open(from)
				if err != nil {
					return err
				}
				defer f.Close()
				more, err := cohort.ReadPatientIDs(f)
				if err != nil {
					return fmt.Errorf("%s: %w", from, err)
				}
				ids = append(ids, more...)
			}
			if len(ids) == 0 {
				return fmt.Errorf("no patient ids given")
			}

			if mode == "" {
				a, err := newApp(cmd)
				if err != nil {
					return err
				}
				mode = a.cfg.CohortIDMode
			}
			gen, err := cohort.Generator(cohort.Mode(mode))
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), gen(ids))
		},
	}
	cmd.Flags().String("from", "", "CSV cohort table with a PATNO column")
	cmd.Flags().String("mode", "", "Identifier mode: hash or digest (overrides COHORT_ID_MODE)")
	return cmd
}

func cleanProtocolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean-protocol DESCRIPTION...",
		Short: "Canonicalize a protocol description the way PPMI file names do",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeLine(cmd.OutOrStdout(), protocol.Clean(strings.Join(args, " ")))
		},
	}
}

func diseaseDurationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disease-duration",
		Short: "Compute disease duration in months for every MDS-UPDRS Part III visit",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			full, _ := cmd.Flags().GetBool("full")
			policy, _ := cmd.Flags().GetString("policy")
			format, _ := cmd.Flags().GetString("format")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if policy == "" {
				policy = a.cfg.DuplicatePolicy
			}

			ctx := cmd.Context()
			svc, err := a.studyService(ctx)
			if err != nil {
				return err
			}
			rows, err := svc.DiseaseDuration(ctx, study.Options{
				Force:   force,
				Minimal: !full,
				Policy:  study.ConflictPolicy(policy),
			})
			if err != nil {
				return err
			}
			return writeDurations(cmd, rows, format, full)
		},
	}
	cmd.Flags().Bool("force", false, "Re-download the study files even if present")
	cmd.Flags().Bool("full", false, "Include exam and diagnosis dates")
	cmd.Flags().String("policy", "", "Duplicate screening diagnosis policy: keep-last, keep-first or reject")
	cmd.Flags().String("format", "table", "Output format: table, csv or json")
	return cmd
}

func writeDurations(cmd *cobra.Command, rows []*study.DurationRecord, format string, full bool) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "table", "csv":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	headers := []string{"PATNO", "EVENT_ID", "PDXDUR"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight}
	if full {
		headers = append(headers, "INFODT", "PDDXDT")
		aligns = append(aligns, alignLeft, alignLeft)
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := []string{r.PatientID, r.EventID, ""}
		if r.DurationMonths != nil {
			row[2] = strconv.Itoa(*r.DurationMonths)
		}
		if full {
			row = append(row, deref(r.ExamDate), deref(r.DiagnosisDate))
		}
		table = append(table, row)
	}

	if format == "csv" {
		return writeLine(out, renderCSV(headers, table))
	}
	return writeLine(out, renderTable(headers, table, aligns))
}

func findNiftiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find-nifti",
		Short: "Locate the cached NIfTI file of a subject, visit and protocol",
		Long: "Print the path of the single cached NIfTI file matching the query.\n" +
			"Nothing is printed when no file or more than one file matches.",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			event, _ := cmd.Flags().GetString("event")
			desc, _ := cmd.Flags().GetString("protocol")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("cache-dir"); v != "" {
				a.cfg.CacheDir = v
			}
			if v, _ := cmd.Flags().GetString("base-dir"); v != "" {
				a.cfg.BaseDir = v
			}

			path, err := a.resolver().Find(imaging.Query{
				SubjectID:           subject,
				EventID:             event,
				ProtocolDescription: desc,
			})
			if err != nil {
				return err
			}
			if path == "" {
				return nil
			}
			return writeLine(cmd.OutOrStdout(), path)
		},
	}
	cmd.Flags().String("subject", "", "Subject id (PATNO)")
	cmd.Flags().String("event", "", "Event id, e.g. BL")
	cmd.Flags().String("protocol", "", "Protocol description, e.g. \"MPRAGE GRAPPA\"")
	cmd.Flags().String("cache-dir", "", "Cache directory (overrides CACHE_DIR)")
	cmd.Flags().String("base-dir", "", "Directory under the cache holding subjects (overrides BASE_DIR)")
	cmd.MarkFlagRequired("subject")
	cmd.MarkFlagRequired("event")
	cmd.MarkFlagRequired("protocol")
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
