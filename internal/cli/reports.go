package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/noscripts/pkg/report"
	"github.com/matzehuels/noscripts/pkg/store"
)

// reportsCommand creates the command for browsing reports saved with --save.
func (c *CLI) reportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Browse saved scan reports",
	}

	cmd.AddCommand(c.reportsListCommand())
	cmd.AddCommand(c.reportsShowCommand())

	return cmd
}

// withStore opens the configured report store for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(store.Store) error) error {
	cfg, err := c.loadConfig(".")
	if err != nil {
		return err
	}
	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func (c *CLI) reportsListCommand() *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return c.withStore(cmd.Context(), func(st store.Store) error {
				summaries, err := st.List(cmd.Context(), limit)
				if err != nil {
					return err
				}

				if format == formatJSON {
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					if summaries == nil {
						summaries = []report.Summary{}
					}
					return enc.Encode(summaries)
				}

				if len(summaries) == 0 {
					printInfo(w, "No saved reports")
					return nil
				}
				for _, s := range summaries {
					fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
						StyleDim.Render(s.ID),
						StyleDim.Render(s.CreatedAt.Local().Format(time.DateTime)),
						renderStatus(s.Failed),
						StyleValue.Render(s.Root),
						renderFindings(s.Findings))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "maximum number of reports")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	return cmd
}

func (c *CLI) reportsShowCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:               "show <id>",
		Short:             "Print a saved report",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeReportIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return c.withStore(cmd.Context(), func(st store.Store) error {
				rep, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if format == formatJSON {
					return report.WriteJSON(w, rep)
				}

				printKeyValue(w, "Report", rep.ID)
				printKeyValue(w, "Package", rep.Summarize().Root)
				printKeyValue(w, "Directory", rep.Root.Dir)
				printKeyValue(w, "Created", rep.CreatedAt.Local().Format(time.DateTime))
				printKeyValue(w, "Tool", rep.Tool)
				printKeyValue(w, "Findings", strconv.Itoa(rep.Findings))
				return report.WriteText(w, rep)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	return cmd
}

// completeReportIDs completes the IDs of recent reports.
func (c *CLI) completeReportIDs(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	_ = c.withStore(cmd.Context(), func(st store.Store) error {
		summaries, err := st.List(cmd.Context(), store.DefaultListLimit)
		if err != nil {
			return err
		}
		for _, s := range summaries {
			ids = append(ids, s.ID+"\t"+s.Root)
		}
		return nil
	})
	return ids, cobra.ShellCompDirectiveNoFileComp
}
