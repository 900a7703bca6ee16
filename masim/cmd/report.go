package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/sarchlab/masim/datarecording"
	"github.com/sarchlab/masim/simulation"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <db>",
	Short: "Print the results recorded by a run.",
	Long: "`report <db>` reads a database written by `run --output` and " +
		"prints the execution properties and the phase summaries.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threads, _ := cmd.Flags().GetBool("threads")

		path := args[0]
		if !strings.HasSuffix(path, ".sqlite3") {
			path += ".sqlite3"
		}

		reader, err := datarecording.NewReader(path)
		if err != nil {
			return err
		}
		defer reader.Close()

		return printRecords(cmd.Context(), cmd.OutOrStdout(), reader, threads)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("threads", false,
		"Also print the accesses of every thread.")
}

func printRecords(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
	withThreads bool,
) error {
	reader.MapTable(datarecording.ExecTableName, datarecording.ExecInfo{})
	reader.MapTable(simulation.PhaseSummaryTable, simulation.PhaseSummary{})
	reader.MapTable(simulation.ThreadAccessesTable,
		simulation.ThreadAccesses{})

	infos, _, err := reader.Query(ctx, datarecording.ExecTableName,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, i := range infos {
		info := i.(*datarecording.ExecInfo)
		fmt.Fprintf(w, "%s: %s\n", info.Property, info.Value)
	}

	summaries, _, err := reader.Query(ctx, simulation.PhaseSummaryTable,
		datarecording.QueryParams{OrderBy: "RunID, PhaseIndex"})
	if err != nil {
		return err
	}

	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tINDEX\tPHASE\tTHREADS\tDURATION(MS)\tELAPSED(MS)\tACCESSES")
	for _, s := range summaries {
		summary := s.(*simulation.PhaseSummary)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%s\n",
			summary.RunID, summary.PhaseIndex, summary.Phase,
			summary.Threads, summary.DurationMS, summary.ElapsedMS,
			humanize.Comma(int64(summary.Accesses)))
	}
	tw.Flush()

	if !withThreads {
		return nil
	}

	threads, _, err := reader.Query(ctx, simulation.ThreadAccessesTable,
		datarecording.QueryParams{OrderBy: "RunID, PhaseIndex, Thread"})
	if err != nil {
		return err
	}

	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tINDEX\tPHASE\tTHREAD\tACCESSES")
	for _, t := range threads {
		entry := t.(*simulation.ThreadAccesses)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n",
			entry.RunID, entry.PhaseIndex, entry.Phase, entry.Thread,
			humanize.Comma(int64(entry.Accesses)))
	}

	return tw.Flush()
}
