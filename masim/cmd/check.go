package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sarchlab/masim/config"
	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/simulation"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <config>",
	Short: "Validate a workload without running it.",
	Long: "`check <config>` parses the workload, checks that every pattern " +
		"refers to a known region and that no phase needs more threads " +
		"than allowed. No memory is allocated.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}

		threads, err := intOption(cmd, "threads", "MASIM_THREADS")
		if err != nil {
			return err
		}

		if !explicit(cmd, "threads", "MASIM_THREADS") && cfg.Threads != 0 {
			threads = cfg.Threads
		}

		maxThreads, _ := cmd.Flags().GetInt("max-threads")

		err = checkWorkload(cfg, afero.NewOsFs(), threads, maxThreads)
		if err != nil {
			return err
		}

		var total uint64
		for _, r := range cfg.Regions {
			total += uint64(r.Size)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d regions (%s), %d phases\n",
			args[0], len(cfg.Regions), humanize.IBytes(total),
			len(cfg.Phases))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Int("threads", 1,
		"Worker threads of the phases that do not set their own. "+
			"Env: MASIM_THREADS.")
	checkCmd.Flags().Int("max-threads", simulation.DefaultMaxThreads,
		"Upper bound of worker threads in any phase.")
}

func checkWorkload(
	cfg *config.Config,
	fs afero.Fs,
	threads, maxThreads int,
) error {
	err := cfg.Validate(fs)
	if err != nil {
		return err
	}

	for _, p := range cfg.Phases {
		n := threads
		if p.Threads != 0 {
			n = p.Threads
		}

		if n < 1 {
			return errors.Wrapf(pattern.ErrConfig,
				"phase %s: %d threads", p.Name, n)
		}

		if n > maxThreads {
			return errors.Wrapf(simulation.ErrThreadLimitExceeded,
				"phase %s: %d threads, at most %d allowed",
				p.Name, n, maxThreads)
		}
	}

	return nil
}
