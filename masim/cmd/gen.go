package cmd

import (
	"math/rand/v2"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sarchlab/masim/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate workload configs.",
}

var genHotCmd = &cobra.Command{
	Use:   "hot",
	Short: "Generate a hot-region experiment.",
	Long: "`gen hot --nr-hot N` writes a workload of equally sized regions. " +
		"An init phase writes every region, then each phase reads the " +
		"regions randomly, with a few hot regions read much more often " +
		"than the cold ones.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := hotOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		seed, _ := cmd.Flags().GetUint64("seed")
		if !cmd.Flags().Changed("seed") {
			seed = uint64(time.Now().UnixNano())
		}

		cfg, err := config.GenerateHot(opts, rand.New(rand.NewPCG(seed, 0)))
		if err != nil {
			return err
		}

		format := config.FormatText
		if yaml, _ := cmd.Flags().GetBool("yaml"); yaml {
			format = config.FormatYAML
		}

		out := cmd.OutOrStdout()
		path, _ := cmd.Flags().GetString("out")
		if path != "" {
			f, err := os.Create(path)
			if err != nil {
				return errors.Wrapf(err, "cannot create %s", path)
			}
			defer f.Close()

			out = f
		}

		return config.Render(out, cfg, format)
	},
}

func init() {
	rootCmd.AddCommand(genCmd)
	genCmd.AddCommand(genHotCmd)
	addHotFlags(genHotCmd.Flags())

	_ = genHotCmd.MarkFlagRequired("nr-hot")
}

func addHotFlags(flags *pflag.FlagSet) {
	flags.String("mode", "static",
		"Whether the hot regions stay the same (static) or change in "+
			"every phase (dynamic).")
	flags.Int("nr-hot", 0, "Number of hot regions.")
	flags.String("hotness", "same",
		"Whether all hot regions are equally hot (same) or increasingly "+
			"hot (diff).")
	flags.Int("regions", config.DefaultHotRegions, "Number of regions.")
	flags.String("region-size", config.DefaultHotRegionSize.String(),
		"Size of every region.")
	flags.Int("phases", config.DefaultHotPhases,
		"Number of phases after the init phase.")
	flags.Uint64("phase-ms", config.DefaultHotPhaseMS,
		"Duration of every phase in milliseconds.")
	flags.Uint64("seed", 0, "Seed of the hot region sampling. "+
		"Random if not given.")
	flags.Bool("yaml", false, "Write YAML instead of the text format.")
	flags.String("out", "", "Write to a file instead of stdout.")
}

func hotOptionsFromFlags(cmd *cobra.Command) (config.HotOptions, error) {
	flags := cmd.Flags()

	numHot, _ := flags.GetInt("nr-hot")
	opts := config.DefaultHotOptions(numHot)
	opts.Regions, _ = flags.GetInt("regions")
	opts.Phases, _ = flags.GetInt("phases")
	opts.PhaseMS, _ = flags.GetUint64("phase-ms")

	sizeStr, _ := flags.GetString("region-size")
	size, err := config.ParseSize(sizeStr)
	if err != nil {
		return opts, err
	}
	opts.RegionSize = size

	mode, _ := flags.GetString("mode")
	switch mode {
	case "static":
	case "dynamic":
		opts.Dynamic = true
	default:
		return opts, errors.Wrapf(config.ErrSyntax,
			"mode must be static or dynamic, got %q", mode)
	}

	hotness, _ := flags.GetString("hotness")
	switch hotness {
	case "same":
	case "diff":
		opts.DiffHotness = true
	default:
		return opts, errors.Wrapf(config.ErrSyntax,
			"hotness must be same or diff, got %q", hotness)
	}

	return opts, nil
}
