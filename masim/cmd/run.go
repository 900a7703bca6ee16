package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/sarchlab/masim/config"
	"github.com/sarchlab/masim/monitoring"
	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/phase"
	"github.com/sarchlab/masim/region"
	"github.com/sarchlab/masim/simulation"
	"github.com/sarchlab/masim/tracing"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

var runCmd = &cobra.Command{
	Use:   "run <config>",
	Short: "Run a workload.",
	Long: "`run <config>` allocates the regions of the workload and runs its " +
		"phases in order. YAML configs are recognized by their extension, " +
		"anything else is read as the text format.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger, err := loggerFromFlags(cmd)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			atexit.Exit(1)
		}

		err = runWorkload(cmd, args[0], logger, os.Stdout)
		if err != nil {
			level.Error(logger).Log("msg", "run failed", "err", err)
			atexit.Exit(1)
		}

		atexit.Exit(0)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

func addRunFlags(flags *pflag.FlagSet) {
	flags.Int("threads", 1,
		"Worker threads of the phases that do not set their own. "+
			"Env: MASIM_THREADS.")
	flags.Int("max-threads", simulation.DefaultMaxThreads,
		"Upper bound of worker threads in any phase.")
	flags.Uint64("seed", 0,
		"Seed of the workers' random number generators. Env: MASIM_SEED.")
	flags.String("payload", "fixed",
		"What writes store. One of: fixed, offset, prior.")
	flags.Uint8("fill", pattern.DefaultFill,
		"The byte written by the fixed payload.")
	flags.String("output", "",
		"Record the results into <output>.sqlite3. Env: MASIM_OUTPUT.")
	flags.Bool("monitor", false,
		"Serve the progress of the run over HTTP.")
	flags.Int("port", 0,
		"Port of the monitor, random if 0. Env: MASIM_MONITOR_PORT.")
	flags.Bool("open-browser", false,
		"Open the monitor in a web browser.")
	flags.String("trace", "",
		"Write the accesses into <trace>.csv. Slows the workers down.")
	flags.Uint64("trace-every", 1,
		"Only trace one access out of this many per thread.")
	flags.Bool("region-stats", false,
		"Count and print the accesses of every region. "+
			"Slows the workers down.")
}

type runOptions struct {
	threads    int
	maxThreads int
	seed       uint64
	payload    pattern.Payload
	output     string
	monitor    bool
	port       int
	browse     bool

	trace       string
	traceEvery  uint64
	regionStats bool
}

func readRunOptions(cmd *cobra.Command, cfg *config.Config) (runOptions, error) {
	var (
		opts runOptions
		err  error
	)

	opts.threads, err = intOption(cmd, "threads", "MASIM_THREADS")
	if err != nil {
		return opts, err
	}

	if !explicit(cmd, "threads", "MASIM_THREADS") && cfg.Threads != 0 {
		opts.threads = cfg.Threads
	}

	opts.seed, err = uint64Option(cmd, "seed", "MASIM_SEED")
	if err != nil {
		return opts, err
	}

	if !explicit(cmd, "seed", "MASIM_SEED") && cfg.Seed != nil {
		opts.seed = *cfg.Seed
	}

	opts.payload, err = cfg.WritePayload()
	if err != nil {
		return opts, err
	}

	if cmd.Flags().Changed("payload") {
		name, _ := cmd.Flags().GetString("payload")
		opts.payload.Policy, err = pattern.ParsePayloadPolicy(name)
		if err != nil {
			return opts, err
		}
	}

	if cmd.Flags().Changed("fill") {
		opts.payload.Fill, _ = cmd.Flags().GetUint8("fill")
	}

	opts.port, err = intOption(cmd, "port", "MASIM_MONITOR_PORT")
	if err != nil {
		return opts, err
	}

	opts.maxThreads, _ = cmd.Flags().GetInt("max-threads")
	opts.output = stringOption(cmd, "output", "MASIM_OUTPUT")
	opts.monitor, _ = cmd.Flags().GetBool("monitor")
	opts.browse, _ = cmd.Flags().GetBool("open-browser")
	opts.trace, _ = cmd.Flags().GetString("trace")
	opts.traceEvery, _ = cmd.Flags().GetUint64("trace-every")
	opts.regionStats, _ = cmd.Flags().GetBool("region-stats")

	return opts, nil
}

func runWorkload(
	cmd *cobra.Command,
	path string,
	logger log.Logger,
	out io.Writer,
) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	opts, err := readRunOptions(cmd, cfg)
	if err != nil {
		return err
	}

	if opts.maxThreads < 1 {
		return errors.Wrapf(pattern.ErrConfig,
			"max threads must be positive, got %d", opts.maxThreads)
	}

	registry := region.NewRegistry()
	defer registry.Release()

	phases, err := cfg.Build(registry)
	if err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "regions allocated",
		"regions", len(registry.Regions()),
		"memory", humanize.IBytes(registry.TotalSize()))

	builder := simulation.MakeBuilder().
		WithNumThreads(opts.threads).
		WithMaxThreads(opts.maxThreads).
		WithSeed(opts.seed).
		WithPayload(opts.payload).
		WithLogger(logger)
	if opts.output != "" {
		builder = builder.WithOutputFileName(opts.output)
	}

	s := builder.Build()
	defer s.Terminate()

	err = s.Validate(phases)
	if err != nil {
		return err
	}

	s.AcceptHook(simulation.NewPhaseLogger(logger))

	if opts.monitor {
		startMonitor(s, registry, phases, opts, logger)
	}

	if opts.trace != "" {
		writer := tracing.NewCSVTraceWriter(opts.trace)
		writer.Init()
		defer writer.Close()

		tracing.CollectTrace(s, writer, tracing.EveryNth(opts.traceEvery))
	}

	var counter *tracing.CountTracer
	if opts.regionStats {
		counter = tracing.NewCountTracer()
		tracing.CollectTrace(s, counter, nil)
	}

	report, err := s.Run(phases)
	if err != nil {
		return err
	}

	printReport(out, report)

	if counter != nil {
		printRegionCounts(out, counter.Counts())
	}

	return nil
}

func printRegionCounts(w io.Writer, counts []tracing.RegionCount) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "REGION\tMODE\tACCESSES")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			c.Region, c.Mode, humanize.Comma(int64(c.Count)))
	}

	tw.Flush()
}

func startMonitor(
	s *simulation.Simulation,
	registry *region.Registry,
	phases []*phase.Phase,
	opts runOptions,
	logger log.Logger,
) {
	monitor := monitoring.NewMonitor().WithPortNumber(opts.port)
	monitor.RegisterSimulation(s)
	monitor.RegisterRegions(registry)
	monitor.RegisterPhases(phases)

	port := monitor.StartServer()
	atexit.Register(monitor.StopServer)

	if !opts.browse {
		return
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	err := browser.OpenURL(url)
	if err != nil {
		level.Warn(logger).Log("msg", "cannot open browser", "url", url,
			"err", err)
	}
}

func printReport(w io.Writer, report *simulation.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PHASE\tTHREADS\tELAPSED\tACCESSES\tACCESSES/S")
	for _, p := range report.Phases {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			p.Name,
			p.Threads,
			p.Elapsed.Round(time.Millisecond),
			humanize.Comma(int64(p.TotalAccesses())),
			humanize.SIWithDigits(p.AccessRate(), 2, ""))
	}

	tw.Flush()

	fmt.Fprintf(w, "run %s: %s accesses in %s\n",
		report.RunID,
		humanize.Comma(int64(report.TotalAccesses())),
		report.Elapsed.Round(time.Millisecond))
}
