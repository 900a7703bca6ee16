package cmd

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLogger(w io.Writer, lvl string) (log.Logger, error) {
	var option level.Option

	switch strings.ToLower(lvl) {
	case "debug":
		option = level.AllowDebug()
	case "info":
		option = level.AllowInfo()
	case "warn":
		option = level.AllowWarn()
	case "error":
		option = level.AllowError()
	default:
		return nil, errors.Errorf("unknown log level %q", lvl)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, option)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	return logger, nil
}

func loggerFromFlags(cmd *cobra.Command) (log.Logger, error) {
	lvl, _ := cmd.Flags().GetString("log.level")
	return newLogger(os.Stderr, lvl)
}

// stringOption returns the flag value, or the environment variable when the
// flag is not given.
func stringOption(cmd *cobra.Command, flag, env string) string {
	v, _ := cmd.Flags().GetString(flag)
	if cmd.Flags().Changed(flag) {
		return v
	}

	if e, ok := os.LookupEnv(env); ok {
		return e
	}

	return v
}

func intOption(cmd *cobra.Command, flag, env string) (int, error) {
	v, _ := cmd.Flags().GetInt(flag)
	if cmd.Flags().Changed(flag) {
		return v, nil
	}

	e, ok := os.LookupEnv(env)
	if !ok {
		return v, nil
	}

	n, err := strconv.Atoi(e)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", env)
	}

	return n, nil
}

func uint64Option(cmd *cobra.Command, flag, env string) (uint64, error) {
	v, _ := cmd.Flags().GetUint64(flag)
	if cmd.Flags().Changed(flag) {
		return v, nil
	}

	e, ok := os.LookupEnv(env)
	if !ok {
		return v, nil
	}

	n, err := strconv.ParseUint(e, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", env)
	}

	return n, nil
}

// explicit tells whether the user chose the value through the flag or the
// environment variable, in which case it wins over the workload config.
func explicit(cmd *cobra.Command, flag, env string) bool {
	if cmd.Flags().Changed(flag) {
		return true
	}

	_, ok := os.LookupEnv(env)

	return ok
}
