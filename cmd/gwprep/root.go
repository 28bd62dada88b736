package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kristyvitulova/Publication/internal/config"
	"github.com/kristyvitulova/Publication/internal/logging"
)

// flagKeys maps command-line flags to configuration keys. A flag only
// overrides the key when it is set explicitly.
var flagKeys = map[string]string{
	"root-dir":    "root_dir",
	"channel":     "channel",
	"output-dir":  "output_dir",
	"batch-size":  "batch_size",
	"sample-rate": "sample_rate",
	"format":      "output.format",
	"ledger-dir":  "ledger_dir",
	"log-level":   "log_level",
}

// app carries what every subcommand shares.
type app struct {
	fs        afero.Fs
	v         *viper.Viper
	cfgFile   string
	newLogger func(level string) (*zap.SugaredLogger, error)
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{
		fs:        fs,
		v:         config.NewViper(),
		newLogger: logging.New,
	}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gwprep",
		Short: "Condition gravitational-wave strain recordings into training batches",
		Long: `gwprep turns a directory of strain recordings into fixed-size batches of
whitened, high-passed segments ready for model training.

Each recording is whitened against its own Welch PSD, cut into
non-overlapping segments, zero-phase high-passed and written out in
batches (NumPy .npy by default). A file that cannot be read or processed
is reported and skipped; a failed artifact write ends the run.

Configuration comes from --config (YAML), GWPREP_* environment variables
and flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		a.runCmd(),
		a.psdCmd(),
		a.planCmd(),
		a.inspectCmd(),
		a.reportCmd(),
		a.windowsCmd(),
		a.configCmd(),
	)
	return root
}

// setup binds cmd's flags, resolves the configuration and builds the
// logger. With validate set the configuration must describe a full run.
func (a *app) setup(cmd *cobra.Command, validate bool) (*config.Config, *zap.SugaredLogger, error) {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = a.v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return nil, nil, bindErr
	}

	load := config.Read
	if validate {
		load = config.Load
	}
	cfg, err := load(a.v, a.cfgFile)
	if err != nil {
		return nil, nil, err
	}

	log, err := a.newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}
