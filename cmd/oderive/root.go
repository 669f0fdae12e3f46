package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sghaida/oderive/internal/config"
	"github.com/sghaida/oderive/internal/logging"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "oderive",
		Short: "Generate builders and structured Format methods for annotated Go structs",
		Long: `oderive reads structs marked with //derive:builder and //derive:debug (or a
YAML/JSON record spec) and writes a *_derive.gen.go file next to the input with:

  - a <Name>Builder with one setter per field, element accessors for
    //derive:builder(each = "x") fields, Build and MustBuild
  - a Format method rendering Name { field: value, ... }, honouring
    //derive:debug = "<format>" per field`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./"+config.FileName+".yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.Int("jobs", 0, "files and records generated concurrently (0 = unlimited)")

	bindFlags(a.v, flags)

	root.AddCommand(
		newGenerateCmd(a),
		newExplainCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

// configKeys maps persistent flags onto configuration keys.
var configKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"jobs":       "jobs",
}

// bindFlags lets set flags take precedence over file and environment values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := configKeys[f.Name]; ok {
			must(v.BindPFlag(key, f))
		}
	})
}

// setup loads the configuration and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, a.stderr)
	if err != nil {
		return fmt.Errorf("oderive: %w", err)
	}
	a.cfg = cfg
	a.log = log
	a.log.Debug("configuration loaded", zapConfig(cfg)...)
	return nil
}

func zapConfig(c config.Config) []zap.Field {
	return []zap.Field{
		zap.String("runtime_import", c.RuntimeImport),
		zap.String("out_suffix", c.OutSuffix),
		zap.String("bound", c.Debug.Bound),
		zap.Bool("strict_bounds", c.Debug.StrictBounds),
		zap.Strings("wrappers", c.Debug.Wrappers),
		zap.Int("jobs", c.Jobs),
	}
}
