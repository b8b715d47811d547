package align

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/LynnColeArt/bandalign"
	"github.com/LynnColeArt/bandalign/cmd/util"
	"github.com/LynnColeArt/bandalign/logging"
)

// Growth policy names accepted by --growth.
const (
	GrowthDoubling    = "doubling"
	GrowthIncremental = "incremental"
	GrowthNone        = "none"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// AlignerConfig configures every aligner created by a command.
type AlignerConfig struct {
	MaxDeviceMemory   int64
	MaxBandwidth      int
	InitialBandwidth  int
	Growth            string
	GrowthStep        int
	MaxSequenceLength int
	MaxAlignments     int
}

type LogConfig struct {
	// Format is the log format: 'text' or 'json'.
	Format string

	// Level is the log level: 'none', 'debug', 'info', 'warn', 'error', 'panic' or 'fatal'.
	Level string
}

// Config is the configuration shared by the align and selftest commands.
type Config struct {
	Aligner AlignerConfig
	Log     LogConfig
	Output  string
}

// DefaultConfig returns the configuration used when no flag, environment
// variable or config file overrides a value.
func DefaultConfig() *Config {
	return &Config{
		Aligner: AlignerConfig{
			MaxDeviceMemory:  64 << 20,
			MaxBandwidth:     1024,
			InitialBandwidth: bandalign.DefaultInitialBandwidth,
			Growth:           GrowthDoubling,
			GrowthStep:       64,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Output: OutputText,
	}
}

// Verify returns an error if the configuration cannot be used to build aligners.
func (c *Config) Verify() error {
	if c.Aligner.MaxDeviceMemory <= 0 {
		return fmt.Errorf("aligner.maxDeviceMemory must be positive, got %d", c.Aligner.MaxDeviceMemory)
	}
	if c.Aligner.MaxBandwidth < bandalign.MinMaxBandwidth {
		return fmt.Errorf("aligner.maxBandwidth must be at least %d, got %d", bandalign.MinMaxBandwidth, c.Aligner.MaxBandwidth)
	}
	if c.Aligner.InitialBandwidth <= 0 {
		return fmt.Errorf("aligner.initialBandwidth must be positive, got %d", c.Aligner.InitialBandwidth)
	}
	if _, err := c.Aligner.growthPolicy(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "none", "debug", "info", "warn", "error", "panic", "fatal":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output must be one of %q, %q or %q, got %q", OutputText, OutputJSON, OutputYAML, c.Output)
	}
	return nil
}

func (c AlignerConfig) growthPolicy() (bandalign.GrowthPolicy, error) {
	switch c.Growth {
	case GrowthDoubling:
		return bandalign.DoublingGrowth{}, nil
	case GrowthIncremental:
		if c.GrowthStep <= 0 {
			return nil, fmt.Errorf("aligner.growthStep must be positive, got %d", c.GrowthStep)
		}
		return bandalign.IncrementalGrowth{Step: c.GrowthStep}, nil
	case GrowthNone:
		return bandalign.NoGrowth{}, nil
	default:
		return nil, fmt.Errorf("unknown growth policy %q", c.Growth)
	}
}

// options translates the configuration into aligner options.
func (c AlignerConfig) options(logger logging.Logger) ([]bandalign.Option, error) {
	growth, err := c.growthPolicy()
	if err != nil {
		return nil, err
	}
	return []bandalign.Option{
		bandalign.WithLogger(logger),
		bandalign.WithInitialBandwidth(c.InitialBandwidth),
		bandalign.WithGrowthPolicy(growth),
		bandalign.WithMaxSequenceLength(c.MaxSequenceLength),
		bandalign.WithMaxAlignments(c.MaxAlignments),
	}, nil
}

// ReadConfig merges the config file, the environment and bound flags on top
// of DefaultConfig.
func ReadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// addAlignerFlags registers the flags shared by every aligning command.
func addAlignerFlags(flags *pflag.FlagSet) {
	defaultConfig := DefaultConfig()

	flags.Int64("max-device-memory", defaultConfig.Aligner.MaxDeviceMemory, "the device memory budget in bytes of each aligner")
	flags.Int("max-bandwidth", defaultConfig.Aligner.MaxBandwidth, "the largest band an alignment may be widened to")
	flags.Int("initial-bandwidth", defaultConfig.Aligner.InitialBandwidth, "the band alignments are first attempted with")
	flags.String("growth", defaultConfig.Aligner.Growth, "the band growth policy: 'doubling', 'incremental' or 'none'")
	flags.Int("growth-step", defaultConfig.Aligner.GrowthStep, "the band increment of the 'incremental' growth policy")
	flags.Int("max-sequence-length", defaultConfig.Aligner.MaxSequenceLength, "reject sequences longer than this (0 disables the check)")
	flags.Int("max-alignments", defaultConfig.Aligner.MaxAlignments, "reject requests beyond this many per batch (0 disables the check)")
	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in: 'text' or 'json'")
	flags.String("log-level", defaultConfig.Log.Level, "the log level to use: 'none', 'debug', 'info', 'warn', 'error', 'panic' or 'fatal'")
	flags.StringP("output", "o", defaultConfig.Output, "the result format: 'text', 'json' or 'yaml'")
}

// bindAlignerFlagsFunc binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindAlignerFlagsFunc(flags *pflag.FlagSet) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, _ []string) {
		util.MustBindPFlag("aligner.maxDeviceMemory", flags.Lookup("max-device-memory"))
		util.MustBindEnv("aligner.maxDeviceMemory", "BANDALIGN_MAX_DEVICE_MEMORY")

		util.MustBindPFlag("aligner.maxBandwidth", flags.Lookup("max-bandwidth"))
		util.MustBindEnv("aligner.maxBandwidth", "BANDALIGN_MAX_BANDWIDTH")

		util.MustBindPFlag("aligner.initialBandwidth", flags.Lookup("initial-bandwidth"))
		util.MustBindEnv("aligner.initialBandwidth", "BANDALIGN_INITIAL_BANDWIDTH")

		util.MustBindPFlag("aligner.growth", flags.Lookup("growth"))
		util.MustBindEnv("aligner.growth", "BANDALIGN_GROWTH")

		util.MustBindPFlag("aligner.growthStep", flags.Lookup("growth-step"))
		util.MustBindEnv("aligner.growthStep", "BANDALIGN_GROWTH_STEP")

		util.MustBindPFlag("aligner.maxSequenceLength", flags.Lookup("max-sequence-length"))
		util.MustBindEnv("aligner.maxSequenceLength", "BANDALIGN_MAX_SEQUENCE_LENGTH")

		util.MustBindPFlag("aligner.maxAlignments", flags.Lookup("max-alignments"))
		util.MustBindEnv("aligner.maxAlignments", "BANDALIGN_MAX_ALIGNMENTS")

		util.MustBindPFlag("log.format", flags.Lookup("log-format"))
		util.MustBindEnv("log.format", "BANDALIGN_LOG_FORMAT")

		util.MustBindPFlag("log.level", flags.Lookup("log-level"))
		util.MustBindEnv("log.level", "BANDALIGN_LOG_LEVEL")

		util.MustBindPFlag("output", flags.Lookup("output"))
		util.MustBindEnv("output", "BANDALIGN_OUTPUT")
	}
}
