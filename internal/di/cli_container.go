package di

import (
	"flag"
	"io"
	"os"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/factory"
	"github.com/mikey/phishguard/internal/logging"
	"github.com/mikey/phishguard/internal/ports"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
	ModelsDir  string
	Whitelist  string

	// Output receives the report; defaults to stdout
	Output io.Writer
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{Output: os.Stdout}

	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	flag.StringVar(&flags.ModelsDir, "models-dir", "", "Directory holding the model artifacts (overrides config)")
	flag.StringVar(&flags.Whitelist, "whitelist", "", "Comma-separated list of whitelisted domains")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg := config.NewFromViper(config.NewEmptyViper())
		if flags.ConfigFile != "" {
			var err error
			cfg, err = config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideDetection(container); err != nil {
		return nil, err
	}

	// No cache for one-shot scans
	if err := container.Provide(func() core.CacheRepository { return nil }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) core.ServiceOptions {
		return core.ServiceOptions{MaxContentSize: cfg.GetScan().MaxContentSize}
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory, flags *CLIFlags) ports.EmailFilter {
		out := flags.Output
		if out == nil {
			out = os.Stdout
		}
		return f.CreateCliFilter(out, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags lets command line flags override the loaded configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()
	v.Set("cache.enabled", false)
	if flags.ModelsDir != "" {
		v.Set("models.source", "file")
		v.Set("models.dir", flags.ModelsDir)
	}
	if flags.Whitelist != "" {
		domains := strings.Split(flags.Whitelist, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("scan.whitelisted_domains", domains)
	}
}
