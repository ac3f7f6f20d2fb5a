package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/factory"
	"github.com/mikey/phishguard/internal/logging"
	"github.com/mikey/phishguard/internal/ports"
	"github.com/mikey/phishguard/internal/utils"
	"github.com/mikey/phishguard/internal/whitelist"
)

// Scorers carries both model paths out of a single artifact load
type Scorers struct {
	dig.Out

	Lexical    core.LexicalScorer
	Sequential core.SequentialScorer
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideDetection(container); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register service options
	if err := container.Provide(func(f *factory.CacheFactory) (core.ServiceOptions, error) {
		return f.ServiceOptions()
	}); err != nil {
		return nil, err
	}

	// Register server frontends
	if err := container.Provide(func(f *factory.FilterFactory) ([]ports.Frontend, error) {
		return f.CreateFrontends()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideDetection registers everything shared by the server and the CLI:
// factories, scorers, allowlist, text sanitizer and the detection service
func provideDetection(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewModelFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return err
	}

	// Register scorers
	if err := container.Provide(func(f *factory.ModelFactory) (Scorers, error) {
		lexical, sequential, err := f.CreateScorers(context.Background())
		if err != nil {
			return Scorers{}, err
		}
		return Scorers{Lexical: lexical, Sequential: sequential}, nil
	}); err != nil {
		return err
	}

	// Register whitelisted domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.SenderAllowlist {
		return whitelist.NewChecker(cfg.GetScan().WhitelistedDomains, logger)
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(logger *zap.Logger) core.TextSanitizer {
		return utils.NewTextProcessor(logger)
	}); err != nil {
		return err
	}

	// Register phishing detection service
	return container.Provide(core.NewPhishingDetectionService)
}
