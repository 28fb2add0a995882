package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/classify"
	"github.com/vcaboara/job-lead-finder-sub000/internal/config"
	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/factory"
	"github.com/vcaboara/job-lead-finder-sub000/internal/logging"
	"github.com/vcaboara/job-lead-finder-sub000/internal/registry"
	"github.com/vcaboara/job-lead-finder-sub000/internal/sanitize"
	"github.com/vcaboara/job-lead-finder-sub000/internal/store"
	"github.com/vcaboara/job-lead-finder-sub000/internal/utils"
)

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

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewRateLimiterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewJobStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAssistFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewInboundFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register address registry
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.AddressRegistry, error) {
		return registry.NewFileRegistry(
			cfg.GetString("registry.path"),
			cfg.GetString("forwarding.domain"),
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register inbound store
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*store.FileStore, error) {
		sweepFreq, err := cfg.GetDuration("store.sweep_frequency")
		if err != nil {
			return nil, err
		}
		return store.NewFileStore(cfg.GetString("store.root"), logger, sweepFreq)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *store.FileStore) core.InboundStore {
		return s
	}); err != nil {
		return nil, err
	}

	// Register rate limiter
	if err := container.Provide(func(f *factory.RateLimiterFactory) (core.RateLimiter, error) {
		return f.CreateRateLimiter()
	}); err != nil {
		return nil, err
	}

	// Register sanitizer
	if err := container.Provide(func() core.Sanitizer {
		return sanitize.NewHTMLSanitizer()
	}); err != nil {
		return nil, err
	}

	// Register classification engine
	if err := container.Provide(func(logger *zap.Logger, text *utils.TextProcessor) core.Classifier {
		return classify.NewEngine(logger, text)
	}); err != nil {
		return nil, err
	}

	// Register job store
	if err := container.Provide(func(f *factory.JobStoreFactory) (core.JobStore, error) {
		return f.CreateJobStore()
	}); err != nil {
		return nil, err
	}

	// Register assist client (nil when disabled)
	if err := container.Provide(func(f *factory.AssistFactory) (core.AssistClient, error) {
		return f.CreateAssistClient()
	}); err != nil {
		return nil, err
	}

	// Register ingestion service
	if err := container.Provide(core.NewIngestService); err != nil {
		return nil, err
	}

	// Register inbound server
	if err := container.Provide(func(f *factory.InboundFactory) (core.InboundServer, error) {
		return f.CreateInboundServer()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
