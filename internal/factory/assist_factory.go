package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/adapters/bedrock"
	"github.com/vcaboara/job-lead-finder-sub000/internal/adapters/gemini"
	"github.com/vcaboara/job-lead-finder-sub000/internal/adapters/openai"
	"github.com/vcaboara/job-lead-finder-sub000/internal/config"
	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/utils"
)

// AssistFactory creates the optional second-opinion classifier
type AssistFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAssistFactory creates a new assist classifier factory
func NewAssistFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *AssistFactory {
	return &AssistFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAssistClient creates an assist client based on the configuration.
// Returns nil when assist is disabled: the rule engine stands alone and
// classification stays fully deterministic.
func (f *AssistFactory) CreateAssistClient() (core.AssistClient, error) {
	assistCfg := f.cfg.GetAssist()
	if !assistCfg.Enabled {
		return nil, nil
	}

	switch assistCfg.Provider {
	case "openai":
		factory := openai.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateAssistClient()
	case "gemini":
		factory := gemini.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateAssistClient()
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateAssistClient()
	default:
		return nil, fmt.Errorf("unsupported assist provider: %s", assistCfg.Provider)
	}
}
