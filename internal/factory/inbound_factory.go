package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/adapters/smtpd"
	"github.com/vcaboara/job-lead-finder-sub000/internal/adapters/webhook"
	"github.com/vcaboara/job-lead-finder-sub000/internal/config"
	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
)

// InboundFactory creates inbound servers based on configuration
type InboundFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	service  *core.IngestService
	registry core.AddressRegistry
}

// NewInboundFactory creates a new inbound server factory
func NewInboundFactory(cfg *config.Config, logger *zap.Logger, service *core.IngestService, registry core.AddressRegistry) *InboundFactory {
	return &InboundFactory{
		cfg:      cfg,
		logger:   logger,
		service:  service,
		registry: registry,
	}
}

// CreateInboundServer creates an inbound server based on the configuration
func (f *InboundFactory) CreateInboundServer() (core.InboundServer, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.Mode {
	case "webhook":
		return webhook.NewServer(f.service, f.registry, f.logger, serverCfg.ListenAddress), nil
	case "smtp":
		return smtpd.NewServer(f.service, f.logger, serverCfg.SMTPListenAddress, serverCfg.SMTPDomain), nil
	default:
		return nil, fmt.Errorf("unsupported server mode: %s", serverCfg.Mode)
	}
}
