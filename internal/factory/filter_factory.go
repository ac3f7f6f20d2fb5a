package factory

import (
	"io"

	"github.com/mikey/phishguard/internal/adapters/filter"
	"github.com/mikey/phishguard/internal/adapters/httpapi"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates the frontends that feed the detection service
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.PhishingDetectionService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.PhishingDetectionService) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateFrontends returns every enabled server frontend
func (f *FilterFactory) CreateFrontends() ([]ports.Frontend, error) {
	var frontends []ports.Frontend

	httpCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}
	if httpCfg.Enabled {
		frontends = append(frontends, httpapi.NewServer(f.service, f.logger, httpapi.ServerOptions{
			ListenAddress:   httpCfg.ListenAddress,
			ReadTimeout:     httpCfg.ReadTimeout,
			WriteTimeout:    httpCfg.WriteTimeout,
			ShutdownTimeout: httpCfg.ShutdownTimeout,
			Mode:            httpCfg.Mode,
			AllowedOrigins:  httpCfg.AllowedOrigins,
		}))
	}

	if smtpCfg := f.cfg.GetSMTP(); smtpCfg.Enabled {
		frontends = append(frontends, f.createPostfixFilter(smtpCfg))
	}

	return frontends, nil
}

func (f *FilterFactory) createPostfixFilter(smtpCfg config.SMTPConfig) *filter.PostfixFilter {
	relay := filter.NewSMTPRelay(smtpCfg.PostfixAddress, smtpCfg.PostfixPort, f.logger)
	return filter.NewPostfixFilter(f.service, relay, f.logger, filter.PostfixFilterOptions{
		ListenAddress:    smtpCfg.ListenAddress,
		BlockPhishing:    smtpCfg.BlockPhishing,
		MaxMessageBytes:  smtpCfg.MaxMessageBytes,
		StatusHeader:     smtpCfg.StatusHeader,
		ConfidenceHeader: smtpCfg.ConfidenceHeader,
		ScanIDHeader:     smtpCfg.ScanIDHeader,
		SubjectPrefix:    smtpCfg.SubjectPrefix,
		ModifySubject:    smtpCfg.ModifySubject,
		RelayEnabled:     smtpCfg.PostfixEnabled,
	})
}

// CreateCliFilter creates the report-printing filter used by phish-scan
func (f *FilterFactory) CreateCliFilter(out io.Writer, verbose bool) ports.EmailFilter {
	return filter.NewCliFilter(f.service, f.logger, out, verbose)
}
