// Package smtpd is the secondary inbound transport: an SMTP listener for
// deployments that point an MX record straight at the service instead of
// using a webhook provider.
package smtpd

import (
	"context"
	"errors"
	"io"
	"net/mail"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/metrics"
)

// Server is the SMTP inbound adapter implementing core.InboundServer
type Server struct {
	service *core.IngestService
	logger  *zap.Logger
	addr    string
	domain  string
	server  *smtp.Server
}

// NewServer creates the SMTP server listening on addr
func NewServer(service *core.IngestService, logger *zap.Logger, addr, domain string) *Server {
	return &Server{
		service: service,
		logger:  logger,
		addr:    addr,
		domain:  domain,
	}
}

// Start starts the SMTP listener
func (s *Server) Start() error {
	s.server = smtp.NewServer(&backend{server: s})

	s.server.Addr = s.addr
	s.server.Domain = s.domain
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = core.MaxMessageBytes + 64*1024 // headroom for headers
	s.server.MaxRecipients = 10
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP server starting", zap.String("address", s.addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP listener
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// backend implements the go-smtp Backend interface
type backend struct {
	server *Server
}

// NewSession creates a new SMTP session
func (b *backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &session{
		server:     b.server,
		recipients: make([]string, 0),
	}, nil
}

// session implements the go-smtp Session interface
type session struct {
	server     *Server
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *session) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// Logout ends the session
func (s *session) Logout() error {
	return nil
}

// AuthPlain handles PLAIN authentication (not needed for ingestion)
func (s *session) AuthPlain(_, _ string) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message, converts it into an inbound payload and runs the
// ingestion pipeline. Only the first recipient matters: a forwarding address
// is single-owner.
func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(r, int64(core.MaxMessageBytes)+64*1024))
	if err != nil {
		s.server.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	payload, err := payloadFromRaw(s.sender, s.recipients, raw)
	if err != nil {
		metrics.IncrementOutcome(string(core.OutcomeRejected))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "malformed message",
		}
	}

	result, err := s.server.service.HandleInbound(context.Background(), payload)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrValidation):
			metrics.IncrementOutcome(string(core.OutcomeRejected))
			return &smtp.SMTPError{
				Code:         550,
				EnhancedCode: smtp.EnhancedCode{5, 6, 0},
				Message:      "message rejected",
			}
		case errors.Is(err, core.ErrRateLimited):
			metrics.IncrementOutcome(string(core.OutcomeRateLimited))
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 7, 28},
				Message:      "rate limit exceeded, try again later",
			}
		default:
			s.server.logger.Error("Inbound processing failed", zap.Error(err))
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "temporary processing failure",
			}
		}
	}

	metrics.IncrementOutcome(string(result.Outcome))
	return nil
}

// payloadFromRaw parses an RFC 822 message into the pipeline's payload shape
func payloadFromRaw(sender string, recipients []string, raw []byte) (*core.InboundPayload, error) {
	msg, err := mail.ReadMessage(bytesReader(raw))
	if err != nil {
		return nil, err
	}

	to := ""
	if len(recipients) > 0 {
		to = recipients[0]
	}

	text, html := extractParts(msg)

	payload := &core.InboundPayload{
		To:      to,
		From:    sender,
		Subject: msg.Header.Get("Subject"),
		Text:    text,
		HTML:    html,
	}
	if date, err := msg.Header.Date(); err == nil {
		payload.ReceivedAt = date
	}
	return payload, nil
}
