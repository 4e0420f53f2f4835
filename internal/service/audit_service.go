package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/events"
)

// AuditService records auth events to the structured log and, when
// configured, forwards security-relevant ones to a webhook.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventLoggedOut, a.handleLoggedOut)
	a.dispatcher.Subscribe(events.EventPrincipalRegistered, a.handlePrincipalRegistered)
	a.dispatcher.Subscribe(events.EventTokenRejected, a.handleTokenRejected)
}

func (a *AuditService) handleLoginSucceeded(ctx context.Context, event events.Event) error {
	a.logger.Info("LoginSucceeded", zap.String("subject_id", event.SubjectID))
	return nil
}

func (a *AuditService) handleLoginFailed(ctx context.Context, event events.Event) error {
	a.logger.Warn("LoginFailed", zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AuditService) handleLoggedOut(ctx context.Context, event events.Event) error {
	a.logger.Info("LoggedOut", zap.String("subject_id", event.SubjectID))
	return nil
}

func (a *AuditService) handlePrincipalRegistered(ctx context.Context, event events.Event) error {
	a.logger.Info("PrincipalRegistered", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleTokenRejected(ctx context.Context, event events.Event) error {
	a.logger.Warn("TokenRejected", zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

// sendWebhookStub logs instead of calling out; delivery lands here once a
// receiving endpoint exists.
func (a *AuditService) sendWebhookStub(_ context.Context, event events.Event) {
	if a.cfg.WebhookURL == "" {
		return
	}
	a.logger.Info("security webhook notification",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
	)
}
