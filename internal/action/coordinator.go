// Package action runs the panel's mutating toggles against the backend and
// keeps the displayed facts and the refresh cycle consistent with them.
package action

import (
	"context"

	"go.uber.org/zap"

	"tunneldeck/internal/storage/models"
	tderrors "tunneldeck/pkg/errors"
)

// Connections is the registry side of an action.
type Connections interface {
	SetConnected(id string, connected bool)
	SetIPv6Disabled(disabled bool)
	SetOpenVPNEnabled(enabled bool)
	Toggle(ctx context.Context, id string, desired bool) error
	MarkStale()
}

// Backend issues the global toggles.
type Backend interface {
	SetIPv6Disabled(ctx context.Context, disabled bool) error
	SetOpenVPNEnabled(ctx context.Context, enabled bool) error
}

// Facts is the displayed network snapshot.
type Facts interface {
	Reset()
}

// Scheduler is the refresh cycle.
type Scheduler interface {
	Cancel()
	RequestImmediateRefresh()
}

// Recorder stores the action history. Failures are logged and ignored.
type Recorder interface {
	RecordAction(ctx context.Context, action *models.Action) error
}

// Coordinator executes user toggles.
type Coordinator struct {
	conns     Connections
	backend   Backend
	facts     Facts
	scheduler Scheduler
	recorder  Recorder
	logger    *zap.Logger
}

// NewCoordinator wires a coordinator. recorder may be nil.
func NewCoordinator(conns Connections, backend Backend, facts Facts, scheduler Scheduler, recorder Recorder, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		conns:     conns,
		backend:   backend,
		facts:     facts,
		scheduler: scheduler,
		recorder:  recorder,
		logger:    logger,
	}
}

// ToggleConnection brings a connection up or down. The registry requests the
// refresh itself when the backend accepts the command.
func (c *Coordinator) ToggleConnection(ctx context.Context, id string, desired bool) error {
	c.conns.SetConnected(id, desired)
	c.invalidate()

	err := c.conns.Toggle(ctx, id, desired)
	c.conns.MarkStale()
	if err != nil {
		c.scheduler.RequestImmediateRefresh()
	}
	return c.finish(ctx, models.ActionConnection, id, desired, err)
}

// ToggleIPv6 disables or re-enables IPv6 on the active connection.
func (c *Coordinator) ToggleIPv6(ctx context.Context, disabled bool) error {
	c.conns.SetIPv6Disabled(disabled)
	c.invalidate()

	err := c.backend.SetIPv6Disabled(ctx, disabled)
	c.conns.MarkStale()
	c.scheduler.RequestImmediateRefresh()
	return c.finish(ctx, models.ActionIPv6, "", disabled, err)
}

// ToggleOpenVPN installs or removes OpenVPN support on the backend.
func (c *Coordinator) ToggleOpenVPN(ctx context.Context, enabled bool) error {
	c.conns.SetOpenVPNEnabled(enabled)
	c.invalidate()

	err := c.backend.SetOpenVPNEnabled(ctx, enabled)
	c.conns.MarkStale()
	c.scheduler.RequestImmediateRefresh()
	return c.finish(ctx, models.ActionOpenVPN, "", enabled, err)
}

// invalidate drops the displayed facts; they are stale from the moment a
// toggle is sent.
func (c *Coordinator) invalidate() {
	c.facts.Reset()
	c.scheduler.Cancel()
}

func (c *Coordinator) finish(ctx context.Context, kind, target string, desired bool, err error) error {
	record := &models.Action{
		Kind:    kind,
		Target:  target,
		Desired: desired,
		Success: err == nil,
	}
	if err != nil {
		record.ErrorMessage = err.Error()
	}

	logger := c.logger.With(zap.String("action", record.Verb()), zap.String("target", target))
	if err != nil {
		logger.Warn("action failed", zap.Error(err))
	} else {
		logger.Info("action sent")
	}

	if c.recorder != nil {
		if rerr := c.recorder.RecordAction(context.WithoutCancel(ctx), record); rerr != nil {
			logger.Debug("failed to record action", zap.Error(rerr))
		}
	}

	if err != nil {
		return &tderrors.ActionError{Action: record.Verb(), Target: target, Err: err}
	}
	return nil
}
