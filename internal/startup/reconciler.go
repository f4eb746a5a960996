// Package startup implements the Startup Reconciler: on boot, make
// sure the object store bucket exists and is reachable, then bring every
// session the row store still remembers as connected back up through the
// normal restoration path.
package startup

import (
	"context"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/felipe/wagateway/internal/objectstore"
	"github.com/felipe/wagateway/internal/session"
	"github.com/felipe/wagateway/internal/worker"
)

// Reconciler runs once at process start.
type Reconciler struct {
	sessions repositories.SessionRepository
	store    *objectstore.Store
	factory  *worker.Factory
	registry *session.Registry
	deps     session.Deps
	logger   *logger.ComponentLogger
}

func New(sessions repositories.SessionRepository, store *objectstore.Store, factory *worker.Factory, registry *session.Registry, deps session.Deps) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		store:    store,
		factory:  factory,
		registry: registry,
		deps:     deps,
		logger:   logger.ForComponent("startup_reconciler"),
	}
}

// Run ensures the object store bucket exists and is reachable, then
// restarts a Supervisor for every session the row store still lists as
// connected. Restoration is started asynchronously per session — one
// failing session never blocks the others or delays process startup.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.store.Enabled() {
		if err := r.store.EnsureBucket(ctx); err != nil {
			r.logger.Error().Err(err).Msg("object store bucket could not be ensured at startup")
			return err
		}
		if _, err := r.store.List(ctx, ""); err != nil {
			r.logger.Error().Err(err).Msg("object store unreachable at startup")
			return err
		}
	}

	status := models.SessionStatusConnected
	var connected []models.Session
	for page := 1; ; page++ {
		result, err := r.sessions.GetAll(&models.SessionFilter{Status: &status, Page: page, PerPage: 100})
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to list connected sessions for restoration")
			return err
		}
		connected = append(connected, result.Sessions...)
		if page >= result.TotalPages {
			break
		}
	}

	r.logger.Info().Int("count", len(connected)).Msg("restoring sessions from last known state")
	for i := range connected {
		s := connected[i]
		savedJID := ""
		if s.JID != nil {
			savedJID = *s.JID
		}
		go func(sessionID, userID, jid string) {
			if _, err := session.Start(ctx, sessionID, userID, r.factory, r.registry, r.deps, jid); err != nil {
				r.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to restore session")
			}
		}(s.SessionID, s.UserID, savedJID)
	}
	return nil
}
