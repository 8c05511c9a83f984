package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/cartd/api/responses"
	"github.com/angelmondragon/cartd/pkg/config"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartd-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and Redis. A nil dependency is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartd-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]Pinger{"database": dbP, "redis": redisP}
		for name, p := range checks {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
