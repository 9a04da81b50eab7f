package controllers

import (
	"net/http"

	"github.com/YuniorRivera/remesas-haiti-backend/api/responses"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/config"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db"
	pkgerrors "github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Remesas-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, dbPinger db.Pinger, redisPinger redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Remesas-Env", cfg.App.Env)

		if dbPinger != nil {
			if err := dbPinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if redisPinger != nil {
			if err := redisPinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
