package api

import "net/http"

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": a.config.ServiceName,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.deps.DB != nil {
		if err := a.deps.DB.Ping(r.Context()); err != nil {
			a.log.Warn().Err(err).Msg("readiness check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
