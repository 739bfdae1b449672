package api

import (
	"fmt"
	"net/http"

	"provisionr/services/provisioner"
)

// configRequest mirrors GlobalConfig with optional fields so omitted values
// fall back to the defaults.
type configRequest struct {
	TargetOS         *provisioner.TargetOS `json:"target_os"`
	IssueCredentials *bool                 `json:"issue_credentials"`
	ExtraValues      map[string]any        `json:"extra_values"`
}

func (req configRequest) toConfig() provisioner.GlobalConfig {
	cfg := provisioner.DefaultConfig()
	if req.TargetOS != nil {
		cfg.TargetOS = *req.TargetOS
	}
	if req.IssueCredentials != nil {
		cfg.IssueCredentials = *req.IssueCredentials
	}
	if req.ExtraValues != nil {
		cfg.ExtraValues = req.ExtraValues
	}
	return cfg
}

func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	cfg, err := a.deps.Config.Read(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (a *API) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid config payload: %w", err))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	cfg, err := a.deps.Config.Write(ctx, req.toConfig())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}
