package api

import (
	"net/http"

	"provisionr/pkg/render"
	"provisionr/services/provisioner"
)

func (a *API) handleKickstart(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	id := provisioner.Identity{
		MAC:    query.Get("mac"),
		UUID:   query.Get("uuid"),
		Serial: query.Get("serial"),
	}
	templateName := query.Get("template_name")
	if templateName == "" {
		templateName = render.DefaultName
	}

	// Every query parameter is visible to the template; identity keys are
	// overwritten by the pipeline. A repeated parameter contributes its first value only.
	vars := make(map[string]string, len(query))
	for key := range query {
		vars[key] = query.Get(key)
	}

	out, err := a.deps.Renderer.Render(r.Context(), id, templateName, vars)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondText(w, http.StatusOK, out)
}
