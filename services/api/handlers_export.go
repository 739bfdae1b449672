package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"provisionr/services/provisioner"
)

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	// Buffer so a storage failure can still produce a clean error response.
	var buf bytes.Buffer
	n, err := a.deps.Exporter.WriteCSV(r.Context(), &buf)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.log.Info().Int("records", n).Str("remote", r.RemoteAddr).Msg("credential export downloaded")

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", provisioner.ExportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
