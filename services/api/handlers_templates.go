package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"provisionr/pkg/render"
)

func (a *API) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := a.deps.Templates.Names(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, names)
}

func (a *API) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := a.deps.Templates.Lookup(r.Context(), name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondText(w, http.StatusOK, body)
}

func (a *API) handleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadBytes+4096)
	if err := r.ParseMultipartForm(a.config.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	name := strings.TrimSpace(r.FormValue("template_name"))
	if err := render.ValidateName(name); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	useAsDefault := false
	if raw := strings.TrimSpace(r.FormValue("use_as_default")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, errors.New("use_as_default must be a boolean"))
			return
		}
		useAsDefault = parsed
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	if !utf8.Valid(data) {
		respondError(w, http.StatusBadRequest, errors.New("template must be UTF-8 text"))
		return
	}

	targets := []string{name}
	if useAsDefault && name != render.DefaultName {
		targets = append(targets, render.DefaultName)
	}
	for _, target := range targets {
		if err := a.deps.Templates.Save(r.Context(), target, string(data)); err != nil {
			var renderErr *render.Error
			if errors.As(err, &renderErr) {
				respondError(w, http.StatusUnprocessableEntity, renderErr)
				return
			}
			a.fail(w, r, err)
			return
		}
	}

	a.log.Info().Str("template", name).Bool("use_as_default", useAsDefault).Msg("template uploaded")
	respondJSON(w, http.StatusCreated, map[string]any{
		"message":        "Template uploaded successfully",
		"template_name":  name,
		"use_as_default": useAsDefault,
	})
}
