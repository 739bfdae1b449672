package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"provisionr/pkg/db"
	"provisionr/pkg/db/dbtest"
	"provisionr/pkg/passphrase"
	"provisionr/pkg/render"
	"provisionr/pkg/shacrypt"
	"provisionr/services/provisioner"
)

type testServer struct {
	handler http.Handler
	store   *db.Store
	source  *render.DirSource
	ledger  *provisioner.Ledger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := dbtest.Open(t)
	source := render.NewDirSource(t.TempDir())
	engine, err := render.New(source)
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	configStore := provisioner.NewConfigStore(store.ORM)
	ledger := provisioner.NewLedger(store.ORM, passphrase.New())
	pipeline := provisioner.NewPipeline(configStore, ledger, shacrypt.New(), engine, zerolog.Nop())

	a, err := New(Deps{
		Renderer:  pipeline,
		Config:    configStore,
		Exporter:  provisioner.NewExporter(ledger),
		Templates: engine,
		DB:        store,
		Logger:    zerolog.Nop(),
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h, err := a.Routes()
	if err != nil {
		t.Fatalf("Routes() error = %v", err)
	}
	return &testServer{handler: h, store: store, source: source, ledger: ledger}
}

func (s *testServer) do(t *testing.T, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "healthy" || body["service"] != "provisionr" {
		t.Fatalf("body = %v", body)
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rec := s.do(t, http.MethodGet, path, nil, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestConfigEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/config", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	got := decodeBody[provisioner.GlobalConfig](t, rec)
	if got.TargetOS != provisioner.TargetRocky9 || !got.IssueCredentials || len(got.ExtraValues) != 0 {
		t.Fatalf("default config = %+v", got)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(t *testing.T, cfg provisioner.GlobalConfig)
	}{
		{
			name:       "full replace",
			body:       `{"target_os":"Ubuntu25.04","issue_credentials":false,"extra_values":{"ntp":"pool.ntp.org"}}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, cfg provisioner.GlobalConfig) {
				if cfg.TargetOS != provisioner.TargetUbuntu2504 || cfg.IssueCredentials || cfg.ExtraValues["ntp"] != "pool.ntp.org" {
					t.Fatalf("config = %+v", cfg)
				}
			},
		},
		{
			name:       "omitted fields take defaults",
			body:       `{"extra_values":{"a":"b"}}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, cfg provisioner.GlobalConfig) {
				if cfg.TargetOS != provisioner.TargetRocky9 || !cfg.IssueCredentials || cfg.ExtraValues["a"] != "b" {
					t.Fatalf("config = %+v", cfg)
				}
			},
		},
		{name: "unknown field", body: `{"generate_passwords":true}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"target_os":`, wantStatus: http.StatusBadRequest},
		{name: "bad target", body: `{"target_os":"Windows11"}`, wantStatus: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, "/api/v1/config", bytes.NewBufferString(tt.body), "application/json")
			if rec.Code != tt.wantStatus {
				t.Fatalf("PUT status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.check == nil {
				if _, ok := decodeBody[map[string]string](t, rec)["error"]; !ok {
					t.Fatalf("error body missing: %s", rec.Body.String())
				}
				return
			}
			tt.check(t, decodeBody[provisioner.GlobalConfig](t, rec))
			tt.check(t, decodeBody[provisioner.GlobalConfig](t, s.do(t, http.MethodGet, "/api/v1/config", nil, "")))
		})
	}
}

func ksURL(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return "/api/v1/ks?" + q.Encode()
}

func TestKickstart(t *testing.T) {
	s := newTestServer(t)
	if err := s.source.Put(t.Context(), "vars", "{{ .mac }} {{ .role }} {{ .template_name }} {{ .target_os }}"); err != nil {
		t.Fatal(err)
	}
	if err := s.source.Put(t.Context(), "broken", `{{ required "disk is required" .disk }}`); err != nil {
		t.Fatal(err)
	}
	machine := map[string]string{"mac": "52:54:00:00:00:01", "uuid": "u-1", "serial": "S1"}
	with := func(extra map[string]string) map[string]string {
		out := map[string]string{}
		for k, v := range machine {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "default template", target: ksURL(machine), wantStatus: http.StatusOK, wantBody: "rootpw --iscrypted $6$"},
		{name: "named template with vars", target: ksURL(with(map[string]string{"template_name": "vars", "role": "db"})), wantStatus: http.StatusOK, wantBody: "52:54:00:00:00:01 db vars Rocky9"},
		{name: "repeated var keeps first value", target: ksURL(machine) + "&template_name=vars&role=web&role=db", wantStatus: http.StatusOK, wantBody: "52:54:00:00:00:01 web vars Rocky9"},
		{name: "missing serial", target: ksURL(map[string]string{"mac": "m", "uuid": "u"}), wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown template", target: ksURL(with(map[string]string{"template_name": "nope"})), wantStatus: http.StatusNotFound},
		{name: "traversal template", target: ksURL(with(map[string]string{"template_name": "../etc"})), wantStatus: http.StatusBadRequest},
		{name: "render failure", target: ksURL(with(map[string]string{"template_name": "broken"})), wantStatus: http.StatusInternalServerError, wantBody: "disk is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, nil, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
					t.Fatalf("Content-Type = %q", ct)
				}
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	records, err := s.ledger.ListAll(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 for repeated requests from one machine", len(records))
	}
}

func TestExportEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/machines/export", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if want := strings.Join(provisioner.ExportHeader, ",") + "\n"; rec.Body.String() != want {
		t.Fatalf("empty export = %q, want %q", rec.Body.String(), want)
	}

	for _, serial := range []string{"A", "B"} {
		if r := s.do(t, http.MethodGet, ksURL(map[string]string{"mac": "m", "uuid": "u", "serial": serial}), nil, ""); r.Code != http.StatusOK {
			t.Fatalf("ks status = %d", r.Code)
		}
	}

	rec = s.do(t, http.MethodGet, "/api/v1/machines/export", nil, "")
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=machine_credentials.csv" {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][2] != "A" || rows[2][2] != "B" {
		t.Fatalf("rows = %v", rows)
	}
}

func multipartBody(t *testing.T, fields map[string]string, file string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", "upload.ks")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(file))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestTemplateEndpoints(t *testing.T) {
	s := newTestServer(t)

	names := decodeBody[[]string](t, s.do(t, http.MethodGet, "/api/v1/templates", nil, ""))
	if len(names) != 1 || names[0] != "default" {
		t.Fatalf("initial templates = %v", names)
	}

	body, ct := multipartBody(t, map[string]string{"template_name": "rocky", "use_as_default": "true"}, "custom {{ .serial }}")
	rec := s.do(t, http.MethodPost, "/api/v1/templates", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	for _, name := range []string{"rocky", "default"} {
		rec := s.do(t, http.MethodGet, "/api/v1/templates/"+name, nil, "")
		if rec.Code != http.StatusOK || rec.Body.String() != "custom {{ .serial }}" {
			t.Fatalf("GET %s = %d %q", name, rec.Code, rec.Body.String())
		}
	}
	rec = s.do(t, http.MethodGet, ksURL(map[string]string{"mac": "m", "uuid": "u", "serial": "S9"}), nil, "")
	if rec.Body.String() != "custom S9" {
		t.Fatalf("default template not replaced: %q", rec.Body.String())
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/templates/missing", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET missing = %d", rec.Code)
	}

	tests := []struct {
		name       string
		fields     map[string]string
		file       string
		wantStatus int
	}{
		{name: "traversal name", fields: map[string]string{"template_name": "../x"}, file: "x", wantStatus: http.StatusBadRequest},
		{name: "empty name", fields: map[string]string{"template_name": ""}, file: "x", wantStatus: http.StatusBadRequest},
		{name: "missing file", fields: map[string]string{"template_name": "x"}, wantStatus: http.StatusBadRequest},
		{name: "bad flag", fields: map[string]string{"template_name": "x", "use_as_default": "maybe"}, file: "x", wantStatus: http.StatusBadRequest},
		{name: "unparsable template", fields: map[string]string{"template_name": "x"}, file: "{{ if }}", wantStatus: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.fields, tt.file)
			if rec := s.do(t, http.MethodPost, "/api/v1/templates", body, ct); rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestStaticUI(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/", wantStatus: http.StatusOK, wantBody: "<title>provisionr</title>"},
		{path: "/app.js", wantStatus: http.StatusOK, wantBody: "/api/v1/config"},
		{path: "/missing.js", wantStatus: http.StatusNotFound},
		{path: "/../../etc/passwd", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, nil, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body missing %q", tt.wantBody)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: provisioner.ErrInvalidIdentity, want: http.StatusUnprocessableEntity},
		{err: provisioner.ErrInvalidTargetOS, want: http.StatusUnprocessableEntity},
		{err: render.ErrInvalidTemplateName, want: http.StatusBadRequest},
		{err: render.ErrTemplateNotFound, want: http.StatusNotFound},
		{err: &render.Error{Name: "x", Err: http.ErrBodyNotAllowed}, want: http.StatusInternalServerError},
		{err: http.ErrHandlerTimeout, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
