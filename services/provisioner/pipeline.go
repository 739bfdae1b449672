package provisioner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"provisionr/pkg/render"
)

// Namespace keys populated by the pipeline.
const (
	KeyMAC          = "mac"
	KeyUUID         = "uuid"
	KeySerial       = "serial"
	KeyTargetOS     = "target_os"
	KeyRootPassword = "root_password"
	KeyUserPassword = "user_password"
	KeyLUKSPassword = "luks_password"
)

// ConfigReader supplies the current GlobalConfig.
type ConfigReader interface {
	Read(ctx context.Context) (GlobalConfig, error)
}

// CredentialIssuer returns the secrets for an identity, issuing them on first use.
type CredentialIssuer interface {
	GetOrCreate(ctx context.Context, id Identity) (Secrets, error)
}

// PasswordHasher turns a plaintext secret into a crypt string.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// TemplateRenderer resolves and executes templates.
type TemplateRenderer interface {
	Render(ctx context.Context, name string, data map[string]any) (string, error)
	Execute(name, body string, data map[string]any) (string, error)
}

// Pipeline assembles the render namespace for a machine and executes a template against it.
type Pipeline struct {
	config    ConfigReader
	issuer    CredentialIssuer
	hasher    PasswordHasher
	templates TemplateRenderer
	log       zerolog.Logger
}

// NewPipeline wires the collaborators a render needs. log receives render failures.
func NewPipeline(config ConfigReader, issuer CredentialIssuer, hasher PasswordHasher, templates TemplateRenderer, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		config:    config,
		issuer:    issuer,
		hasher:    hasher,
		templates: templates,
		log:       log,
	}
}

// Render executes the named template for id. vars are caller supplied values
// and have the lowest precedence.
func (p *Pipeline) Render(ctx context.Context, id Identity, templateName string, vars map[string]string) (string, error) {
	ns, id, err := p.Namespace(ctx, id, vars)
	if err != nil {
		return "", p.observe(err, id, templateName)
	}
	if templateName == "" {
		templateName = render.DefaultName
	}
	out, err := p.templates.Render(ctx, templateName, ns)
	return out, p.observe(err, id, templateName)
}

// RenderString executes an ad-hoc template body for id.
func (p *Pipeline) RenderString(ctx context.Context, id Identity, body string, vars map[string]string) (string, error) {
	ns, id, err := p.Namespace(ctx, id, vars)
	if err != nil {
		return "", p.observe(err, id, "inline")
	}
	out, err := p.templates.Execute("inline", body, ns)
	return out, p.observe(err, id, "inline")
}

// Namespace builds the render data for id. Layers are applied in a fixed
// order and later layers overwrite earlier keys: caller vars, identity,
// target OS, operator extra values, hashed credentials. The identity keys are
// never overwritten by a later layer.
func (p *Pipeline) Namespace(ctx context.Context, id Identity, vars map[string]string) (map[string]any, Identity, error) {
	id, err := id.Normalize()
	if err != nil {
		return nil, id, err
	}

	ns := make(map[string]any, len(vars)+8)
	for k, v := range vars {
		ns[k] = v
	}

	ns[KeyMAC] = id.MAC
	ns[KeyUUID] = id.UUID
	ns[KeySerial] = id.Serial

	cfg, err := p.config.Read(ctx)
	if err != nil {
		return nil, id, fmt.Errorf("read config: %w", err)
	}
	ns[KeyTargetOS] = string(cfg.TargetOS)

	for k, v := range cfg.ExtraValues {
		switch k {
		case KeyMAC, KeyUUID, KeySerial:
			continue
		}
		ns[k] = v
	}

	if cfg.IssueCredentials {
		secrets, err := p.issuer.GetOrCreate(ctx, id)
		if err != nil {
			return nil, id, fmt.Errorf("issue credentials: %w", err)
		}
		for _, item := range []struct {
			key    string
			secret string
		}{
			{KeyRootPassword, secrets.Root},
			{KeyUserPassword, secrets.User},
			{KeyLUKSPassword, secrets.Disk},
		} {
			hashed, err := p.hasher.Hash(item.secret)
			if err != nil {
				return nil, id, fmt.Errorf("hash %s: %w", item.key, err)
			}
			ns[item.key] = hashed
		}
	}

	return ns, id, nil
}

func (p *Pipeline) observe(err error, id Identity, templateName string) error {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidIdentity), errors.Is(err, render.ErrInvalidTemplateName):
		outcome = "invalid"
	case errors.Is(err, render.ErrTemplateNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
		p.log.Error().Err(err).
			Str("template", templateName).
			Str("mac", id.MAC).Str("uuid", id.UUID).Str("serial", id.Serial).
			Msg("render failed")
	}
	metricRenders.WithLabelValues(outcome).Inc()
	return err
}
