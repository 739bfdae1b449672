// Package provisioner issues per-machine credentials and renders installer
// configuration for them.
package provisioner

import (
	"fmt"
	"strings"
	"time"
)

// Identity names a machine by the triple it reports when requesting its
// installer configuration.
type Identity struct {
	MAC    string `json:"mac"`
	UUID   string `json:"uuid"`
	Serial string `json:"serial"`
}

// Normalize rejects empty fields. Values are opaque lookup keys and are kept
// exactly as the caller sent them.
func (id Identity) Normalize() (Identity, error) {
	out := id
	var missing []string
	if out.MAC == "" {
		missing = append(missing, "mac")
	}
	if out.UUID == "" {
		missing = append(missing, "uuid")
	}
	if out.Serial == "" {
		missing = append(missing, "serial")
	}
	if len(missing) > 0 {
		return Identity{}, fmt.Errorf("%w: missing %s", ErrInvalidIdentity, strings.Join(missing, ", "))
	}
	return out, nil
}

// key is unambiguous for any field contents.
func (id Identity) key() string {
	return fmt.Sprintf("%d:%s%d:%s%s", len(id.MAC), id.MAC, len(id.UUID), id.UUID, id.Serial)
}

func (id Identity) String() string {
	return fmt.Sprintf("mac=%s uuid=%s serial=%s", id.MAC, id.UUID, id.Serial)
}

// Secrets are the plaintext credentials issued to one machine.
type Secrets struct {
	Root string
	User string
	Disk string
}

// CredentialRecord is a persisted issuance.
type CredentialRecord struct {
	Identity
	Secrets
	CreatedAt time.Time
}

// TargetOS is the operating system family the installer configuration targets.
type TargetOS string

const (
	TargetRocky9     TargetOS = "Rocky9"
	TargetUbuntu2504 TargetOS = "Ubuntu25.04"
)

// DefaultTargetOS is used until an operator configures otherwise.
const DefaultTargetOS = TargetRocky9

// TargetOSes lists every supported target in display order.
func TargetOSes() []TargetOS {
	return []TargetOS{TargetRocky9, TargetUbuntu2504}
}

// Valid reports whether t is a supported target.
func (t TargetOS) Valid() bool {
	for _, known := range TargetOSes() {
		if t == known {
			return true
		}
	}
	return false
}

// GlobalConfig is the operator controlled configuration shared by every render.
type GlobalConfig struct {
	TargetOS         TargetOS       `json:"target_os" yaml:"target_os"`
	IssueCredentials bool           `json:"issue_credentials" yaml:"issue_credentials"`
	ExtraValues      map[string]any `json:"extra_values" yaml:"extra_values"`
}

// DefaultConfig is what Read returns before any configuration was written.
func DefaultConfig() GlobalConfig {
	return GlobalConfig{
		TargetOS:         DefaultTargetOS,
		IssueCredentials: true,
		ExtraValues:      map[string]any{},
	}
}

// Validate checks the target OS and normalises a nil ExtraValues map.
func (c GlobalConfig) Validate() (GlobalConfig, error) {
	if !c.TargetOS.Valid() {
		return GlobalConfig{}, fmt.Errorf("%w: %q", ErrInvalidTargetOS, c.TargetOS)
	}
	if c.ExtraValues == nil {
		c.ExtraValues = map[string]any{}
	}
	return c, nil
}
