package provisioner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"provisionr/pkg/bus"
	"provisionr/pkg/db"
)

// SecretGenerator produces one plaintext secret per call.
type SecretGenerator interface {
	Generate() (string, error)
}

// Ledger stores the credentials issued to each machine identity. Issuance is
// idempotent: the first request for an identity generates secrets and every
// later request returns the same ones.
type Ledger struct {
	orm   *gorm.DB
	gen   SecretGenerator
	pub   Publisher
	log   zerolog.Logger
	now   func() time.Time
	group singleflight.Group
}

// LedgerOption customises a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerPublisher announces new issuances on pub.
func WithLedgerPublisher(pub Publisher) LedgerOption {
	return func(l *Ledger) { l.pub = pub }
}

// WithLedgerLogger sets the logger used for non-fatal problems.
func WithLedgerLogger(log zerolog.Logger) LedgerOption {
	return func(l *Ledger) { l.log = log }
}

// WithLedgerClock overrides the clock used for created_at.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger returns a Ledger persisting through orm and drawing secrets from gen.
func NewLedger(orm *gorm.DB, gen SecretGenerator, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		orm: orm,
		gen: gen,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetOrCreate returns the secrets stored for id, issuing them first if the
// identity has never been seen. Concurrent callers for the same identity, in
// this process or another sharing the database, all observe one record.
func (l *Ledger) GetOrCreate(ctx context.Context, id Identity) (Secrets, error) {
	id, err := id.Normalize()
	if err != nil {
		return Secrets{}, err
	}

	// The shared call outlives any single caller so one disconnect does not
	// fail everyone waiting on the same identity.
	ch := l.group.DoChan(id.key(), func() (any, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), db.DefaultTimeout)
		defer cancel()
		return l.getOrCreate(workCtx, id)
	})

	select {
	case <-ctx.Done():
		return Secrets{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Secrets{}, res.Err
		}
		return res.Val.(Secrets), nil
	}
}

func (l *Ledger) getOrCreate(ctx context.Context, id Identity) (Secrets, error) {
	existing, found, err := l.find(ctx, id)
	if err != nil {
		return Secrets{}, err
	}
	if found {
		metricCredentialsReused.Inc()
		return existing.Secrets, nil
	}

	secrets, err := l.generate()
	if err != nil {
		return Secrets{}, err
	}

	row := credentialModel{
		MAC:        id.MAC,
		UUID:       id.UUID,
		Serial:     id.Serial,
		RootSecret: secrets.Root,
		UserSecret: secrets.User,
		DiskSecret: secrets.Disk,
		CreatedAt:  l.now().UTC(),
	}
	res := l.orm.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mac"}, {Name: "uuid"}, {Name: "serial"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil && !db.IsUniqueViolation(res.Error) {
		return Secrets{}, fmt.Errorf("insert credentials: %w", res.Error)
	}

	if res.Error != nil || res.RowsAffected == 0 {
		// Another writer inserted first; its record is authoritative.
		winner, found, err := l.find(ctx, id)
		if err != nil {
			return Secrets{}, err
		}
		if !found {
			return Secrets{}, fmt.Errorf("credentials for %s missing after insert conflict", id)
		}
		metricCredentialsReused.Inc()
		return winner.Secrets, nil
	}

	metricCredentialsIssued.Inc()
	l.log.Info().Str("mac", id.MAC).Str("uuid", id.UUID).Str("serial", id.Serial).Msg("issued machine credentials")
	publish(ctx, l.pub, l.log, bus.SubjectCredentialsIssued, map[string]any{
		"mac":        id.MAC,
		"uuid":       id.UUID,
		"serial":     id.Serial,
		"created_at": row.CreatedAt,
	})
	return secrets, nil
}

func (l *Ledger) generate() (Secrets, error) {
	var out [3]string
	for i := range out {
		s, err := l.gen.Generate()
		if err != nil {
			return Secrets{}, fmt.Errorf("generate secret: %w", err)
		}
		out[i] = s
	}
	return Secrets{Root: out[0], User: out[1], Disk: out[2]}, nil
}

func (l *Ledger) find(ctx context.Context, id Identity) (CredentialRecord, bool, error) {
	var row credentialModel
	err := l.orm.WithContext(ctx).
		Where("mac = ? AND uuid = ? AND serial = ?", id.MAC, id.UUID, id.Serial).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CredentialRecord{}, false, nil
	}
	if err != nil {
		return CredentialRecord{}, false, fmt.Errorf("lookup credentials: %w", err)
	}
	return row.toRecord(), true, nil
}

// ListAll returns every record, oldest first.
func (l *Ledger) ListAll(ctx context.Context) ([]CredentialRecord, error) {
	var rows []credentialModel
	if err := l.orm.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	out := make([]CredentialRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}
