package provisioner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"provisionr/pkg/bus"
)

// ConfigStore persists the single GlobalConfig row.
type ConfigStore struct {
	orm *gorm.DB
	pub Publisher
	log zerolog.Logger
	now func() time.Time
}

// ConfigStoreOption customises a ConfigStore.
type ConfigStoreOption func(*ConfigStore)

// WithConfigPublisher announces configuration changes on pub.
func WithConfigPublisher(pub Publisher) ConfigStoreOption {
	return func(s *ConfigStore) { s.pub = pub }
}

// WithConfigLogger sets the logger used for non-fatal problems.
func WithConfigLogger(log zerolog.Logger) ConfigStoreOption {
	return func(s *ConfigStore) { s.log = log }
}

// NewConfigStore returns a ConfigStore backed by the global_config table in orm.
func NewConfigStore(orm *gorm.DB, opts ...ConfigStoreOption) *ConfigStore {
	s := &ConfigStore{orm: orm, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the stored configuration, materialising the default on first use.
func (s *ConfigStore) Read(ctx context.Context) (GlobalConfig, error) {
	row, found, err := s.load(ctx)
	if err != nil {
		return GlobalConfig{}, err
	}
	if found {
		return row.toAPI(), nil
	}

	def := configModelFrom(DefaultConfig(), s.now().UTC())
	err = s.orm.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&def).Error
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("insert default config: %w", err)
	}

	row, found, err = s.load(ctx)
	if err != nil {
		return GlobalConfig{}, err
	}
	if !found {
		return GlobalConfig{}, errors.New("config row missing after insert")
	}
	return row.toAPI(), nil
}

// Write replaces the stored configuration and returns what was persisted.
func (s *ConfigStore) Write(ctx context.Context, cfg GlobalConfig) (GlobalConfig, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return GlobalConfig{}, err
	}

	row := configModelFrom(cfg, s.now().UTC())
	err = s.orm.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"target_os", "issue_credentials", "extra_values", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("save config: %w", err)
	}

	stored, found, err := s.load(ctx)
	if err != nil {
		return GlobalConfig{}, err
	}
	if !found {
		return GlobalConfig{}, errors.New("config row missing after write")
	}

	out := stored.toAPI()
	s.log.Info().Str("target_os", string(out.TargetOS)).Bool("issue_credentials", out.IssueCredentials).Msg("configuration updated")
	publish(ctx, s.pub, s.log, bus.SubjectConfigUpdated, map[string]any{
		"target_os":         out.TargetOS,
		"issue_credentials": out.IssueCredentials,
		"extra_keys":        len(out.ExtraValues),
	})
	return out, nil
}

func (s *ConfigStore) load(ctx context.Context) (configModel, bool, error) {
	var row configModel
	err := s.orm.WithContext(ctx).Where("id = ?", configRowID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return configModel{}, false, nil
	}
	if err != nil {
		return configModel{}, false, fmt.Errorf("load config: %w", err)
	}
	return row, true, nil
}
