package migrations

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type globalConfig struct {
	ID               int64             `gorm:"primaryKey;autoIncrement:false"`
	TargetOS         string            `gorm:"column:target_os;type:varchar(32);not null"`
	IssueCredentials bool              `gorm:"column:issue_credentials;not null"`
	ExtraValues      datatypes.JSONMap `gorm:"column:extra_values"`
	UpdatedAt        time.Time         `gorm:"not null"`
}

func (globalConfig) TableName() string { return "global_config" }

func upGlobalConfig(_ context.Context, orm *gorm.DB) error {
	return orm.AutoMigrate(&globalConfig{})
}

func downGlobalConfig(_ context.Context, orm *gorm.DB) error {
	return orm.Migrator().DropTable(&globalConfig{})
}
