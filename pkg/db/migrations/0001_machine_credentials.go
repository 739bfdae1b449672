package migrations

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type machineCredential struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	MAC        string    `gorm:"column:mac;type:text;not null;uniqueIndex:idx_machine_credentials_identity,priority:1"`
	UUID       string    `gorm:"column:uuid;type:text;not null;uniqueIndex:idx_machine_credentials_identity,priority:2"`
	Serial     string    `gorm:"column:serial;type:text;not null;uniqueIndex:idx_machine_credentials_identity,priority:3"`
	RootSecret string    `gorm:"column:root_secret;type:varchar(255);not null"`
	UserSecret string    `gorm:"column:user_secret;type:varchar(255);not null"`
	DiskSecret string    `gorm:"column:disk_secret;type:varchar(255);not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (machineCredential) TableName() string { return "machine_credentials" }

func upMachineCredentials(_ context.Context, orm *gorm.DB) error {
	return orm.AutoMigrate(&machineCredential{})
}

func downMachineCredentials(_ context.Context, orm *gorm.DB) error {
	return orm.Migrator().DropTable(&machineCredential{})
}
