package provisioner

import "time"

type credentialModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	MAC        string    `gorm:"column:mac"`
	UUID       string    `gorm:"column:uuid"`
	Serial     string    `gorm:"column:serial"`
	RootSecret string    `gorm:"column:root_secret"`
	UserSecret string    `gorm:"column:user_secret"`
	DiskSecret string    `gorm:"column:disk_secret"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (credentialModel) TableName() string { return "machine_credentials" }

func (m credentialModel) toRecord() CredentialRecord {
	return CredentialRecord{
		Identity:  Identity{MAC: m.MAC, UUID: m.UUID, Serial: m.Serial},
		Secrets:   Secrets{Root: m.RootSecret, User: m.UserSecret, Disk: m.DiskSecret},
		CreatedAt: m.CreatedAt.UTC(),
	}
}
