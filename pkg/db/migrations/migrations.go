// Package migrations holds the schema history as goose Go migrations. Each
// migration opens gorm on the migration transaction so the same model
// definitions serve SQLite and Postgres.
package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Dialector wraps a migration transaction in the gorm dialect of the target
// database.
type Dialector func(tx *sql.Tx) gorm.Dialector

type step func(ctx context.Context, orm *gorm.DB) error

// All returns every migration in version order.
func All(open Dialector) []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(1, txFunc(open, upMachineCredentials), txFunc(open, downMachineCredentials)),
		goose.NewGoMigration(2, txFunc(open, upGlobalConfig), txFunc(open, downGlobalConfig)),
	}
}

func txFunc(open Dialector, fn step) *goose.GoFunc {
	return &goose.GoFunc{
		RunTx: func(ctx context.Context, tx *sql.Tx) error {
			orm, err := gorm.Open(open(tx), &gorm.Config{
				NamingStrategy: schema.NamingStrategy{SingularTable: false},
				Logger:         logger.Default.LogMode(logger.Silent),
			})
			if err != nil {
				return err
			}
			return fn(ctx, orm.WithContext(ctx))
		},
	}
}
