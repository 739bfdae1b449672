package provisioner

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// ExportHeader is the first row of every credential export.
var ExportHeader = []string{"mac", "uuid", "serial", "root_password", "user_password", "luks_password", "created_at"}

// ExportFilename is suggested to HTTP clients downloading the export.
const ExportFilename = "machine_credentials.csv"

// RecordLister lists every issued credential, oldest first.
type RecordLister interface {
	ListAll(ctx context.Context) ([]CredentialRecord, error)
}

// Exporter writes the plaintext credential ledger as CSV.
type Exporter struct {
	records RecordLister
}

// NewExporter returns an Exporter reading every record from records.
func NewExporter(records RecordLister) *Exporter {
	return &Exporter{records: records}
}

// WriteCSV writes the header and one row per record, returning the number of records written.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := e.records.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		row := []string{
			rec.MAC,
			rec.UUID,
			rec.Serial,
			rec.Root,
			rec.User,
			rec.Disk,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(records), fmt.Errorf("flush csv: %w", err)
	}
	return len(records), nil
}
