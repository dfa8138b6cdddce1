package auditinfra

import (
	"bytes"
	"context"

	"github.com/alebhayan/King-Laminaat/pkg/audit"
	"github.com/alebhayan/King-Laminaat/pkg/fsx"
)

// ArchiveSink writes each batch as one JSON Lines object under
// prefix/yyyy/mm/dd/<first id>.jsonl.
type ArchiveSink struct {
	files  fsx.FileWriter
	prefix string
}

func NewArchiveSink(files fsx.FileWriter, prefix string) *ArchiveSink {
	return &ArchiveSink{files: files, prefix: prefix}
}

func (s *ArchiveSink) WriteBatch(ctx context.Context, records []audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r.Data)
		buf.WriteByte('\n')
	}
	return s.files.WriteFile(ctx, s.key(records[0].Envelope), buf.Bytes())
}

func (s *ArchiveSink) key(first audit.Envelope) string {
	at := first.ReceivedAt
	if at.IsZero() {
		at = first.OccurredAt
	}
	return fsx.Join(s.prefix, at.UTC().Format("2006/01/02"), first.ID+".jsonl")
}
