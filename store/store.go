package store

import (
	"context"

	"winnow/editlog"
)

// EditLogFileName is the fixed name of the per-task edit log record. The
// file store places it inside each task's directory; the Redis store does
// not use it and keys records as "<taskId>:context_edits".
const EditLogFileName = "context_edits.json"

// Store persists per-task edit logs. Load must return an empty log (not
// nil) when no record exists or the stored record cannot be decoded; only
// genuine I/O failures and an empty task id surface as errors. Save is a
// best-effort durable
// write; callers treat failures as non-fatal.
type Store interface {
	Load(ctx context.Context, taskId string) (*editlog.EditLog, error)
	Save(ctx context.Context, taskId string, log *editlog.EditLog) error
}
