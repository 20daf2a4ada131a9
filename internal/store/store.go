// Package store persists record collections to a remote document store with a
// local copy as fallback, keeping an in-process cache in front of both.
package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// SchemaVersion is written alongside every persisted collection.
const SchemaVersion = 1

var (
	// ErrNoRemote is reported as the remote error when no remote store is configured.
	ErrNoRemote = errors.New("remote store not configured")

	// ErrNotSaved is returned when neither the remote nor the local write succeeded.
	ErrNotSaved = errors.New("records not saved")

	ErrMissingID   = errors.New("record has no id")
	ErrDuplicateID = errors.New("duplicate record id")
)

// Record is anything stored in a Collection.
type Record interface {
	RecordID() string
}

// Document is one record as held by the remote store.
type Document struct {
	ID            string          `db:"id" json:"id"`
	Data          json.RawMessage `db:"data" json:"data"`
	SchemaVersion int             `db:"schema_version" json:"schemaVersion"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// RemoteStore is a document store partitioned by collection name.
type RemoteStore interface {
	List(ctx context.Context, collection string) ([]Document, error)
	// Apply upserts docs and deletes ids in one unit of work.
	Apply(ctx context.Context, collection string, upserts []Document, deletes []string) error
}

// LocalStore is a key/value blob store on the local machine.
type LocalStore interface {
	Read(key string) (data []byte, found bool, err error)
	Write(key string, data []byte) error
}

// Locker serializes writers across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type WriteOutcome string

const (
	OutcomeRemoteOK            WriteOutcome = "remote-ok"
	OutcomeRemoteFailedLocalOK WriteOutcome = "remote-failed-local-ok"
	OutcomeBothFailed          WriteOutcome = "both-failed"
)

// WriteResult tells the caller where a save landed.
type WriteResult struct {
	Outcome   WriteOutcome `json:"outcome"`
	RemoteErr error        `json:"-"`
	LocalErr  error        `json:"-"`
}

func (r WriteResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Outcome     WriteOutcome `json:"outcome"`
		RemoteError string       `json:"remoteError,omitempty"`
		LocalError  string       `json:"localError,omitempty"`
	}{Outcome: r.Outcome}
	if r.RemoteErr != nil {
		out.RemoteError = r.RemoteErr.Error()
	}
	if r.LocalErr != nil {
		out.LocalError = r.LocalErr.Error()
	}
	return json.Marshal(out)
}

// Saved reports whether at least one backend holds the data.
func (r WriteResult) Saved() bool {
	return r.Outcome == OutcomeRemoteOK || r.Outcome == OutcomeRemoteFailedLocalOK
}

func resultOf(remoteErr, localErr error) (WriteResult, error) {
	res := WriteResult{RemoteErr: remoteErr, LocalErr: localErr}
	switch {
	case remoteErr == nil:
		res.Outcome = OutcomeRemoteOK
	case localErr == nil:
		res.Outcome = OutcomeRemoteFailedLocalOK
	default:
		res.Outcome = OutcomeBothFailed
		return res, fmt.Errorf("%w: remote: %v; local: %v", ErrNotSaved, remoteErr, localErr)
	}
	return res, nil
}

func logWriteResult(res WriteResult, collection, key string) {
	switch res.Outcome {
	case OutcomeRemoteOK:
		if res.LocalErr != nil {
			log.Warn().Err(res.LocalErr).Str("key", key).Msg("local copy not written")
		}
	case OutcomeRemoteFailedLocalOK:
		if !errors.Is(res.RemoteErr, ErrNoRemote) {
			log.Warn().Err(res.RemoteErr).Str("collection", collection).Msg("remote write failed, saved locally only")
		}
	case OutcomeBothFailed:
		log.Error().Err(res.RemoteErr).AnErr("local", res.LocalErr).Str("collection", collection).Msg("records not saved")
	}
}

func digest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// lockKey is the distributed lock name guarding writes to a collection.
func lockKey(collection string) string {
	return "lock:store:" + collection
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }
