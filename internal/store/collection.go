package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	Records       json.RawMessage `json:"records,omitempty"`
	Record        json.RawMessage `json:"record,omitempty"`
}

// Collection is the persisted list of one record type.
//
// Reads go memory cache, then remote, then local. Saves push a per-record diff
// to the remote, always rewrite the local copy and update the cache once at
// least one backend holds the data. Saves are serialized per collection.
type Collection[T Record] struct {
	name   string
	key    string
	remote RemoteStore
	local  LocalStore
	policy CachePolicy
	locker Locker
	now    func() time.Time

	writeMu sync.Mutex

	mu       sync.RWMutex
	cached   []T
	loadedAt time.Time
	valid    bool
	// gen advances on every committed save and every Invalidate. A load that
	// started under an older generation is not cached.
	gen uint64
	// known maps remote ids to payload digests as of the last successful
	// remote read or write. Nil when the remote state is unknown.
	known map[string]string
}

// NewCollection builds a collection stored remotely under name and locally
// under key. A nil remote runs local-only.
func NewCollection[T Record](name, key string, opts Options) *Collection[T] {
	opts = opts.withDefaults()
	return &Collection[T]{
		name:   name,
		key:    key,
		remote: opts.Remote,
		local:  opts.Local,
		policy: opts.Policy,
		locker: opts.Locker,
		now:    opts.Now,
	}
}

func (c *Collection[T]) Name() string { return c.name }

// Get returns a copy of the current records. Backend failures fall through to
// the next source and finally to an empty list; only a cancelled context is
// returned as an error.
func (c *Collection[T]) Get(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.valid && c.policy.Fresh(c.loadedAt, c.now()) {
		out := append([]T(nil), c.cached...)
		c.mu.RUnlock()
		return out, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	records, known := c.load(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// A save or invalidation landed while loading; what was read may
		// predate it.
		if c.valid {
			return append([]T(nil), c.cached...), nil
		}
		return append([]T(nil), records...), nil
	}
	c.cached = records
	c.loadedAt = c.now()
	c.valid = true
	c.known = known

	return append([]T(nil), records...), nil
}

func (c *Collection[T]) load(ctx context.Context) ([]T, map[string]string) {
	var known map[string]string
	if c.remote != nil {
		docs, err := c.remote.List(ctx, c.name)
		if err != nil {
			log.Warn().Err(err).Str("collection", c.name).Msg("remote read failed, using local copy")
		} else {
			records, digests, err := decodeDocuments[T](docs)
			if err != nil {
				log.Warn().Err(err).Str("collection", c.name).Msg("remote documents unreadable, using local copy")
			} else {
				known = digests
				if len(records) > 0 {
					return records, known
				}
			}
		}
	}

	data, found, err := c.local.Read(c.key)
	if err != nil {
		log.Warn().Err(err).Str("key", c.key).Msg("local read failed")
		return []T{}, known
	}
	if !found {
		return []T{}, known
	}
	records, err := decodeLocalList[T](data)
	if err != nil {
		log.Warn().Err(err).Str("key", c.key).Msg("local copy unreadable")
		return []T{}, known
	}
	return records, known
}

// Save replaces the collection with records. The error is non-nil only when
// nothing was persisted or the input could not be encoded.
func (c *Collection[T]) Save(ctx context.Context, records []T) (WriteResult, error) {
	docs, err := encodeDocuments(records, c.now())
	if err != nil {
		return WriteResult{}, err
	}

	release, err := c.acquire(ctx)
	if err != nil {
		return WriteResult{}, err
	}
	defer release()

	return c.saveLocked(ctx, records, docs)
}

// Update runs a read-modify-write under the collection's writer lock. With a
// remote configured the records passed to fn are reloaded first so writers in
// other processes are observed. An error from fn aborts without writing.
func (c *Collection[T]) Update(ctx context.Context, fn func(records []T) ([]T, error)) (WriteResult, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return WriteResult{}, err
	}
	defer release()

	current, err := c.reload(ctx)
	if err != nil {
		return WriteResult{}, err
	}
	next, err := fn(current)
	if err != nil {
		return WriteResult{}, err
	}
	docs, err := encodeDocuments(next, c.now())
	if err != nil {
		return WriteResult{}, err
	}
	return c.saveLocked(ctx, next, docs)
}

// reload reads the backends under the writer lock, bypassing the cache. With
// no remote the cache is authoritative, since every local write passes
// through this process.
func (c *Collection[T]) reload(ctx context.Context) ([]T, error) {
	if c.remote == nil {
		return c.Get(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, known := c.load(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cached = records
	c.loadedAt = c.now()
	c.valid = true
	c.known = known
	c.gen++
	c.mu.Unlock()
	return append([]T(nil), records...), nil
}

func (c *Collection[T]) acquire(ctx context.Context) (func(), error) {
	c.writeMu.Lock()
	release, err := c.locker.Acquire(ctx, lockKey(c.name))
	if err != nil {
		c.writeMu.Unlock()
		return nil, fmt.Errorf("lock %s: %w", c.name, err)
	}
	return func() {
		release()
		c.writeMu.Unlock()
	}, nil
}

func (c *Collection[T]) saveLocked(ctx context.Context, records []T, docs []Document) (WriteResult, error) {
	snapshot := append([]T(nil), records...)
	c.mu.RLock()
	known := c.known
	c.mu.RUnlock()

	remoteErr := c.writeRemote(ctx, docs, known)
	localErr := c.writeLocal(snapshot)

	res, err := resultOf(remoteErr, localErr)
	logWriteResult(res, c.name, c.key)

	c.mu.Lock()
	if res.Saved() {
		c.cached = snapshot
		c.loadedAt = c.now()
		c.valid = true
	} else {
		c.cached = nil
		c.valid = false
	}
	c.gen++
	c.mu.Unlock()
	return res, err
}

func (c *Collection[T]) writeRemote(ctx context.Context, docs []Document, known map[string]string) error {
	if c.remote == nil {
		return ErrNoRemote
	}

	if known == nil {
		existing, err := c.remote.List(ctx, c.name)
		if err != nil {
			c.forget()
			return fmt.Errorf("list %s: %w", c.name, err)
		}
		known = knownDigests[T](existing)
	}

	upserts, deletes, next := diff(docs, known)
	if len(upserts) > 0 || len(deletes) > 0 {
		if err := c.remote.Apply(ctx, c.name, upserts, deletes); err != nil {
			c.forget()
			return fmt.Errorf("apply %s: %w", c.name, err)
		}
	}

	c.mu.Lock()
	c.known = next
	c.mu.Unlock()
	return nil
}

func (c *Collection[T]) writeLocal(records []T) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Records: raw})
	if err != nil {
		return err
	}
	return c.local.Write(c.key, data)
}

func (c *Collection[T]) forget() {
	c.mu.Lock()
	c.known = nil
	c.mu.Unlock()
}

// Invalidate drops the cached snapshot so the next Get reloads.
func (c *Collection[T]) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.cached = nil
	c.gen++
	c.mu.Unlock()
}

// diff compares the desired documents with the known remote digests.
func diff(docs []Document, known map[string]string) (upserts []Document, deletes []string, next map[string]string) {
	next = make(map[string]string, len(docs))
	for _, d := range docs {
		sum := digest(d.Data)
		next[d.ID] = sum
		if prev, ok := known[d.ID]; !ok || prev != sum {
			upserts = append(upserts, d)
		}
	}
	for id := range known {
		if _, ok := next[id]; !ok {
			deletes = append(deletes, id)
		}
	}
	return upserts, deletes, next
}

func encodeDocuments[T Record](records []T, now time.Time) ([]Document, error) {
	docs := make([]Document, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		id := r.RecordID()
		if id == "" {
			return nil, fmt.Errorf("%w: index %d", ErrMissingID, i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}

		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", id, err)
		}
		docs = append(docs, Document{ID: id, Data: data, SchemaVersion: SchemaVersion, UpdatedAt: now})
	}
	return docs, nil
}

func decodeDocuments[T Record](docs []Document) ([]T, map[string]string, error) {
	records := make([]T, 0, len(docs))
	digests := make(map[string]string, len(docs))
	for _, d := range docs {
		var r T
		if err := json.Unmarshal(d.Data, &r); err != nil {
			return nil, nil, fmt.Errorf("decode document %s: %w", d.ID, err)
		}
		canon, err := json.Marshal(r)
		if err != nil {
			return nil, nil, fmt.Errorf("encode document %s: %w", d.ID, err)
		}
		records = append(records, r)
		digests[d.ID] = digest(canon)
	}
	return records, digests, nil
}

// knownDigests digests remote documents in the same canonical form Save
// produces. Unreadable documents get an empty digest so they are rewritten.
func knownDigests[T Record](docs []Document) map[string]string {
	out := make(map[string]string, len(docs))
	for _, d := range docs {
		var r T
		if err := json.Unmarshal(d.Data, &r); err != nil {
			out[d.ID] = ""
			continue
		}
		canon, err := json.Marshal(r)
		if err != nil {
			out[d.ID] = ""
			continue
		}
		out[d.ID] = digest(canon)
	}
	return out
}

// decodeLocalList accepts the versioned envelope and legacy bare arrays.
func decodeLocalList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []T{}, nil
	}
	raw := data
	if data[0] != '[' {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		if env.SchemaVersion > SchemaVersion {
			return nil, fmt.Errorf("schema version %d is newer than supported %d", env.SchemaVersion, SchemaVersion)
		}
		raw = env.Records
		if len(raw) == 0 {
			return []T{}, nil
		}
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
