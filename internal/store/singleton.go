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

// Singleton persists one settings object as a single document.
type Singleton[T any] struct {
	name   string
	id     string
	key    string
	def    func() T
	remote RemoteStore
	local  LocalStore
	policy CachePolicy
	locker Locker
	now    func() time.Time

	writeMu sync.Mutex

	mu       sync.RWMutex
	cached   T
	loadedAt time.Time
	valid    bool
	gen      uint64
}

// NewSingleton stores the object as document id in collection name. def
// supplies the value returned when nothing has been saved.
func NewSingleton[T any](name, id, key string, def func() T, opts Options) *Singleton[T] {
	opts = opts.withDefaults()
	return &Singleton[T]{
		name:   name,
		id:     id,
		key:    key,
		def:    def,
		remote: opts.Remote,
		local:  opts.Local,
		policy: opts.Policy,
		locker: opts.Locker,
		now:    opts.Now,
	}
}

func (s *Singleton[T]) Get(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	s.mu.RLock()
	if s.valid && s.policy.Fresh(s.loadedAt, s.now()) {
		v := s.cached
		s.mu.RUnlock()
		return v, nil
	}
	gen := s.gen
	s.mu.RUnlock()

	v := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		if s.valid {
			return s.cached, nil
		}
		return v, nil
	}
	s.cached = v
	s.loadedAt = s.now()
	s.valid = true
	return v, nil
}

func (s *Singleton[T]) load(ctx context.Context) T {
	if s.remote != nil {
		docs, err := s.remote.List(ctx, s.name)
		if err != nil {
			log.Warn().Err(err).Str("collection", s.name).Msg("remote read failed, using local copy")
		}
		for _, d := range docs {
			if d.ID != s.id {
				continue
			}
			var v T
			if err := json.Unmarshal(d.Data, &v); err != nil {
				log.Warn().Err(err).Str("collection", s.name).Msg("remote document unreadable, using local copy")
				break
			}
			return v
		}
	}

	data, found, err := s.local.Read(s.key)
	if err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("local read failed")
	}
	if found {
		v, err := decodeLocalObject[T](data)
		if err == nil {
			return v
		}
		log.Warn().Err(err).Str("key", s.key).Msg("local copy unreadable")
	}
	return s.def()
}

func (s *Singleton[T]) Save(ctx context.Context, v T) (WriteResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return WriteResult{}, fmt.Errorf("encode %s: %w", s.id, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	release, err := s.locker.Acquire(ctx, lockKey(s.name))
	if err != nil {
		return WriteResult{}, fmt.Errorf("lock %s: %w", s.name, err)
	}
	defer release()

	var remoteErr error
	if s.remote == nil {
		remoteErr = ErrNoRemote
	} else {
		doc := Document{ID: s.id, Data: raw, SchemaVersion: SchemaVersion, UpdatedAt: s.now()}
		if err := s.remote.Apply(ctx, s.name, []Document{doc}, nil); err != nil {
			remoteErr = fmt.Errorf("apply %s: %w", s.name, err)
		}
	}

	var localErr error
	data, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Record: raw})
	if err == nil {
		err = s.local.Write(s.key, data)
	}
	if err != nil {
		localErr = err
	}

	res, err := resultOf(remoteErr, localErr)
	logWriteResult(res, s.name, s.key)

	s.mu.Lock()
	if res.Saved() {
		s.cached = v
		s.loadedAt = s.now()
	}
	s.valid = res.Saved()
	s.gen++
	s.mu.Unlock()
	return res, err
}

func (s *Singleton[T]) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.gen++
	s.mu.Unlock()
}

// decodeLocalObject accepts the versioned envelope and a legacy bare object.
func decodeLocalObject[T any](data []byte) (T, error) {
	var v T
	data = bytes.TrimSpace(data)
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.SchemaVersion > 0 && len(env.Record) > 0 {
		data = env.Record
	}
	err := json.Unmarshal(data, &v)
	return v, err
}
