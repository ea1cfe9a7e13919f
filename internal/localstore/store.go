// Package localstore is a small key/value store kept in a SQLite file.
//
// It plays the role browser local storage plays for a web client: values
// survive restarts, are shared by every process of the same user, and
// changes made by one process are announced to watchers in the others.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	// modernc.org/sqlite driver name is "sqlite".
	_ "modernc.org/sqlite"
)

// DefaultPollInterval is used when Options.PollInterval is zero.
const DefaultPollInterval = 500 * time.Millisecond

// Change describes a value transition observed by a watcher.
// An empty NewValue means the key was removed.
type Change struct {
	Key      string
	OldValue string
	NewValue string
}

// Options configures Open.
type Options struct {
	PollInterval time.Duration
	Logger       log.Logger
}

// Store is a process-safe handle on the storage file.
type Store struct {
	db       *sql.DB
	interval time.Duration
	logger   log.Logger

	mu       sync.Mutex
	watchers map[int]*watcher
	nextID   int
	polling  bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type watcher struct {
	key  string
	last string
	fn   func(Change)
}

// Open opens (creating if needed) the storage file at path.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}

	// Pragmas in the DSN apply to every pooled connection.
	// WAL lets several processes read while one writes; busy_timeout avoids
	// spurious "database is locked" errors.
	dsn := path + "?" + url.Values{
		"_pragma": {"busy_timeout(5000)", "journal_mode(WAL)", "synchronous(NORMAL)"},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	return &Store{
		db:       db,
		interval: opts.PollInterval,
		logger:   opts.Logger,
		watchers: make(map[int]*watcher),
		ctx:      sctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	)`)
	return err
}

// Get returns the value for key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	return get(ctx, s.db, key)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q querier, key string) (string, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(k, v) VALUES(?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		key, value)
	return err
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key)
	return err
}

// Watch calls fn whenever the value of key differs from the last value the
// watcher saw. Changes from this process and from other processes are
// both reported; fn runs on the polling goroutine.
// The returned func stops the watch.
func (s *Store) Watch(ctx context.Context, key string, fn func(Change)) (func(), error) {
	current, _, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("storage closed")
	}
	id := s.nextID
	s.nextID++
	s.watchers[id] = &watcher{key: key, last: current, fn: fn}
	if !s.polling {
		s.polling = true
		go s.poll()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}, nil
}

// poll checks PRAGMA data_version on a dedicated connection. The value
// changes whenever any other connection commits, so unchanged versions
// skip the per-key reads.
func (s *Store) poll() {
	defer close(s.done)

	conn, err := s.db.Conn(s.ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		level.Error(s.logger).Log("msg", "storage watch disabled", "err", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var version int64 = -1
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		var v int64
		if err := conn.QueryRowContext(s.ctx, `PRAGMA data_version`).Scan(&v); err != nil {
			if s.ctx.Err() == nil {
				level.Warn(s.logger).Log("msg", "storage poll failed", "err", err)
			}
			continue
		}
		if v == version {
			continue
		}
		version = v
		s.dispatch(conn)
	}
}

func (s *Store) dispatch(conn *sql.Conn) {
	s.mu.Lock()
	keys := make(map[string]struct{})
	for _, w := range s.watchers {
		keys[w.key] = struct{}{}
	}
	s.mu.Unlock()

	values := make(map[string]string, len(keys))
	for k := range keys {
		v, _, err := get(s.ctx, conn, k)
		if err != nil {
			level.Warn(s.logger).Log("msg", "storage read failed", "key", k, "err", err)
			return
		}
		values[k] = v
	}
	s.notify(values)
}

// notify calls every watcher whose value in values differs from the last
// one it saw.
func (s *Store) notify(values map[string]string) {
	var pending []func()
	s.mu.Lock()
	for _, w := range s.watchers {
		// Watchers added after the snapshot are caught on the next version.
		nv, ok := values[w.key]
		if !ok || nv == w.last {
			continue
		}
		ch := Change{Key: w.key, OldValue: w.last, NewValue: nv}
		w.last = nv
		fn := w.fn
		pending = append(pending, func() { fn(ch) })
	}
	s.mu.Unlock()

	for _, call := range pending {
		level.Debug(s.logger).Log("msg", "storage changed")
		call()
	}
}

// Close stops watching and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	polling := s.polling
	s.mu.Unlock()

	s.cancel()
	if polling {
		<-s.done
	}
	return s.db.Close()
}
