package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// idLease is how many ids a badger sequence reserves per disk write. A crash
// can skip up to this many.
const idLease = 64

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	Dir string

	// GCInterval between value log GC runs. Zero disables the background run.
	GCInterval time.Duration

	// GCDiscardRatio is handed to RunValueLogGC.
	GCDiscardRatio float64

	BlockCacheSize   int64
	ValueLogFileSize int64

	// SyncWrites fsyncs every commit. Posts arriving over radio cannot be
	// asked for again, so the default is on.
	SyncWrites bool

	Logger *slog.Logger
}

// DefaultBadgerOptions returns options for dir.
func DefaultBadgerOptions(dir string) BadgerOptions {
	return BadgerOptions{
		Dir:              dir,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		BlockCacheSize:   16 << 20,
		ValueLogFileSize: 64 << 20,
		SyncWrites:       true,
	}
}

// Badger is a KV on a badger v3 database.
type Badger struct {
	db     *badger.DB
	opts   BadgerOptions
	logger *slog.Logger

	mu   sync.Mutex
	seqs map[string]*badger.Sequence

	lastGC atomic.Int64 // unix seconds
	closed atomic.Bool
	cancel context.CancelFunc
	gcDone chan struct{}
}

var _ KV = (*Badger)(nil)

// OpenBadger opens or creates the database in opts.Dir and starts the
// background GC.
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	if opts.Dir == "" {
		return nil, errors.New("badger: dir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bo := badger.DefaultOptions(opts.Dir).
		WithLogger(badgerLog{logger}).
		WithSyncWrites(opts.SyncWrites)
	if opts.BlockCacheSize > 0 {
		bo = bo.WithBlockCacheSize(opts.BlockCacheSize)
	}
	if opts.ValueLogFileSize > 0 {
		bo = bo.WithValueLogFileSize(opts.ValueLogFileSize)
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", opts.Dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Badger{
		db:     db,
		opts:   opts,
		logger: logger,
		seqs:   make(map[string]*badger.Sequence),
		cancel: cancel,
		gcDone: make(chan struct{}),
	}
	go b.runGC(ctx)

	logger.Info("badger opened", "dir", opts.Dir, "gc_interval", opts.GCInterval)
	return b, nil
}

func (b *Badger) Get(_ context.Context, key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}

func (b *Badger) Put(_ context.Context, key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error { return txn.Set(key, value) })
}

func (b *Badger) Delete(_ context.Context, key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error { return txn.Delete(key) })
}

// each walks prefix inside txn. fn gets copies it may keep.
func each(ctx context.Context, txn *badger.Txn, prefix []byte, fn func(key, value []byte) (bool, error)) error {
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 32, Prefix: prefix})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := it.Item()
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		more, err := fn(item.KeyCopy(nil), v)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func (b *Badger) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return b.db.View(func(txn *badger.Txn) error {
		return each(ctx, txn, prefix, func(k, v []byte) (bool, error) {
			return fn(k, v), nil
		})
	})
}

func (b *Badger) DeleteIf(ctx context.Context, prefix []byte, match func(key, value []byte) bool) (int, error) {
	n := 0
	err := b.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte
		err := each(ctx, txn, prefix, func(k, v []byte) (bool, error) {
			if match(k, v) {
				keys = append(keys, k)
			}
			return true, nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		n = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// NextID draws from a badger sequence stored under "seq/"+name. Badger
// sequences start at 0, which is skipped.
func (b *Badger) NextID(name string) (int64, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	seq := b.seqs[name]
	if seq == nil {
		var err error
		if seq, err = b.db.GetSequence([]byte("seq/"+name), idLease); err != nil {
			return 0, fmt.Errorf("badger: sequence %s: %w", name, err)
		}
		b.seqs[name] = seq
	}

	for {
		n, err := seq.Next()
		if err != nil {
			return 0, fmt.Errorf("badger: sequence %s: %w", name, err)
		}
		if n > 0 {
			return int64(n), nil
		}
	}
}

// CollectGarbage rewrites value log files until badger reports nothing left
// to reclaim. It returns the number of files rewritten.
func (b *Badger) CollectGarbage(ctx context.Context) (int, error) {
	rewritten := 0
	for ctx.Err() == nil {
		err := b.db.RunValueLogGC(b.opts.GCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return rewritten, fmt.Errorf("badger: gc: %w", err)
		}
		rewritten++
	}
	b.lastGC.Store(time.Now().Unix())
	return rewritten, ctx.Err()
}

// LastGC reports when CollectGarbage last finished, or the zero time.
func (b *Badger) LastGC() time.Time {
	if s := b.lastGC.Load(); s != 0 {
		return time.Unix(s, 0)
	}
	return time.Time{}
}

// Size returns the LSM and value log sizes in bytes.
func (b *Badger) Size() (lsm, vlog int64) {
	return b.db.Size()
}

func (b *Badger) runGC(ctx context.Context) {
	defer close(b.gcDone)
	if b.opts.GCInterval <= 0 {
		<-ctx.Done()
		return
	}

	t := time.NewTicker(b.opts.GCInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := b.CollectGarbage(ctx)
			if err != nil && ctx.Err() == nil {
				b.logger.Error("badger gc failed", "error", err)
				continue
			}
			b.logger.Debug("badger gc done", "rewritten", n)
		}
	}
}

// Close stops GC, returns unused sequence leases and closes the database.
func (b *Badger) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.cancel()
	<-b.gcDone

	b.mu.Lock()
	for name, seq := range b.seqs {
		if err := seq.Release(); err != nil {
			b.logger.Warn("badger sequence release failed", "sequence", name, "error", err)
		}
	}
	b.seqs = nil
	b.mu.Unlock()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("badger: close: %w", err)
	}
	b.logger.Info("badger closed", "dir", b.opts.Dir)
	return nil
}

var (
	descLSM    = prometheus.NewDesc("meshbbs_badger_lsm_size_bytes", "Badger LSM tree size in bytes.", nil, nil)
	descVLog   = prometheus.NewDesc("meshbbs_badger_value_log_size_bytes", "Badger value log size in bytes.", nil, nil)
	descLastGC = prometheus.NewDesc("meshbbs_badger_last_gc_timestamp_seconds", "Unix time of the last finished value log GC.", nil, nil)
)

// badgerCollector reads sizes at scrape time.
type badgerCollector struct{ b *Badger }

// Collector exposes size and GC figures for registration.
func (b *Badger) Collector() prometheus.Collector { return badgerCollector{b} }

func (c badgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descLSM
	ch <- descVLog
	ch <- descLastGC
}

func (c badgerCollector) Collect(ch chan<- prometheus.Metric) {
	lsm, vlog := c.b.Size()
	ch <- prometheus.MustNewConstMetric(descLSM, prometheus.GaugeValue, float64(lsm))
	ch <- prometheus.MustNewConstMetric(descVLog, prometheus.GaugeValue, float64(vlog))
	ch <- prometheus.MustNewConstMetric(descLastGC, prometheus.GaugeValue, float64(c.b.lastGC.Load()))
}

// badgerLog routes badger's printf logging into slog. Badger's info output
// is chatty and goes to debug.
type badgerLog struct{ l *slog.Logger }

func (g badgerLog) Errorf(f string, a ...any)   { g.l.Error(fmt.Sprintf(f, a...), "source", "badger") }
func (g badgerLog) Warningf(f string, a ...any) { g.l.Warn(fmt.Sprintf(f, a...), "source", "badger") }
func (g badgerLog) Infof(f string, a ...any)    { g.l.Debug(fmt.Sprintf(f, a...), "source", "badger") }
func (g badgerLog) Debugf(f string, a ...any)   { g.l.Debug(fmt.Sprintf(f, a...), "source", "badger") }
