package lotto

import (
	"context"
	"slices"
	"sync"
)

// recordFeed fans out record snapshots to Store subscribers.
//
// Snapshots are delivered one at a time in the order they were taken, so a
// subscriber never replaces a newer collection with an older one. Subscribers
// must not mutate the store from inside the callback.
type recordFeed struct {
	mu   sync.Mutex
	subs map[int]func([]EntryRecord)
	next int

	delivery sync.Mutex
}

func (f *recordFeed) subscribe(fn func([]EntryRecord)) func() {
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[int]func([]EntryRecord))
	}
	id := f.next
	f.next++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// notify calls every subscriber with its own copy of records
func (f *recordFeed) notify(records []EntryRecord) {
	f.mu.Lock()
	subs := make([]func([]EntryRecord), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(records))
	}
}

// hold reserves the next delivery slot. Call it while the snapshot is still
// current, then hand the snapshot to release.
func (f *recordFeed) hold() { f.delivery.Lock() }

// release delivers the snapshot reserved by hold
func (f *recordFeed) release(records []EntryRecord) {
	defer f.delivery.Unlock()
	f.notify(records)
}

// reload reads the collection with load and delivers it, serialized with
// every other delivery of this feed
func (f *recordFeed) reload(load func() ([]EntryRecord, error)) error {
	if !f.hasSubscribers() {
		return nil
	}

	f.delivery.Lock()
	defer f.delivery.Unlock()

	records, err := load()
	if err != nil {
		return err
	}
	f.notify(records)
	return nil
}

func (f *recordFeed) hasSubscribers() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs) > 0
}

// sortRecords orders records by creation date, then ID
func sortRecords(records []EntryRecord) {
	slices.SortFunc(records, func(a, b EntryRecord) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// OpenStore builds the Store selected by config.Store.Driver. The returned
// close function releases the underlying connection and is never nil.
func OpenStore(ctx context.Context, config *Config, logger Logger) (Store, func() error, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}
	noop := func() error { return nil }

	switch config.Store.Driver {
	case StoreDriverMemory, "":
		return NewMemoryStore(), noop, nil

	case StoreDriverRedis:
		client := NewRedisClientFromConfig(config.Redis)
		store := NewRedisStoreWithRetry(client, logger, config.Store.RetryAttempts, config.Store.RetryInterval)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		logger.Info("Using redis store at %s", config.Redis.Addr)
		return store, client.Close, nil

	case StoreDriverSQLite:
		store, err := OpenSQLiteStore(config.Store.SQLitePath, logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("Using sqlite store at %s", config.Store.SQLitePath)
		return store, store.Close, nil
	}

	return nil, noop, ErrConfigInvalid.WithDetails("unknown store driver " + config.Store.Driver)
}
