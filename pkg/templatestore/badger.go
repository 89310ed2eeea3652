package templatestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// keyPrefix namespaces template keys inside the Badger database.
const keyPrefix = "templates:"

// Badger is a Store backed by BadgerDB v4. Each Save is a single
// transaction, so readers see either the old or the new record.
type Badger struct {
	db    *badger.DB
	locks OwnerLocks
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	// Useful for testing with a real badger engine.
	InMemory bool

	// Logger sets the badger logger. If nil, warnings and errors are
	// forwarded to slog and lower levels are dropped.
	Logger badger.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(bopts BadgerOptions) (*Badger, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("templatestore: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if bopts.Logger != nil {
		dbOpts = dbOpts.WithLogger(bopts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(slogLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, storageErr("open badger", "", err)
	}
	return &Badger{db: db}, nil
}

func badgerKey(ownerID string) []byte {
	return []byte(keyPrefix + ownerID)
}

func (b *Badger) Save(_ context.Context, t *voiceprint.Template) error {
	if err := checkSave(t); err != nil {
		return err
	}
	data, err := Marshal(t)
	if err != nil {
		return storageErr("encode", t.OwnerID, err)
	}

	unlock := b.locks.Lock(t.OwnerID)
	defer unlock()
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(t.OwnerID), data)
	})
	if err != nil {
		return storageErr("save", t.OwnerID, err)
	}
	return nil
}

func (b *Badger) Load(_ context.Context, ownerID string) (*voiceprint.Template, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	unlock := b.locks.RLock(ownerID)
	defer unlock()
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(ownerID))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(ownerID)
	}
	if err != nil {
		return nil, storageErr("load", ownerID, err)
	}
	return decodeFor(ownerID, val)
}

func (b *Badger) Delete(_ context.Context, ownerID string) error {
	if err := ValidateOwnerID(ownerID); err != nil {
		return err
	}

	unlock := b.locks.Lock(ownerID)
	defer unlock()
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(ownerID))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return storageErr("delete", ownerID, err)
	}
	return nil
}

func (b *Badger) List(_ context.Context) ([]string, error) {
	prefix := []byte(keyPrefix)
	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().KeyCopy(nil)), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list", "", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// slogLogger forwards badger warnings and errors to slog.
type slogLogger struct{}

func (slogLogger) Errorf(f string, v ...any)   { slog.Error("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...))) }
func (slogLogger) Warningf(f string, v ...any) { slog.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...))) }
func (slogLogger) Infof(string, ...any)        {}
func (slogLogger) Debugf(string, ...any)       {}

var _ Store = (*Badger)(nil)
