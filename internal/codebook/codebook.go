// Package codebook tracks how substitution patterns perform over time and
// promotes them through provisional, validated and integrated stages.
//
// Every mutation is an append-only observation plus a recomputed entry,
// written in a single badger transaction.
package codebook

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/HartBrook/squeeze/internal/errors"
)

// MemoryPath selects an in-memory store.
const MemoryPath = ":memory:"

// maxAttempts bounds retries of a transaction that lost a write conflict.
const maxAttempts = 50

const (
	entryPrefix       = "entry/"
	observationPrefix = "obs/"
)

// Options configures a codebook.
type Options struct {
	Path       string // badger directory; "" or MemoryPath for in-memory
	Thresholds Thresholds
	Retention  Retention
	Now        func() time.Time
}

// Codebook is a persistent pattern tracker. It is safe for concurrent use;
// writers to the same key serialize through badger's conflict detection.
type Codebook struct {
	db     *badger.DB
	opts   Options
	mu     sync.RWMutex
	closed bool
}

// Open opens or creates a codebook.
func Open(opts Options) (*Codebook, error) {
	opts.Thresholds = opts.Thresholds.withDefaults()
	opts.Retention = opts.Retention.withDefaults()
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var bopts badger.Options
	if opts.Path == "" || opts.Path == MemoryPath {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, errors.StoreFailed("open", err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(badgerLogger{})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.StoreFailed("open", err)
	}
	return &Codebook{db: db, opts: opts}, nil
}

// Close releases the store. Closing twice is a no-op.
func (c *Codebook) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.db.Close(); err != nil {
		return errors.StoreFailed("close", err)
	}
	return nil
}

// Thresholds returns the thresholds in effect.
func (c *Codebook) Thresholds() Thresholds {
	return c.opts.Thresholds
}

func (c *Codebook) checkOpen(op string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.StoreFailed(op, fmt.Errorf("codebook is closed"))
	}
	return nil
}

// Record folds one cycle for key into the codebook. observed reports whether
// the pattern was seen this cycle; outcome is the caller's verdict on it.
// An unobserved cycle for an unknown key is ENTRY_NOT_FOUND.
func (c *Codebook) Record(key string, observed bool, outcome Outcome) (*Entry, error) {
	return c.record(key, "", observed, outcome)
}

func (c *Codebook) record(key, replacement string, observed bool, outcome Outcome) (*Entry, error) {
	if err := c.checkOpen("record"); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.StoreFailed("record", fmt.Errorf("empty pattern key"))
	}

	var result *Entry
	err := c.update("record", func(txn *badger.Txn) error {
		now := c.opts.Now()

		e, err := getEntry(txn, key)
		if err == badger.ErrKeyNotFound {
			if !observed {
				return errors.EntryNotFound(key)
			}
			e = &Entry{ID: uuid.NewString(), Key: key, Stage: StageProvisional, FirstSeen: now}
		} else if err != nil {
			return err
		}

		if replacement != "" {
			e.Replacement = replacement
		}
		c.opts.Thresholds.apply(e, observed, outcome, now)
		e.RetirementEligible = c.opts.Retention.eligible(e, now)

		if err := putEntry(txn, e); err != nil {
			return err
		}
		result = e
		return putObservation(txn, e, Observation{
			Key:        key,
			Cycle:      e.Cycles,
			Observed:   observed,
			Outcome:    outcome,
			Stage:      e.Stage,
			Confidence: e.Confidence,
			At:         now,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetStage moves an entry to stage as an operator action. It is the only
// way an integrated entry leaves that stage.
func (c *Codebook) SetStage(key string, stage Stage) (*Entry, error) {
	if err := c.checkOpen("set stage"); err != nil {
		return nil, err
	}

	var result *Entry
	err := c.update("set stage", func(txn *badger.Txn) error {
		e, err := getEntry(txn, key)
		if err == badger.ErrKeyNotFound {
			return errors.EntryNotFound(key)
		}
		if err != nil {
			return err
		}

		now := c.opts.Now()
		e.Cycles++
		e.Stage = stage
		e.Streak = 0
		e.PromotedAt = now
		if err := putEntry(txn, e); err != nil {
			return err
		}
		result = e
		return putObservation(txn, e, Observation{
			Key:        key,
			Cycle:      e.Cycles,
			Outcome:    OutcomeUnknown,
			Stage:      stage,
			Confidence: e.Confidence,
			Manual:     true,
			At:         now,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("debug: codebook: %s set to %s", key, stage)
	return result, nil
}

// Delete removes an entry and its observation log.
func (c *Codebook) Delete(key string) error {
	if err := c.checkOpen("delete"); err != nil {
		return err
	}

	return c.update("delete", func(txn *badger.Txn) error {
		e, err := getEntry(txn, key)
		if err == badger.ErrKeyNotFound {
			return errors.EntryNotFound(key)
		}
		if err != nil {
			return err
		}

		prefix := []byte(observationPrefix + e.ID + "/")
		var keys [][]byte
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return txn.Delete([]byte(entryPrefix + key))
	})
}

// Get returns the entry for key.
func (c *Codebook) Get(key string) (*Entry, error) {
	if err := c.checkOpen("get"); err != nil {
		return nil, err
	}

	var e *Entry
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getEntry(txn, key)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, errors.EntryNotFound(key)
	}
	if err != nil {
		return nil, errors.StoreFailed("get", err)
	}
	return e, nil
}

// Entries returns every entry ordered by key, with retirement eligibility
// evaluated against the current time.
func (c *Codebook) Entries() ([]*Entry, error) {
	if err := c.checkOpen("list"); err != nil {
		return nil, err
	}

	now := c.opts.Now()
	var entries []*Entry
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(entryPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			e.RetirementEligible = c.opts.Retention.eligible(&e, now)
			entries = append(entries, &e)
		}
		return nil
	})
	if err != nil {
		return nil, errors.StoreFailed("list", err)
	}
	return entries, nil
}

// EntriesAtStage returns the entries currently at stage.
func (c *Codebook) EntriesAtStage(stage Stage) ([]*Entry, error) {
	return c.filter(func(e *Entry) bool { return e.Stage == stage })
}

// RetirementCandidates returns entries flagged for retirement. Nothing is deleted.
func (c *Codebook) RetirementCandidates() ([]*Entry, error) {
	return c.filter(func(e *Entry) bool { return e.RetirementEligible })
}

func (c *Codebook) filter(keep func(*Entry) bool) ([]*Entry, error) {
	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}
	var out []*Entry
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// History returns the observation log for key, oldest first.
func (c *Codebook) History(key string) ([]Observation, error) {
	e, err := c.Get(key)
	if err != nil {
		return nil, err
	}

	var history []Observation
	err = c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(observationPrefix + e.ID + "/")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var o Observation
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &o)
			}); err != nil {
				return err
			}
			history = append(history, o)
		}
		return nil
	})
	if err != nil {
		return nil, errors.StoreFailed("history", err)
	}
	return history, nil
}

// Stats returns per-stage counts and aggregate confidence.
func (c *Codebook) Stats() (*Stats, error) {
	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}

	stats := &Stats{ByStage: make(map[Stage]int)}
	for _, s := range Stages {
		stats.ByStage[s] = 0
	}

	var sum float64
	for _, e := range entries {
		stats.Total++
		stats.ByStage[e.Stage]++
		if e.RetirementEligible {
			stats.RetirementEligible++
		}
		sum += e.Confidence
	}
	if stats.Total > 0 {
		stats.MeanConfidence = sum / float64(stats.Total)
	}
	return stats, nil
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (c *Codebook) update(op string, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = c.db.Update(fn)
		if err != badger.ErrConflict {
			break
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Microsecond)
	}
	if err == nil {
		return nil
	}
	if se, ok := err.(*errors.SqueezeError); ok {
		return se
	}
	return errors.StoreFailed(op, err)
}

func getEntry(txn *badger.Txn, key string) (*Entry, error) {
	item, err := txn.Get([]byte(entryPrefix + key))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &e)
	}); err != nil {
		return nil, err
	}
	return &e, nil
}

func putEntry(txn *badger.Txn, e *Entry) error {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return err
	}
	return txn.Set([]byte(entryPrefix+e.Key), data)
}

func putObservation(txn *badger.Txn, e *Entry, o Observation) error {
	data, err := msgpack.Marshal(&o)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%s/%010d", observationPrefix, e.ID, o.Cycle)
	return txn.Set([]byte(key), data)
}
