package events

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	klog "github.com/sigilnet/sigil/internal/log"
	"github.com/sigilnet/sigil/internal/storage"
)

// DB key layout:
//
//	e/<seq(8, big-endian)> -> Event JSON
//	n                      -> next sequence number (8 bytes, big-endian)
var (
	prefixEvent = []byte("e/")
	keyNextSeq  = []byte("n")
)

// Log is the durable, ordered event log.
type Log struct {
	db     storage.DB
	next   uint64
	logger zerolog.Logger
}

// NewLog opens an event log over the given database, recovering the next
// sequence number from disk.
func NewLog(db storage.DB) (*Log, error) {
	l := &Log{db: db, logger: klog.Events}

	// Only a sequence record that is genuinely absent means an empty log.
	// A read failure must not reset the counter, or Append would start
	// overwriting existing events.
	found, err := db.Has(keyNextSeq)
	if err != nil {
		return nil, fmt.Errorf("event log: check sequence record: %w", err)
	}
	if found {
		raw, err := db.Get(keyNextSeq)
		if err != nil {
			return nil, fmt.Errorf("event log: read sequence record: %w", err)
		}
		if len(raw) != 8 {
			return nil, fmt.Errorf("event log: corrupt sequence record (%d bytes)", len(raw))
		}
		l.next = binary.BigEndian.Uint64(raw)
	}

	return l, nil
}

// Append writes a batch of events atomically, assigning consecutive
// sequence numbers. All events of one registry operation are appended
// in a single call, so the log never contains a partial operation.
func (l *Log) Append(evs []Event) error {
	if len(evs) == 0 {
		return nil
	}

	batch := newBatch(l.db)
	seq := l.next
	for i := range evs {
		evs[i].Seq = seq
		data, err := json.Marshal(&evs[i])
		if err != nil {
			return fmt.Errorf("event marshal: %w", err)
		}
		if err := batch.Put(eventKey(seq), data); err != nil {
			return fmt.Errorf("event put: %w", err)
		}
		seq++
	}

	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	if err := batch.Put(keyNextSeq, seqBuf[:]); err != nil {
		return fmt.Errorf("event sequence put: %w", err)
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("event commit: %w", err)
	}

	l.next = seq
	for i := range evs {
		l.logger.Debug().
			Uint64("seq", evs[i].Seq).
			Str("type", string(evs[i].Type)).
			Msg("event appended")
	}
	return nil
}

// Len returns the number of events in the log.
func (l *Log) Len() uint64 {
	return l.next
}

// ForEach iterates over all events in sequence order.
// Return a non-nil error from fn to stop iteration early.
func (l *Log) ForEach(fn func(Event) error) error {
	// Big-endian keys iterate in sequence order.
	return l.db.ForEach(prefixEvent, func(key, value []byte) error {
		var ev Event
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("event unmarshal at key %x: %w", key, err)
		}
		return fn(ev)
	})
}

// List returns up to limit events starting at sequence from.
// A limit of 0 means no limit.
func (l *Log) List(from, limit uint64) ([]Event, error) {
	var out []Event
	err := l.ForEach(func(ev Event) error {
		if ev.Seq < from {
			return nil
		}
		if limit > 0 && uint64(len(out)) >= limit {
			return errStop
		}
		out = append(out, ev)
		return nil
	})
	if err != nil && err != errStop {
		return nil, err
	}
	if out == nil {
		out = []Event{}
	}
	return out, nil
}

var errStop = fmt.Errorf("stop iteration")

// newBatch returns an atomic batch when the DB supports one, falling back
// to a buffered non-atomic batch otherwise.
func newBatch(db storage.DB) storage.Batch {
	if b, ok := db.(storage.Batcher); ok {
		return b.NewBatch()
	}
	return &fallbackBatch{db: db}
}

type fallbackBatch struct {
	db  storage.DB
	ops []fallbackOp
}

type fallbackOp struct {
	key, value []byte
}

func (fb *fallbackBatch) Put(key, value []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	fb.ops = append(fb.ops, fallbackOp{key: k, value: v})
	return nil
}

func (fb *fallbackBatch) Delete(key []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	fb.ops = append(fb.ops, fallbackOp{key: k})
	return nil
}

func (fb *fallbackBatch) Commit() error {
	for _, op := range fb.ops {
		if op.value == nil {
			if err := fb.db.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := fb.db.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(prefixEvent)+8)
	copy(key, prefixEvent)
	binary.BigEndian.PutUint64(key[len(prefixEvent):], seq)
	return key
}
