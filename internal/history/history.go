// Package history keeps a bounded window of recent narration turns per room.
// It only feeds narrator prompts; the durable transcript lives in the store.
package history

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// DefaultLimit keeps ten player/narrator exchanges.
const DefaultLimit = 20

var ErrClosed = errors.New("history cleared")

type Role string

const (
	RolePlayer   Role = "player"
	RoleNarrator Role = "narrator"
	RoleSystem   Role = "system"
)

// Turn is one entry of a room history. Seq increases by one per appended
// turn and is never reused, including after eviction.
type Turn struct {
	Role    Role
	Content string
	Seq     uint64
}

// Log is the capped ring buffer of one room.
type Log struct {
	mu     sync.Mutex
	buf    []Turn
	start  int
	n      int
	next   uint64
	closed bool
}

func newLog(limit int) *Log {
	return &Log{buf: make([]Turn, limit), next: 1}
}

// Turns returns the retained turns, oldest first.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Turn, l.n)
	for i := 0; i < l.n; i++ {
		out[i] = l.buf[(l.start+i)%len(l.buf)]
	}
	return out
}

// Append adds turns in order, evicting the oldest ones beyond the cap.
// A cleared log accepts nothing and returns ErrClosed.
func (l *Log) Append(turns ...Turn) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	for _, t := range turns {
		t.Seq = l.next
		l.next++

		if l.n < len(l.buf) {
			l.buf[(l.start+l.n)%len(l.buf)] = t
			l.n++
			continue
		}
		l.buf[l.start] = t
		l.start = (l.start + 1) % len(l.buf)
	}
	return nil
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

func (l *Log) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Log) close() {
	l.mu.Lock()
	l.closed = true
	l.buf = nil
	l.start, l.n = 0, 0
	l.mu.Unlock()
}

// Cache maps rooms to their logs. Logs are independent: appends to one
// room never wait on another room.
type Cache struct {
	mu    sync.Mutex
	limit int
	logs  map[uuid.UUID]*Log
}

func New(limit int) *Cache {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Cache{limit: limit, logs: make(map[uuid.UUID]*Log)}
}

func (c *Cache) Limit() int {
	return c.limit
}

// Open returns the log of roomID, creating it on first use.
func (c *Cache) Open(roomID uuid.UUID) *Log {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.logs[roomID]
	if !ok {
		l = newLog(c.limit)
		c.logs[roomID] = l
	}
	return l
}

func (c *Cache) Lookup(roomID uuid.UUID) (*Log, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.logs[roomID]
	return l, ok
}

// Clear drops the log of roomID. Holders of the old log get ErrClosed on
// their next Append.
func (c *Cache) Clear(roomID uuid.UUID) {
	c.mu.Lock()
	l, ok := c.logs[roomID]
	delete(c.logs, roomID)
	c.mu.Unlock()

	if ok {
		l.close()
	}
}

// Rooms reports how many rooms currently hold a log.
func (c *Cache) Rooms() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.logs)
}
