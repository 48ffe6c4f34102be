// Package logbuf keeps a bounded history of log lines for display.
package logbuf

import (
	"strings"
	"sync"
	"time"
)

// Entry is one stored line.
type Entry struct {
	At   time.Time
	Text string
}

// Ring stores the last N entries. Safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	full    bool
	total   int
	now     func() time.Time
}

// New creates a ring that keeps the last n entries. n < 1 is treated as 1.
func New(n int) *Ring {
	if n < 1 {
		n = 1
	}
	return &Ring{
		entries: make([]Entry, n),
		size:    n,
		now:     time.Now,
	}
}

// Append stores text, splitting on embedded newlines.
func (r *Ring) Append(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	for _, line := range strings.Split(strings.TrimRight(text, "\r\n"), "\n") {
		r.add(Entry{At: at, Text: strings.TrimRight(line, "\r")})
	}
}

func (r *Ring) add(e Entry) {
	r.entries[r.pos] = e
	r.pos = (r.pos + 1) % r.size
	if r.pos == 0 {
		r.full = true
	}
	r.total++
}

// Entries returns all stored entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]Entry, r.pos)
		copy(out, r.entries[:r.pos])
		return out
	}

	out := make([]Entry, r.size)
	copy(out, r.entries[r.pos:])
	copy(out[r.size-r.pos:], r.entries[:r.pos])
	return out
}

// Lines returns the stored text, oldest first.
func (r *Ring) Lines() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

// Last returns the last n lines. If fewer lines exist, returns all of them.
func (r *Ring) Last(n int) []string {
	all := r.Lines()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Dropped returns how many entries have been evicted.
func (r *Ring) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return 0
	}
	return r.total - r.size
}

// String joins the stored lines with newlines.
func (r *Ring) String() string {
	return strings.Join(r.Lines(), "\n")
}

// Reset discards all entries.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
	r.full = false
	r.total = 0
	clear(r.entries)
}
