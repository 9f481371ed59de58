// Package history keeps a short, per-client log of chart queries in memory.
package history

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/chartmesh/chartmesh/internal/chart"
)

const (
	DefaultSize       = 10
	DefaultMaxClients = 1024
)

type Entry struct {
	Query       string            `json:"query"`
	Instruction chart.Instruction `json:"instruction"`
	RecordedAt  time.Time         `json:"recorded_at"`
}

type clientLog struct {
	entries  []Entry
	lastSeen time.Time
}

// Log holds at most size entries per client, newest first. When more than
// maxClients clients are tracked the least recently active one is dropped.
type Log struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	size       int
	maxClients int
	clients    map[string]*clientLog
}

type Config struct {
	Size       int
	MaxClients int
	Clock      clockwork.Clock
}

func New(cfg Config) *Log {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Log{
		clock:      cfg.Clock,
		size:       cfg.Size,
		maxClients: cfg.MaxClients,
		clients:    map[string]*clientLog{},
	}
}

func (l *Log) Record(clientID, query string, instruction chart.Instruction) Entry {
	now := l.clock.Now().UTC()
	entry := Entry{Query: query, Instruction: instruction, RecordedAt: now}

	l.mu.Lock()
	defer l.mu.Unlock()

	log, ok := l.clients[clientID]
	if !ok {
		if len(l.clients) >= l.maxClients {
			l.evictOldestLocked()
		}
		log = &clientLog{}
		l.clients[clientID] = log
	}
	log.lastSeen = now

	entries := make([]Entry, 0, l.size)
	entries = append(entries, entry)
	for _, previous := range log.entries {
		if len(entries) == l.size {
			break
		}
		entries = append(entries, previous)
	}
	log.entries = entries
	return entry
}

// Entries returns a copy of the client's history, newest first.
func (l *Log) Entries(clientID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	log, ok := l.clients[clientID]
	if !ok {
		return []Entry{}
	}
	return append([]Entry(nil), log.entries...)
}

func (l *Log) Clear(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, clientID)
}

func (l *Log) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
		found    bool
	)
	for id, log := range l.clients {
		if !found || log.lastSeen.Before(oldest) {
			oldestID, oldest, found = id, log.lastSeen, true
		}
	}
	if found {
		delete(l.clients, oldestID)
	}
}
