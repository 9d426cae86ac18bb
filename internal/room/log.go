package room

import "sync"

// TimeFormat is the display format for chat message times.
const TimeFormat = "2006-01-02 15:04:05"

// Message is one chat message as presented to the UI layer.
type Message struct {
	SenderID   string
	SenderName string
	Body       string
	Time       string // event timestamp rendered with TimeFormat
	ID         string // list-rendering identity only; never transmitted
}

// Log is the append-only chat history: insertion order is arrival order and
// the history is unbounded. The session is the only writer. Every append
// publishes a full snapshot to subscribers.
type Log struct {
	mu   sync.RWMutex
	msgs []Message
	subs []chan []Message
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a message to the end of the history.
func (l *Log) Append(m Message) {
	l.mu.Lock()
	l.msgs = append(l.msgs, m)
	snap := make([]Message, len(l.msgs))
	copy(snap, l.msgs)
	subs := append([]chan []Message(nil), l.subs...)
	l.mu.Unlock()

	publish(subs, snap)
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// Snapshot returns a copy of the history.
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := make([]Message, len(l.msgs))
	copy(snap, l.msgs)
	return snap
}

// Subscribe registers a channel that receives the full history after every
// append, conflated to the newest snapshot.
func (l *Log) Subscribe() <-chan []Message {
	ch := make(chan []Message, 1)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}
