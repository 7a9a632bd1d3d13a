package store

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const messagesFile = "messages.json"

// MessageLog is the append-only WhatsApp message log.
type MessageLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewMessageLog(dir string) *MessageLog {
	return &MessageLog{path: filepath.Join(dir, messagesFile), now: time.Now}
}

// Append stores m, filling the id, timestamp and save time when missing.
func (l *MessageLog) Append(m Message) (Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var messages []Message
	if err := readJSON(l.path, &messages); err != nil {
		return Message{}, err
	}

	now := l.now().UTC()
	if m.ID == "" {
		m.ID = "msg_" + uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	m.SavedAt = now

	messages = append(messages, m)
	if err := writeJSON(l.path, messages); err != nil {
		return Message{}, err
	}
	return m, nil
}

// All returns every message in log order.
func (l *MessageLog) All() ([]Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var messages []Message
	if err := readJSON(l.path, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}

// ByPhone returns the messages sent to or received from phone, oldest first. Numbers are compared
// by their digits.
func (l *MessageLog) ByPhone(phone string) ([]Message, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}

	want := digits(phone)
	out := make([]Message, 0)
	if want == "" {
		return out, nil
	}
	for _, m := range all {
		if digits(m.From) == want || digits(m.To) == want {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].When().Before(out[j].When()) })
	return out, nil
}

func digits(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}
