package coordination

import (
	"sync"
	"time"

	"github.com/jinzhu/copier"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one finalized transcript entry. Messages are immutable once
// created.
type Message struct {
	Role      Role
	Text      string
	CreatedAt time.Time
}

// transcript is the ordered, append-only sequence of finalized messages.
// Messages are appended by the coordinator only at well-defined transition
// points: a finalized user utterance and an arrived assistant reply.
type transcript struct {
	mu       sync.RWMutex
	messages []Message
}

func newTranscript() *transcript {
	return &transcript{}
}

func (t *transcript) Append(message Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, message)
}

func (t *transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Snapshot returns a point-in-time deep copy of the transcript.
func (t *transcript) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// The snapshot must not share memory with the live slice.
	messages := []Message{}
	if err := copier.CopyWithOption(&messages, &t.messages, copier.Option{DeepCopy: true}); err != nil {
		messages = make([]Message, len(t.messages))
		copy(messages, t.messages)
	}
	return messages
}
