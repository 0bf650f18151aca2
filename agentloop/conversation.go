package agentloop

import (
	"time"

	"github.com/martinemde/codeloop/unifiedllm"
)

// Entry is a single message in the conversation log.
type Entry struct {
	Role      unifiedllm.Role `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
}

// Conversation is the ordered, append-only log sent to the model. Entry 0 is
// the system entry and is fixed at construction.
type Conversation struct {
	entries []Entry
}

// NewConversation creates a conversation holding only the system entry.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		entries: []Entry{{
			Role:      unifiedllm.RoleSystem,
			Content:   systemPrompt,
			Timestamp: time.Now(),
		}},
	}
}

// AppendUser appends a user entry.
func (c *Conversation) AppendUser(content string) {
	c.append(unifiedllm.RoleUser, content)
}

// AppendAssistant appends an assistant entry.
func (c *Conversation) AppendAssistant(content string) {
	c.append(unifiedllm.RoleAssistant, content)
}

func (c *Conversation) append(role unifiedllm.Role, content string) {
	c.entries = append(c.entries, Entry{Role: role, Content: content, Timestamp: time.Now()})
}

// Len returns the number of entries, including the system entry.
func (c *Conversation) Len() int { return len(c.entries) }

// System returns the system entry.
func (c *Conversation) System() Entry { return c.entries[0] }

// Entries returns a copy of the log.
func (c *Conversation) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Messages converts the log into model messages.
func (c *Conversation) Messages() []unifiedllm.Message {
	msgs := make([]unifiedllm.Message, len(c.entries))
	for i, e := range c.entries {
		msgs[i] = unifiedllm.Message{Role: e.Role, Content: e.Content}
	}
	return msgs
}
