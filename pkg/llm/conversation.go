package llm

import "sync"

// Conversation accumulates messages for multi-turn chats.
type Conversation struct {
	mu       sync.Mutex
	messages []Message
}

func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.messages = append(c.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return c
}

func (c *Conversation) Add(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: role, Content: content})
}

// Messages returns a copy safe to hand to Chat.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
