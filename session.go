package agentloops

import (
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Role is the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a Session.
type Message struct {
	Role Role   `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
}

// Session is the conversation state of one agent run: a system instruction fixed at construction
// and an append-only message sequence.
//
// Session is safe for concurrent reads, but a run must be its only writer.
type Session struct {
	mu       sync.RWMutex
	system   string
	messages []Message
}

// NewSession creates an empty session with the given system instruction.
func NewSession(system string) *Session {
	return &Session{
		system:   system,
		messages: make([]Message, 0),
	}
}

// System returns the system instruction.
func (s *Session) System() string {
	return s.system
}

// Append adds a message to the end of the session.
func (s *Session) Append(role Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: role, Text: text})
}

// Messages returns a copy of the message sequence.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Message, len(s.messages))
	copy(result, s.messages)
	return result
}

// Len returns the number of messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// MessageContents renders the session as LangChainGo messages, system instruction first.
// An empty system instruction is omitted.
func (s *Session) MessageContents() []llms.MessageContent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]llms.MessageContent, 0, len(s.messages)+1)
	if s.system != "" {
		result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, s.system))
	}
	for _, m := range s.messages {
		result = append(result, llms.TextParts(m.Role.chatMessageType(), m.Text))
	}
	return result
}

func (r Role) chatMessageType() llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
