package history

import (
	"sync"

	"privacy-chatter/internal/llm"
)

// DefaultPersona sets the assistant's scope for every conversation.
const DefaultPersona = "Jesteś asystentem edukującym na temat etyki w przetwarzaniu danych osobowych. " +
	"Użytkownicy to przedsiębiorstwa, które wykorzystują różne dane do swoich modeli. " +
	"Twoim zadaniem jest edukowanie ich na temat anonimizacji, zagrożeń związanych z brakiem anonimizacji " +
	"oraz związanych z nieodpowiednią anonimizacją. " +
	"Potrafisz przedstawić odpowiednie metody anonimizacji na podstawie nazwy kolumny danych. " +
	"W odpowiedziach nie używaj funkcji formatujących tekst, jak np. **"

type conversation struct {
	mu   sync.Mutex
	msgs []llm.Message
}

// Manager keeps per-user conversations in memory for the process lifetime.
// The map lock is held only to look up or create a conversation, so
// different users never wait on each other's appends.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*conversation
	persona  string
}

func NewManager(persona string) *Manager {
	if persona == "" {
		persona = DefaultPersona
	}
	return &Manager{sessions: make(map[string]*conversation), persona: persona}
}

// Persona returns the system message content seeded into new conversations.
func (m *Manager) Persona() string { return m.persona }

func (m *Manager) systemMessage() llm.Message {
	return llm.Message{Role: llm.RoleSystem, Content: m.persona}
}

func (m *Manager) lookup(userID string) *conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

func (m *Manager) getOrCreate(userID string) *conversation {
	if c := m.lookup(userID); c != nil {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[userID]; ok {
		return c
	}
	c := &conversation{msgs: []llm.Message{m.systemMessage()}}
	m.sessions[userID] = c
	return c
}

// Ensure creates the conversation seeded with the persona message. No-op if it exists.
func (m *Manager) Ensure(userID string) {
	m.getOrCreate(userID)
}

// Get returns a copy of the user's messages, or nil for an unknown user.
func (m *Manager) Get(userID string) []llm.Message {
	c := m.lookup(userID)
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Append adds the user message and the assistant reply as one step.
func (m *Manager) Append(userID, userText, assistantText string) {
	c := m.getOrCreate(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs,
		llm.Message{Role: llm.RoleUser, Content: userText},
		llm.Message{Role: llm.RoleAssistant, Content: assistantText},
	)
}

// Reset discards the history, leaving only a fresh persona message.
func (m *Manager) Reset(userID string) {
	c := m.getOrCreate(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = []llm.Message{m.systemMessage()}
}

// Len is the number of known conversations.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
