package store

import (
	"sort"
	"sync"
	"time"

	"clauseease/pkg/domain"
)

// MemoryStore keeps records in-process. It backs tests and local
// development and mirrors the transactional guarantees of GormStore:
// OTP code and expiry always move in one mutation.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	byEmail  map[string]string
	byPhone  map[string]string
	docs     map[string]domain.Document
	chats    map[string]domain.Chat
	messages map[string][]domain.Message
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		byEmail:  make(map[string]string),
		byPhone:  make(map[string]string),
		docs:     make(map[string]domain.Document),
		chats:    make(map[string]domain.Chat),
		messages: make(map[string][]domain.Message),
	}
}

// CreateUser inserts a user, enforcing email/phone uniqueness.
func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[u.Email]; exists {
		return ErrDuplicate
	}
	if u.Phone != "" {
		if _, exists := m.byPhone[u.Phone]; exists {
			return ErrDuplicate
		}
	}
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
	if u.Phone != "" {
		m.byPhone[u.Phone] = u.ID
	}
	return nil
}

// SaveUser replaces a user record.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
	if u.Phone != "" {
		m.byPhone[u.Phone] = u.ID
	}
	return nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byEmail[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByPhone looks up a user by E.164 phone.
func (m *MemoryStore) GetUserByPhone(phone string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byPhone[phone]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// SetChannelOTP writes code and expiry together.
func (m *MemoryStore) SetChannelOTP(userID string, ch domain.Channel, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	expiry := expiresAt.UTC()
	if ch == domain.ChannelPhone {
		u.PhoneOTP = &code
		u.PhoneOTPExpires = &expiry
	} else {
		u.EmailOTP = &code
		u.EmailOTPExpires = &expiry
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[userID] = u
	return nil
}

// ClearChannelOTP removes code and expiry together.
func (m *MemoryStore) ClearChannelOTP(userID string, ch domain.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	if ch == domain.ChannelPhone {
		u.PhoneOTP = nil
		u.PhoneOTPExpires = nil
	} else {
		u.EmailOTP = nil
		u.EmailOTPExpires = nil
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[userID] = u
	return nil
}

// MarkChannelVerified flips the flag and clears the pair atomically.
func (m *MemoryStore) MarkChannelVerified(userID string, ch domain.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	if ch == domain.ChannelPhone {
		u.PhoneVerified = true
		u.PhoneOTP = nil
		u.PhoneOTPExpires = nil
	} else {
		u.EmailVerified = true
		u.EmailOTP = nil
		u.EmailOTPExpires = nil
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[userID] = u
	return nil
}

// ClearExpiredOTPs drops OTP pairs past their expiry.
func (m *MemoryStore) ClearExpiredOTPs(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now = now.UTC()
	var cleared int64
	for id, u := range m.users {
		touched := false
		if u.EmailOTP != nil && u.EmailOTPExpires != nil && u.EmailOTPExpires.Before(now) {
			u.EmailOTP = nil
			u.EmailOTPExpires = nil
			touched = true
		}
		if u.PhoneOTP != nil && u.PhoneOTPExpires != nil && u.PhoneOTPExpires.Before(now) {
			u.PhoneOTP = nil
			u.PhoneOTPExpires = nil
			touched = true
		}
		if touched {
			u.UpdatedAt = now
			m.users[id] = u
			cleared++
		}
	}
	return cleared, nil
}

// SaveDocument stores or replaces a document record.
func (m *MemoryStore) SaveDocument(d domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[d.ID] = d
	return nil
}

// GetDocument retrieves a document by ID.
func (m *MemoryStore) GetDocument(id string) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	return d, ok, nil
}

// ListDocumentsByOwner returns documents for an owner, newest first.
func (m *MemoryStore) ListDocumentsByOwner(ownerID string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Document, 0)
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UploadedAt.After(res[j].UploadedAt) })
	return res, nil
}

// DeleteDocument removes a document and unlinks referencing chats.
func (m *MemoryStore) DeleteDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	for chatID, chat := range m.chats {
		if chat.DocumentID == id {
			chat.DocumentID = ""
			m.chats[chatID] = chat
		}
	}
	return nil
}

// CreateChat creates a chat record.
func (m *MemoryStore) CreateChat(c domain.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[c.ID] = c
	return nil
}

// GetChat returns one chat by ID.
func (m *MemoryStore) GetChat(id string) (domain.Chat, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	return c, ok, nil
}

// ListChatsByOwner returns chats for an owner, most recently active first.
func (m *MemoryStore) ListChatsByOwner(ownerID string) ([]domain.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Chat, 0)
	for _, c := range m.chats {
		if c.OwnerID == ownerID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UpdatedAt.After(res[j].UpdatedAt) })
	return res, nil
}

// TouchChat refreshes a chat's activity timestamp.
func (m *MemoryStore) TouchChat(id string, lastMessageAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return nil
	}
	c.UpdatedAt = lastMessageAt.UTC()
	m.chats[id] = c
	return nil
}

// AppendMessage records a chat message.
func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], msg)
	return nil
}

// ListMessages returns up to limit recent messages in chronological order.
func (m *MemoryStore) ListMessages(chatID string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	msgs := m.messages[chatID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
