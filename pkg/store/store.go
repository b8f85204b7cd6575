package store

import (
	"errors"
	"time"

	"clauseease/pkg/domain"
)

// Store defines persistence operations for users, documents, and chats.
type Store interface {
	// users
	CreateUser(domain.User) error
	SaveUser(domain.User) error
	GetUserByID(id string) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByPhone(phone string) (domain.User, bool, error)

	// OTP state. A code and its expiry move together in one write;
	// MarkChannelVerified clears the pair in the same write that sets
	// the verified flag, so readers never observe a half transition.
	SetChannelOTP(userID string, ch domain.Channel, code string, expiresAt time.Time) error
	ClearChannelOTP(userID string, ch domain.Channel) error
	MarkChannelVerified(userID string, ch domain.Channel) error
	ClearExpiredOTPs(now time.Time) (int64, error)

	// documents
	SaveDocument(domain.Document) error
	GetDocument(id string) (domain.Document, bool, error)
	ListDocumentsByOwner(ownerID string) ([]domain.Document, error)
	DeleteDocument(id string) error

	// chats
	CreateChat(domain.Chat) error
	GetChat(id string) (domain.Chat, bool, error)
	ListChatsByOwner(ownerID string) ([]domain.Chat, error)
	TouchChat(id string, lastMessageAt time.Time) error
	AppendMessage(domain.Message) error
	ListMessages(chatID string, limit int) ([]domain.Message, error)
}

// ErrDuplicate is reported by CreateUser when the email or phone
// uniqueness constraint is violated.
var ErrDuplicate = errors.New("duplicate identity")
