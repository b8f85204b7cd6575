package domain

import "time"

// Channel is a contact method that can be independently verified.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// User is a credential record. Email is the unique human identifier and is
// immutable after registration; phone is optional and unique when present.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	PasswordHash  string `json:"-"`
	EmailVerified bool   `json:"emailVerified"`
	PhoneVerified bool   `json:"phoneVerified"`

	// OTP state: a code and its expiry are always set or cleared together.
	EmailOTP        *string    `json:"-"`
	EmailOTPExpires *time.Time `json:"-"`
	PhoneOTP        *string    `json:"-"`
	PhoneOTPExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Verified reports whether the given channel has been confirmed.
func (u User) Verified(ch Channel) bool {
	switch ch {
	case ChannelPhone:
		return u.PhoneVerified
	default:
		return u.EmailVerified
	}
}

// Document is an uploaded file owned by a user.
type Document struct {
	ID               string            `json:"id"`
	OwnerID          string            `json:"ownerId"`
	OriginalFilename string            `json:"originalFilename"`
	StorageKey       string            `json:"-"`
	ContentType      string            `json:"contentType"`
	SizeBytes        int64             `json:"sizeBytes"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Excerpt          string            `json:"-"`
	UploadedAt       time.Time         `json:"uploadedAt"`
}

// Chat is a per-user conversation, optionally bound to one document.
type Chat struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	DocumentID string    `json:"documentId,omitempty"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Message is a single chat message with role "user" or "assistant".
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
