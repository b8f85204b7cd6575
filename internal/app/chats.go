package app

import (
	"fmt"
	"strings"
	"time"

	"clauseease/internal/util"
	"clauseease/pkg/domain"
)

const messageHistoryLimit = 50

// CreateChat opens a conversation, optionally bound to one of the
// owner's documents.
func (a *App) CreateChat(ownerID, documentID, title string) (domain.Chat, error) {
	title = strings.TrimSpace(title)
	if documentID != "" {
		doc, err := a.GetDocument(ownerID, documentID)
		if err != nil {
			return domain.Chat{}, err
		}
		if title == "" {
			title = doc.OriginalFilename
		}
	}
	if title == "" {
		title = "New chat"
	}
	now := time.Now().UTC()
	chat := domain.Chat{
		ID:         util.NewID(),
		OwnerID:    ownerID,
		DocumentID: documentID,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.CreateChat(chat); err != nil {
		return domain.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

// ListChats returns the owner's chats, most recently active first.
func (a *App) ListChats(ownerID string) ([]domain.Chat, error) {
	return a.store.ListChatsByOwner(ownerID)
}

// GetChat returns one of the owner's chats.
func (a *App) GetChat(ownerID, id string) (domain.Chat, error) {
	chat, ok, err := a.store.GetChat(id)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	if !ok || chat.OwnerID != ownerID {
		return domain.Chat{}, ErrNotFound
	}
	return chat, nil
}

// ListChatMessages returns recent messages in chronological order.
func (a *App) ListChatMessages(ownerID, chatID string) ([]domain.Message, error) {
	if _, err := a.GetChat(ownerID, chatID); err != nil {
		return nil, err
	}
	return a.store.ListMessages(chatID, messageHistoryLimit)
}

// PostMessage records the user's message and an assistant reply built
// from the chat's document. Both messages are returned in order.
func (a *App) PostMessage(ownerID, chatID, content string) ([]domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content required", ErrValidation)
	}
	chat, err := a.GetChat(ownerID, chatID)
	if err != nil {
		return nil, err
	}

	var docText string
	if chat.DocumentID != "" {
		if doc, ok, err := a.store.GetDocument(chat.DocumentID); err == nil && ok {
			docText = doc.Excerpt
		}
	}

	now := time.Now().UTC()
	userMsg := domain.Message{
		ID:        util.NewID(),
		ChatID:    chat.ID,
		Role:      "user",
		Content:   content,
		CreatedAt: now,
	}
	if err := a.store.AppendMessage(userMsg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	reply := domain.Message{
		ID:        util.NewID(),
		ChatID:    chat.ID,
		Role:      "assistant",
		Content:   answerFromDocument(docText, content),
		CreatedAt: now.Add(time.Millisecond),
	}
	if err := a.store.AppendMessage(reply); err != nil {
		return nil, fmt.Errorf("save reply: %w", err)
	}
	if err := a.store.TouchChat(chat.ID, reply.CreatedAt); err != nil {
		return nil, fmt.Errorf("touch chat: %w", err)
	}
	return []domain.Message{userMsg, reply}, nil
}
