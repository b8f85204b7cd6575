package app

import (
	"errors"
	"strings"
	"testing"
)

func TestCreateChatTitleDefaultsToDocumentName(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)
	docID := uploadContract(t, env, user.ID)

	chat, err := env.app.CreateChat(user.ID, docID, "")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if chat.Title != "lease.txt" {
		t.Fatalf("title = %q, want document filename", chat.Title)
	}

	bare, err := env.app.CreateChat(user.ID, "", "")
	if err != nil {
		t.Fatalf("create bare chat: %v", err)
	}
	if bare.Title != "New chat" {
		t.Fatalf("bare title = %q", bare.Title)
	}
}

func TestCreateChatRejectsForeignDocument(t *testing.T) {
	env := newTestEnv(t)
	alice := registerAlice(t, env)
	bob, err := env.app.Register(RegisterRequest{Email: "bob@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	docID := uploadContract(t, env, alice.ID)
	if _, err := env.app.CreateChat(bob.ID, docID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("chat on foreign document: got %v, want ErrNotFound", err)
	}
}

func TestPostMessageAnswersFromDocument(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)
	docID := uploadContract(t, env, user.ID)
	chat, err := env.app.CreateChat(user.ID, docID, "")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	msgs, err := env.app.PostMessage(user.ID, chat.ID, "When can I terminate the lease?")
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want user message plus reply", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, "thirty days written notice") {
		t.Fatalf("reply does not quote the relevant clause: %q", msgs[1].Content)
	}

	history, err := env.app.ListChatMessages(user.ID, chat.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Fatal("history must be in chronological order")
	}
}

func TestPostMessageWithoutDocumentExplainsItself(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)
	chat, err := env.app.CreateChat(user.ID, "", "notes")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	msgs, err := env.app.PostMessage(user.ID, chat.ID, "What does section two say?")
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if !strings.Contains(msgs[1].Content, "no document attached") {
		t.Fatalf("reply = %q", msgs[1].Content)
	}
}

func TestPostMessageValidatesContentAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := registerAlice(t, env)
	bob, err := env.app.Register(RegisterRequest{Email: "bob@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	chat, err := env.app.CreateChat(alice.ID, "", "")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	if _, err := env.app.PostMessage(alice.ID, chat.ID, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank message: got %v, want ErrValidation", err)
	}
	if _, err := env.app.PostMessage(bob.ID, chat.ID, "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign chat post: got %v, want ErrNotFound", err)
	}
	if _, err := env.app.ListChatMessages(bob.ID, chat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign chat read: got %v, want ErrNotFound", err)
	}
}

func TestListChatsOrdersByActivity(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)

	first, err := env.app.CreateChat(user.ID, "", "first")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := env.app.CreateChat(user.ID, "", "second"); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := env.app.PostMessage(user.ID, first.ID, "bump"); err != nil {
		t.Fatalf("post message: %v", err)
	}

	chats, err := env.app.ListChats(user.ID)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 2 || chats[0].Title != "first" {
		t.Fatalf("chats = %+v, want first on top after activity", chats)
	}
}
