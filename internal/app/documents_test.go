package app

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const contractText = `This Agreement is entered into by both parties. ` +
	`The tenant shall pay rent on the first day of each month. ` +
	`Either party may terminate this lease with thirty days written notice. ` +
	`The landlord is responsible for structural repairs.`

func uploadContract(t *testing.T, env *testEnv, ownerID string) string {
	t.Helper()
	doc, err := env.app.UploadDocument(context.Background(), ownerID, "lease.txt", "text/plain", strings.NewReader(contractText))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return doc.ID
}

func TestUploadDocumentExtractsText(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)

	doc, err := env.app.UploadDocument(context.Background(), user.ID, "lease.txt", "text/plain", strings.NewReader(contractText))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.OwnerID != user.ID || doc.OriginalFilename != "lease.txt" {
		t.Fatalf("unexpected document record: %+v", doc)
	}
	if doc.SizeBytes != int64(len(contractText)) {
		t.Fatalf("sizeBytes = %d, want %d", doc.SizeBytes, len(contractText))
	}
	if doc.Metadata["extension"] != "txt" {
		t.Fatalf("metadata = %v", doc.Metadata)
	}

	stored, err := env.app.GetDocument(user.ID, doc.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if !strings.Contains(stored.Excerpt, "terminate this lease") {
		t.Fatalf("excerpt missing extracted text: %q", stored.Excerpt)
	}
}

func TestUploadDocumentRejectsEmptyFile(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)
	if _, err := env.app.UploadDocument(context.Background(), user.ID, "empty.txt", "text/plain", strings.NewReader("")); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty upload: got %v, want ErrValidation", err)
	}
}

func TestDocumentOwnershipIsEnforced(t *testing.T) {
	env := newTestEnv(t)
	alice := registerAlice(t, env)
	bob, err := env.app.Register(RegisterRequest{
		Email:    "bob@example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	docID := uploadContract(t, env, alice.ID)
	if _, err := env.app.GetDocument(bob.ID, docID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign document read: got %v, want ErrNotFound", err)
	}
	if err := env.app.DeleteDocument(context.Background(), bob.ID, docID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign document delete: got %v, want ErrNotFound", err)
	}
	if _, err := env.app.GetDocument(alice.ID, docID); err != nil {
		t.Fatalf("owner read after foreign attempts: %v", err)
	}
}

func TestDeleteDocumentUnlinksChats(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)
	docID := uploadContract(t, env, user.ID)

	chat, err := env.app.CreateChat(user.ID, docID, "")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if err := env.app.DeleteDocument(context.Background(), user.ID, docID); err != nil {
		t.Fatalf("delete document: %v", err)
	}

	docs, err := env.app.ListDocuments(user.ID)
	if err != nil || len(docs) != 0 {
		t.Fatalf("documents after delete: %v err=%v", docs, err)
	}
	kept, err := env.app.GetChat(user.ID, chat.ID)
	if err != nil {
		t.Fatalf("chat must survive document delete: %v", err)
	}
	if kept.DocumentID != "" {
		t.Fatalf("chat still references deleted document: %q", kept.DocumentID)
	}
}
