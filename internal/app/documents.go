package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clauseease/internal/util"
	"clauseease/pkg/domain"
	"clauseease/pkg/extract"
)

const (
	// excerptRunes bounds how much extracted text is kept for chat context.
	excerptRunes = 20000

	downloadURLTTL = 15 * time.Minute
)

// UploadDocument stores the file in object storage, extracts its text for
// chat context, and records the document. Extraction failure is not fatal.
func (a *App) UploadDocument(ctx context.Context, ownerID, filename, contentType string, r io.Reader) (domain.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return domain.Document{}, fmt.Errorf("%w: filename required", ErrValidation)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return domain.Document{}, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := util.NewID()
	key := fmt.Sprintf("%s/%s%s", ownerID, id, strings.ToLower(filepath.Ext(filename)))
	if a.objects != nil {
		if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			return domain.Document{}, fmt.Errorf("store file: %w", err)
		}
	}

	metadata := map[string]string{
		"extension": strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
	}
	var excerpt string
	text, err := extract.Text(filename, bytes.NewReader(data))
	if err != nil {
		slog.Warn("text extraction failed", "document_id", id, "filename", filename, "error", err)
	} else {
		excerpt = extract.Excerpt(text, excerptRunes)
		metadata["extractedChars"] = strconv.Itoa(len(text))
	}

	doc := domain.Document{
		ID:               id,
		OwnerID:          ownerID,
		OriginalFilename: filename,
		StorageKey:       key,
		ContentType:      contentType,
		SizeBytes:        int64(len(data)),
		Metadata:         metadata,
		Excerpt:          excerpt,
		UploadedAt:       time.Now().UTC(),
	}
	if err := a.store.SaveDocument(doc); err != nil {
		return domain.Document{}, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the owner's documents, newest first.
func (a *App) ListDocuments(ownerID string) ([]domain.Document, error) {
	return a.store.ListDocumentsByOwner(ownerID)
}

// GetDocument returns one of the owner's documents.
func (a *App) GetDocument(ownerID, id string) (domain.Document, error) {
	doc, ok, err := a.store.GetDocument(id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	if !ok || doc.OwnerID != ownerID {
		return domain.Document{}, ErrNotFound
	}
	return doc, nil
}

// DocumentDownloadURL returns a short-lived pre-signed URL for the file.
func (a *App) DocumentDownloadURL(ctx context.Context, ownerID, id string) (string, error) {
	doc, err := a.GetDocument(ownerID, id)
	if err != nil {
		return "", err
	}
	if a.objects == nil {
		return "", fmt.Errorf("object storage not configured")
	}
	url, err := a.objects.PresignGet(ctx, doc.StorageKey, downloadURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

// DeleteDocument removes the record and its stored file. Chats that
// referenced the document stay usable without it.
func (a *App) DeleteDocument(ctx context.Context, ownerID, id string) error {
	doc, err := a.GetDocument(ownerID, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteDocument(doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if a.objects != nil {
		if err := a.objects.Delete(ctx, doc.StorageKey); err != nil {
			slog.Warn("delete stored file failed", "document_id", doc.ID, "error", err)
		}
	}
	return nil
}
