package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"clauseease/pkg/domain"
)

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		chats, err := s.app.ListChats(user.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": chats,
			"count": len(chats),
		})
	case http.MethodPost:
		var req createChatRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		chat, err := s.app.CreateChat(user.ID, req.DocumentID, req.Title)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, chat)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleChatByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/chats/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		chat, err := s.app.GetChat(user.ID, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chat)
	case "messages":
		switch r.Method {
		case http.MethodGet:
			msgs, err := s.app.ListChatMessages(user.ID, id)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"items": msgs,
				"count": len(msgs),
			})
		case http.MethodPost:
			var req postMessageRequest
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			msgs, err := s.app.PostMessage(user.ID, id, req.Content)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"items": msgs})
		default:
			methodNotAllowed(w)
		}
	default:
		http.NotFound(w, r)
	}
}

type createChatRequest struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
}

type postMessageRequest struct {
	Content string `json:"content"`
}
