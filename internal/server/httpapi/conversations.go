package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/server/auth"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/gorilla/mux"
)

type createConversationRequest struct {
	UserName       *string `json:"userName"`
	UserPhone      *string `json:"userPhone"`
	InitialMessage string  `json:"initialMessage"`
}

type createConversationResponse struct {
	Conversation *models.Conversation `json:"conversation"`
	Message      *models.Message      `json:"message"`
}

type appendMessageRequest struct {
	Content string `json:"content"`
	IsUser  *bool  `json:"isUser"`
}

func (s *HTTPServer) listConversations(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var owner *string
	if v := r.URL.Query().Get("userId"); v != "" {
		owner = &v
		if !auth.CanAccess(id, owner) {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "Unauthorized to view these conversations"})
			return
		}
	}

	list, err := s.convs.ListConversations(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch conversations")
		return
	}

	// Without a filter only admins see everything; everyone else gets guest
	// conversations plus their own.
	if owner == nil && (id == nil || id.Role != models.RoleAdmin) {
		visible := make([]*models.ConversationPreview, 0, len(list))
		for _, c := range list {
			if auth.CanAccess(id, c.UserID) {
				visible = append(visible, c)
			}
		}
		list = visible
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "Failed to create conversation")
		return
	}

	var owner *string
	if id := identityFrom(r.Context()); id != nil {
		owner = &id.UserID
	}

	conv, msg, err := s.convs.CreateConversation(r.Context(), owner, req.UserName, req.UserPhone, req.InitialMessage)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Initial message is required"})
			return
		}
		s.writeError(w, r, err, "Failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, createConversationResponse{Conversation: conv, Message: msg})
}

func (s *HTTPServer) listMessages(w http.ResponseWriter, r *http.Request) {
	convID := mux.Vars(r)["id"]
	if !s.authorizeConversation(w, r, convID, "Unauthorized to view these messages", "Failed to fetch messages") {
		return
	}

	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch messages")
		return
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			s.writeError(w, r, common.NewValidationError("before", "must be an RFC 3339 timestamp"), "Failed to fetch messages")
			return
		}
		before = &t
	}

	list, err := s.convs.ListMessages(r.Context(), convID, limit, before)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) appendMessage(w http.ResponseWriter, r *http.Request) {
	convID := mux.Vars(r)["id"]
	if !s.authorizeConversation(w, r, convID, "Unauthorized to add messages to this conversation", "Failed to create message") {
		return
	}

	var req appendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "Failed to create message")
		return
	}
	isUser := true
	if req.IsUser != nil {
		isUser = *req.IsUser
	}

	msg, err := s.convs.AppendMessage(r.Context(), convID, req.Content, isUser)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Message content is required"})
		case errors.Is(err, common.ErrorNotFound):
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Conversation not found"})
		default:
			s.writeError(w, r, err, "Failed to create message")
		}
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// authorizeConversation loads the conversation and applies the ownership
// guard. It writes the response and returns false when the caller may not
// proceed.
func (s *HTTPServer) authorizeConversation(w http.ResponseWriter, r *http.Request, convID, forbidden, fallback string) bool {
	conv, err := s.convs.GetConversation(r.Context(), convID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Conversation not found"})
			return false
		}
		s.writeError(w, r, err, fallback)
		return false
	}
	if !auth.CanAccess(identityFrom(r.Context()), conv.UserID) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: forbidden})
		return false
	}
	return true
}
