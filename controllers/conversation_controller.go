package controllers

import (
	"encoding/json"
	"net/http"

	"convo_server/apperrors"
	"convo_server/services"
)

// ConversationController exposes the conversation log over HTTP.
type ConversationController struct {
	Conversations *services.ConversationService
}

func NewConversationController(conversations *services.ConversationService) *ConversationController {
	return &ConversationController{Conversations: conversations}
}

func (c *ConversationController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	var req services.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	message, err := c.Conversations.SendMessage(r.Context(), user, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "message sent",
		"data":    message,
	})
}

func (c *ConversationController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	conversationKey := r.URL.Query().Get("conversationKey")
	if conversationKey == "" {
		writeError(w, apperrors.Validation("conversationKey is required"))
		return
	}

	messages, err := c.Conversations.GetMessages(r.Context(), user, conversationKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (c *ConversationController) HandlePartnerDetails(w http.ResponseWriter, r *http.Request) {
	if _, ok := CurrentUser(r.Context()); !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	partnerID := r.URL.Query().Get("conversationPartnerId")
	partner, err := c.Conversations.GetPartnerDetails(r.Context(), partnerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversationPartner": partner})
}
