package controllers

import (
	"encoding/json"
	"net/http"

	"convo_server/apperrors"
	"convo_server/services"
)

// FriendController exposes the relationship ledger over HTTP.
type FriendController struct {
	Friends *services.FriendService
}

func NewFriendController(friends *services.FriendService) *FriendController {
	return &FriendController{Friends: friends}
}

func (c *FriendController) HandleAddFriend(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	if err := c.Friends.SendFriendRequest(r.Context(), user, req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "friend request sent"})
}

func (c *FriendController) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	requesters, err := c.Friends.ListIncomingRequests(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"incomingFriendRequestUsers": requesters,
	})
}

func (c *FriendController) HandleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	var req struct {
		SenderID string `json:"senderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	if err := c.Friends.AcceptFriendRequest(r.Context(), user, req.SenderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "friend request accepted"})
}

func (c *FriendController) HandleDeclineRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	var req struct {
		SenderID string `json:"senderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	if err := c.Friends.DeclineFriendRequest(r.Context(), user, req.SenderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "friend request removed"})
}

func (c *FriendController) HandleListFriends(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	friends, err := c.Friends.ListFriends(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"friends": friends})
}
