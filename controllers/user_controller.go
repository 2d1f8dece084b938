package controllers

import (
	"encoding/json"
	"net/http"

	"convo_server/apperrors"
	"convo_server/services"
)

// UserController handles signup, sign-in, credential refresh and logout.
type UserController struct {
	Users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{Users: users}
}

func (c *UserController) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req services.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	user, err := c.Users.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "user created successfully",
		"user":    user.PublicProfile(),
	})
}

func (c *UserController) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	user, accessToken, refreshToken, err := c.Users.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	SetAccessCookie(w, accessToken, c.Users.Tokens.AccessTTL())
	SetRefreshCookie(w, refreshToken, c.Users.Tokens.RefreshTTL())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "welcome " + user.FirstName,
		"user":        user.PublicProfile(),
		"accessToken": accessToken,
	})
}

// HandleRefresh mints a new access credential from the refresh cookie.
func (c *UserController) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, apperrors.Unauthenticated("refresh token not found"))
		return
	}

	_, accessToken, err := c.Users.RefreshAccess(r.Context(), cookie.Value)
	if err != nil {
		ClearAuthCookies(w)
		writeError(w, err)
		return
	}

	SetAccessCookie(w, accessToken, c.Users.Tokens.AccessTTL())
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

func (c *UserController) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		if err := c.Users.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	ClearAuthCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "user logged out successfully"})
}

// HandleCurrentUser returns the authenticated identity.
func (c *UserController) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]string{
			"id":        user.ID,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"userName":  user.UserName,
			"email":     user.Email,
			"bio":       user.Bio,
			"avatarUrl": user.AvatarURL,
		},
	})
}
