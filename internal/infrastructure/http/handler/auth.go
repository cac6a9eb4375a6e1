package handler

import (
	"net/http"

	"github.com/rezkam/taskhub/internal/application/auth"
	"github.com/rezkam/taskhub/internal/infrastructure/http/middleware"
	"github.com/rezkam/taskhub/internal/infrastructure/http/response"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Signup(r.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.setAuthCookie(w, session.Token)
	response.Created(w, sessionJSON{
		Message: "signup successful",
		User:    toUserJSON(session.User),
		Token:   session.Token,
	}, "")
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Login(r.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.setAuthCookie(w, session.Token)
	response.OK(w, sessionJSON{
		Message: "login successful",
		User:    toUserJSON(session.User),
		Token:   session.Token,
	})
}

// logout clears the auth cookie. Tokens are stateless, so there is
// nothing to revoke server-side.
func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	response.OK(w, map[string]string{"message": "logout successful"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, toUserJSON(user))
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
