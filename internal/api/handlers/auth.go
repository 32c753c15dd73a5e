package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khata-app/khata-backend/internal/api/httpx"
	"github.com/khata-app/khata-backend/internal/services"
)

type AuthHandler struct {
	Users *services.UserService
}

func NewAuthHandler(us *services.UserService) *AuthHandler {
	return &AuthHandler{Users: us}
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	u, err := h.Users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	pair, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "login failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	pair, err := h.Users.Refresh(req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}
