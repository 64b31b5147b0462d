package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"timemachine/internal/models"
	"timemachine/internal/repository"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	users     repository.UserRepository
	jwtSecret []byte
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthHandler(users repository.UserRepository, jwtSecret []byte, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, logger: logger, now: time.Now}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (c *credentials) normalize() bool {
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	return c.Email != "" && c.Password != ""
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, &c); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if !c.normalize() {
		badRequest(w, "email and password required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user := models.User{Email: c.Email, PasswordHash: string(hashed)}
	if err := h.users.Create(r.Context(), &user); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, user.ID)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, &c); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if !c.normalize() {
		badRequest(w, "email and password required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), c.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		writeError(w, h.logger, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	h.respondWithToken(w, http.StatusOK, user.ID)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, userID int) {
	token, err := h.issueJWT(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, status, tokenResponse{Token: token})
}

func (h *AuthHandler) issueJWT(userID int) (string, error) {
	now := h.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(tokenTTL).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
