// Package httpapi provides the small REST surface around the websocket
// runtime: account registration and login (which issue the bearer tokens
// the websocket layer consumes), the public room listing, and a stats
// endpoint.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mlaroche/chatnet/pkg/auth"
	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/store"
)

// RoomSource lists the live rooms. Satisfied by the server's room
// manager.
type RoomSource interface {
	List() []model.Room
}

// PresenceSource counts live sessions. Satisfied by the server's session
// manager.
type PresenceSource interface {
	Count() int
}

// API serves the REST endpoints.
type API struct {
	store    store.DataStore
	tokens   *auth.Manager
	rooms    RoomSource
	presence PresenceSource
}

// New creates the API around its collaborators.
func New(st store.DataStore, tokens *auth.Manager, rooms RoomSource, presence PresenceSource) *API {
	return &API{store: st, tokens: tokens, rooms: rooms, presence: presence}
}

// Register mounts the API routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", a.handleRegister)
	mux.HandleFunc("POST /api/login", a.handleLogin)
	mux.HandleFunc("GET /api/rooms", a.handleRooms)
	mux.HandleFunc("GET /api/stats", a.handleStats)
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       string   `json:"id"`
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
	} `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if creds.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	if err := model.ValidateUsername(creds.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		slog.Error("hash password", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := a.store.CreateUser(creds.Username, creds.Email, hash)
	if err != nil {
		if strings.Contains(err.Error(), "taken") {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		slog.Error("create user", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	slog.Info("user registered", "user", user.Username)

	a.respondWithToken(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.store.GetUserByUsername(creds.Username)
	if err != nil {
		slog.Error("login lookup", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, creds.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if user.Banned {
		writeError(w, http.StatusForbidden, "account banned")
		return
	}

	a.respondWithToken(w, http.StatusOK, user)
}

func (a *API) respondWithToken(w http.ResponseWriter, status int, user *model.User) {
	token, err := a.tokens.Mint(user)
	if err != nil {
		slog.Error("mint token", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var resp authResponse
	resp.Token = token
	resp.User.ID = user.ID
	resp.User.Username = user.Username
	resp.User.Roles = user.Roles.Strings()
	writeJSON(w, status, resp)
}

type roomListing struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"memberCount"`
	IsPrivate   bool   `json:"isPrivate"`
}

func (a *API) handleRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := a.rooms.List()
	listings := make([]roomListing, 0, len(rooms))
	for _, room := range rooms {
		listings = append(listings, roomListing{
			ID:          room.ID,
			Name:        room.Name,
			Description: room.Description,
			MemberCount: len(room.Members),
			IsPrivate:   room.IsPrivate,
		})
	}
	writeJSON(w, http.StatusOK, listings)
}

type statsResponse struct {
	Connections     int `json:"connections"`
	Rooms           int `json:"rooms"`
	RegisteredUsers int `json:"registeredUsers"`
}

func (a *API) handleStats(w http.ResponseWriter, _ *http.Request) {
	users, err := a.store.ListUsers()
	if err != nil {
		slog.Error("list users", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Connections:     a.presence.Count(),
		Rooms:           len(a.rooms.List()),
		RegisteredUsers: len(users),
	})
}
