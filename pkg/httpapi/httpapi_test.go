package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mlaroche/chatnet/pkg/auth"
	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/store"
)

type fakeRooms []model.Room

func (f fakeRooms) List() []model.Room { return f }

type fakePresence int

func (f fakePresence) Count() int { return int(f) }

func newTestAPI(t *testing.T) (*API, store.DataStore, *http.ServeMux) {
	t.Helper()
	st := store.NewMemory()
	api := New(st, auth.New("test-secret", time.Hour), fakeRooms{
		{ID: "r1", Name: "general", Members: []string{"u1", "u2"}},
		{ID: "r2", Name: "secret", IsPrivate: true, Members: []string{"u1"}},
	}, fakePresence(3))
	mux := http.NewServeMux()
	api.Register(mux)
	return api, st, mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	api, _, mux := newTestAPI(t)

	rec := do(t, mux, "POST", "/api/register", `{"username":"alice","password":"hunter22"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body)
	}
	var reg authResponse
	decode(t, rec, &reg)
	if reg.Token == "" || reg.User.Username != "alice" || reg.User.ID == "" {
		t.Fatalf("register response = %+v", reg)
	}

	// The issued token authenticates on the websocket side.
	ident, err := api.tokens.Authenticate(reg.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ident.ID != reg.User.ID {
		t.Fatalf("token identity = %s, want %s", ident.ID, reg.User.ID)
	}

	rec = do(t, mux, "POST", "/api/login", `{"username":"alice","password":"hunter22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body)
	}
	var login authResponse
	decode(t, rec, &login)
	if login.Token == "" || login.User.ID != reg.User.ID {
		t.Fatalf("login response = %+v", login)
	}

	rec = do(t, mux, "POST", "/api/login", `{"username":"alice","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", rec.Code)
	}
	rec = do(t, mux, "POST", "/api/login", `{"username":"nobody","password":"x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	_, _, mux := newTestAPI(t)

	if rec := do(t, mux, "POST", "/api/register", `{"username":"alice"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password status = %d", rec.Code)
	}
	if rec := do(t, mux, "POST", "/api/register", `{"username":"a b!","password":"x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad username status = %d", rec.Code)
	}
	if rec := do(t, mux, "POST", "/api/register", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d", rec.Code)
	}

	if rec := do(t, mux, "POST", "/api/register", `{"username":"alice","password":"x"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}
	// Duplicate detection is case-insensitive.
	if rec := do(t, mux, "POST", "/api/register", `{"username":"ALICE","password":"x"}`); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
}

func TestLoginRejectsBanned(t *testing.T) {
	_, st, mux := newTestAPI(t)

	if rec := do(t, mux, "POST", "/api/register", `{"username":"alice","password":"x"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}
	u, err := st.GetUserByUsername("alice")
	if err != nil || u == nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	u.Banned = true
	if err := st.SaveUser(u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	if rec := do(t, mux, "POST", "/api/login", `{"username":"alice","password":"x"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("banned login status = %d", rec.Code)
	}
}

func TestRoomsAndStats(t *testing.T) {
	_, _, mux := newTestAPI(t)

	rec := do(t, mux, "GET", "/api/rooms", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("rooms status = %d", rec.Code)
	}
	var listings []roomListing
	decode(t, rec, &listings)
	if len(listings) != 2 {
		t.Fatalf("got %d rooms, want 2", len(listings))
	}
	if listings[0].Name != "general" || listings[0].MemberCount != 2 {
		t.Fatalf("listing = %+v", listings[0])
	}
	if !listings[1].IsPrivate {
		t.Fatal("private flag lost in listing")
	}

	rec = do(t, mux, "GET", "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats statsResponse
	decode(t, rec, &stats)
	if stats.Connections != 3 || stats.Rooms != 2 || stats.RegisteredUsers != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
