package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// FakePlatform emulates the managed backend's REST and auth surfaces over
// httptest: enough of the record store for the SDK's queries and writes,
// plus password sign-in for the session tests. Filters support eq and
// ilike; everything else is ignored.
type FakePlatform struct {
	Server *httptest.Server

	mu     sync.Mutex
	tables map[string][]map[string]any
	users  map[string]fakeUser // email -> user
	// FailNext makes the next N record requests answer 500.
	failNext int
	// Requests counts record store requests.
	Requests int

	jwtSecret string
}

type fakeUser struct {
	ID       string
	Password string
}

// NewFakePlatform starts the fake backend. Close the returned server via
// Close when done.
func NewFakePlatform() *FakePlatform {
	f := &FakePlatform{
		tables:    make(map[string][]map[string]any),
		users:     make(map[string]fakeUser),
		jwtSecret: "test-secret-test-secret-test-secret!",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/", f.handleRecords)
	mux.HandleFunc("/auth/v1/token", f.handleToken)
	mux.HandleFunc("/auth/v1/signup", f.handleSignup)
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/v1/recover", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	f.Server = httptest.NewServer(mux)
	return f
}

// Close shuts the fake backend down.
func (f *FakePlatform) Close() { f.Server.Close() }

// URL returns the backend base URL.
func (f *FakePlatform) URL() string { return f.Server.URL }

// JWTSecret returns the HMAC secret used for issued tokens.
func (f *FakePlatform) JWTSecret() string { return f.jwtSecret }

// AddUser registers a sign-in capable account and returns its id.
func (f *FakePlatform) AddUser(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.users[email] = fakeUser{ID: id, Password: password}
	return id
}

// Seed inserts a row directly into a table.
func (f *FakePlatform) Seed(table string, row any) map[string]any {
	raw, _ := json.Marshal(row)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	if id, _ := m["id"].(string); id == "" {
		m["id"] = uuid.NewString()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], m)
	return m
}

// Rows returns a copy of a table's rows.
func (f *FakePlatform) Rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.tables[table]))
	copy(out, f.tables[table])
	return out
}

// FailNext makes the next n record requests answer 500.
func (f *FakePlatform) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// IssueToken mints a signed session token for userID.
func (f *FakePlatform) IssueToken(userID string) string {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(f.jwtSecret))
	return signed
}

func (f *FakePlatform) handleToken(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)

	f.mu.Lock()
	user, ok := f.users[creds.Email]
	f.mu.Unlock()
	if !ok || user.Password != creds.Password {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}
	f.writeSession(w, user.ID)
}

func (f *FakePlatform) handleSignup(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)
	if creds.Email == "" || creds.Password == "" {
		http.Error(w, `{"error":"invalid"}`, http.StatusUnprocessableEntity)
		return
	}
	id := f.AddUser(creds.Email, creds.Password)
	f.writeSession(w, id)
}

func (f *FakePlatform) writeSession(w http.ResponseWriter, userID string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  f.IssueToken(userID),
		"refresh_token": uuid.NewString(),
		"expires_in":    3600,
		"user":          map[string]string{"id": userID},
	})
}

func (f *FakePlatform) handleRecords(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	if table == "" {
		http.NotFound(w, r)
		return
	}

	f.mu.Lock()
	f.Requests++
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		return
	}
	f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		f.handleSelect(w, r, table)
	case http.MethodPost:
		f.handleInsert(w, r, table)
	case http.MethodPatch:
		f.handlePatch(w, r, table)
	case http.MethodDelete:
		f.handleDelete(w, r, table)
	default:
		http.Error(w, `{"error":"method"}`, http.StatusMethodNotAllowed)
	}
}

func (f *FakePlatform) handleSelect(w http.ResponseWriter, r *http.Request, table string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := filterRows(f.tables[table], r.URL.Query())
	writeJSON(w, http.StatusOK, rows)
}

func (f *FakePlatform) handleInsert(w http.ResponseWriter, r *http.Request, table string) {
	var row map[string]any
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
		return
	}
	if id, _ := row["id"].(string); id == "" {
		row["id"] = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, ok := row["created_at"]; !ok || row["created_at"] == "0001-01-01T00:00:00Z" {
		row["created_at"] = now
	}

	f.mu.Lock()
	f.tables[table] = append(f.tables[table], row)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, []map[string]any{row})
}

func (f *FakePlatform) handlePatch(w http.ResponseWriter, r *http.Request, table string) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var updated []map[string]any
	for _, row := range f.tables[table] {
		if !matchQuery(row, r.URL.Query()) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		updated = append(updated, row)
	}
	if len(updated) == 0 {
		writeJSON(w, http.StatusOK, []map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (f *FakePlatform) handleDelete(w http.ResponseWriter, r *http.Request, table string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.tables[table][:0:0]
	for _, row := range f.tables[table] {
		if !matchQuery(row, r.URL.Query()) {
			kept = append(kept, row)
		}
	}
	f.tables[table] = kept
	w.WriteHeader(http.StatusNoContent)
}

func filterRows(rows []map[string]any, query map[string][]string) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if matchQuery(row, query) {
			out = append(out, row)
		}
	}
	return out
}

func matchQuery(row map[string]any, query map[string][]string) bool {
	for column, conds := range query {
		switch column {
		case "select", "order", "limit", "or":
			continue
		}
		for _, cond := range conds {
			op, want, ok := strings.Cut(cond, ".")
			if !ok {
				continue
			}
			got, _ := row[column].(string)
			switch op {
			case "eq":
				if got != want {
					return false
				}
			case "ilike":
				needle := strings.ToLower(strings.Trim(want, "*"))
				if !strings.Contains(strings.ToLower(got), needle) {
					return false
				}
			}
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
