package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/handler"
	"github.com/yourorg/staffdesk/internal/infrastructure/logger"
	"github.com/yourorg/staffdesk/internal/security/auth"
	"github.com/yourorg/staffdesk/internal/security/middleware"
	"github.com/yourorg/staffdesk/internal/service"
	"github.com/yourorg/staffdesk/pkg/cache"
)

// TestServerHelper runs the full HTTP surface over in-memory stores, so the
// register, login, CRUD, dashboard and logout flow can be exercised without a
// running database or Redis.
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
}

func NewTestServer(t *testing.T) *TestServerHelper {
	log := logger.NewLogger("debug")

	tokenManager := auth.NewTokenManager("test-secret", "staffdesk")
	revoker := newMemRevoker()
	userRepo := newMemUserRepo()
	employeeRepo := newMemEmployeeRepo()

	authService := service.NewAuthService(userRepo, tokenManager, revoker, log)
	employeeService := service.NewEmployeeService(employeeRepo, log)
	dashboardCache := cache.New()

	authHandler := handler.NewAuthHandler(authService, log)
	employeesHandler := handler.NewEmployeesHandler(employeeService, dashboardCache, log)
	dashboardHandler := handler.NewDashboardHandler(employeeService, dashboardCache, 30*time.Second, time.UTC, log)
	deleteHandler := handler.NewDeleteHandler(employeeService, dashboardCache, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /register/", authHandler.RegisterForm)
	mux.HandleFunc("POST /register/", authHandler.Register)
	mux.HandleFunc("GET /login/", authHandler.LoginForm)
	mux.HandleFunc("POST /login/", authHandler.Login)
	mux.HandleFunc("POST /logout/", authHandler.Logout)
	mux.Handle("GET /{$}", dashboardHandler)
	mux.HandleFunc("GET /employees/", employeesHandler.List)
	mux.HandleFunc("GET /employees/add/{$}", employeesHandler.AddForm)
	mux.HandleFunc("POST /employees/add/{$}", employeesHandler.Create)
	mux.HandleFunc("GET /employees/{id}/", employeesHandler.Detail)
	mux.HandleFunc("GET /employees/{id}/edit/", employeesHandler.EditForm)
	mux.HandleFunc("POST /employees/{id}/edit/", employeesHandler.Edit)
	mux.Handle("/employee/delete/{id}/", deleteHandler)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	root := middleware.JWTMiddleware(tokenManager, revoker, log)(mux)
	server := httptest.NewServer(root)
	t.Cleanup(server.Close)

	return &TestServerHelper{Server: server, Logger: log}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// DoJSON issues a request with an optional JSON body and bearer token.
func (h *TestServerHelper) DoJSON(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, h.Server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// RegisterAndLogin creates an account and returns its session token.
func (h *TestServerHelper) RegisterAndLogin(t *testing.T, username string) string {
	t.Helper()

	resp := h.DoJSON(t, http.MethodPost, "/register/", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "long-enough-password",
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusCreated)

	var session struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("registration returned no token")
	}
	return session.Token
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d: %s", expected, resp.StatusCode, body)
	}
}

// AssertContentType helper function
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); ct != expected {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}

type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.users[u.Username] = u
	return nil
}

func (m *memUserRepo) GetByUsername(username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByEmail(email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemRevoker() *memRevoker {
	return &memRevoker{revoked: map[string]time.Time{}}
}

func (m *memRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[token] = time.Now().Add(ttl)
	return nil
}

func (m *memRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.revoked[token]
	return ok && time.Now().Before(expiry), nil
}

type memEmployeeRepo struct {
	mu      sync.Mutex
	records map[int64]*domain.Employee
	nextID  int64
}

func newMemEmployeeRepo() *memEmployeeRepo {
	return &memEmployeeRepo{records: map[int64]*domain.Employee{}}
}

func (m *memEmployeeRepo) Create(tenant domain.TenantID, in domain.EmployeeInput) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e := &domain.Employee{
		ID:        m.nextID,
		TenantID:  tenant,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		City:      in.City,
		State:     in.State,
		Zipcode:   in.Zipcode,
		CreatedAt: time.Now(),
	}
	m.records[e.ID] = e
	copied := *e
	return &copied, nil
}

func (m *memEmployeeRepo) GetByID(tenant domain.TenantID, id int64) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.records[id]
	if !ok || e.TenantID != tenant {
		return nil, domain.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *memEmployeeRepo) List(tenant domain.TenantID) ([]domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Employee
	for _, e := range m.records {
		if e.TenantID == tenant {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memEmployeeRepo) Update(tenant domain.TenantID, id int64, in domain.EmployeeInput) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.records[id]
	if !ok || e.TenantID != tenant {
		return nil, domain.ErrNotFound
	}
	e.FirstName = in.FirstName
	e.LastName = in.LastName
	e.Email = in.Email
	e.Phone = in.Phone
	e.Address = in.Address
	e.City = in.City
	e.State = in.State
	e.Zipcode = in.Zipcode
	copied := *e
	return &copied, nil
}

func (m *memEmployeeRepo) Delete(tenant domain.TenantID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.records[id]
	if !ok || e.TenantID != tenant {
		return domain.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memEmployeeRepo) CountAll() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.records)), nil
}

// EmployeeForm returns a valid submission for the named employee.
func EmployeeForm(firstName string) map[string]string {
	return map[string]string{
		"first_name": firstName,
		"last_name":  "Doe",
		"email":      fmt.Sprintf("%s@example.com", firstName),
		"phone":      "555-0100",
		"address":    "1 Main St",
		"city":       "Springfield",
		"state":      "IL",
		"zipcode":    "62701",
	}
}
