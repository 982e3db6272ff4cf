package test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// TestHealthEndpoint verifies health check endpoint
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp, err := http.Get(server.URL() + "/healthz")
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("Expected 'ok', got '%s'", string(body))
	}
}

// TestReadinessEndpoint verifies readiness check endpoint
func TestReadinessEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp, err := http.Get(server.URL() + "/readyz")
	if err != nil {
		t.Fatalf("Readiness check failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)
}

// TestProtectedRoutesRequireToken verifies the authentication wall
func TestProtectedRoutesRequireToken(t *testing.T) {
	server := NewTestServer(t)

	for _, path := range []string{"/", "/employees/", "/employees/add/", "/employees/1/"} {
		resp, err := http.Get(server.URL() + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s: expected 401 without token, got %d", path, resp.StatusCode)
		}
	}
}

// TestRegisterLoginFlow verifies account creation and authentication
func TestRegisterLoginFlow(t *testing.T) {
	server := NewTestServer(t)

	token := server.RegisterAndLogin(t, "alice")
	if token == "" {
		t.Fatalf("expected a session token")
	}

	// Duplicate username is rejected
	resp := server.DoJSON(t, http.MethodPost, "/register/", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "long-enough-password",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate username, got %d", resp.StatusCode)
	}

	// Wrong password gets the generic invalid-credentials response
	resp = server.DoJSON(t, http.MethodPost, "/login/", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", resp.StatusCode)
	}

	// Correct credentials log in
	resp = server.DoJSON(t, http.MethodPost, "/login/", "", map[string]string{
		"username": "alice",
		"password": "long-enough-password",
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)
}

// TestEmployeeLifecycle walks create, list, detail, edit and delete
func TestEmployeeLifecycle(t *testing.T) {
	server := NewTestServer(t)
	token := server.RegisterAndLogin(t, "alice")

	// Create
	resp := server.DoJSON(t, http.MethodPost, "/employees/add/", token, EmployeeForm("Jane"))
	AssertStatusCode(t, resp, http.StatusCreated)
	var created struct {
		Employee struct {
			ID        int64  `json:"id"`
			FirstName string `json:"firstName"`
		} `json:"employee"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	resp.Body.Close()

	// List
	resp = server.DoJSON(t, http.MethodGet, "/employees/", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var list struct {
		Employees []json.RawMessage `json:"employees"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	resp.Body.Close()
	if len(list.Employees) != 1 {
		t.Fatalf("expected 1 employee, got %d", len(list.Employees))
	}

	// Edit
	form := EmployeeForm("Janet")
	resp = server.DoJSON(t, http.MethodPost, "/employees/1/edit/", token, form)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	// Detail reflects the edit
	resp = server.DoJSON(t, http.MethodGet, "/employees/1/", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var detail struct {
		Employee struct {
			FirstName string `json:"firstName"`
		} `json:"employee"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("failed to decode detail response: %v", err)
	}
	resp.Body.Close()
	if detail.Employee.FirstName != "Janet" {
		t.Errorf("expected edited name Janet, got %s", detail.Employee.FirstName)
	}

	// Delete
	resp = server.DoJSON(t, http.MethodPost, "/employee/delete/1/", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode delete response: %v", err)
	}
	resp.Body.Close()
	if !result.Success {
		t.Errorf("expected delete success flag")
	}

	// Gone
	resp = server.DoJSON(t, http.MethodGet, "/employees/1/", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

// TestTenantIsolationOverHTTP verifies two accounts cannot see each other's records
func TestTenantIsolationOverHTTP(t *testing.T) {
	server := NewTestServer(t)
	aliceToken := server.RegisterAndLogin(t, "alice")
	bobToken := server.RegisterAndLogin(t, "bob")

	resp := server.DoJSON(t, http.MethodPost, "/employees/add/", aliceToken, EmployeeForm("Jane"))
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	// Bob cannot read, edit or delete alice's record
	resp = server.DoJSON(t, http.MethodGet, "/employees/1/", bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for foreign detail, got %d", resp.StatusCode)
	}

	resp = server.DoJSON(t, http.MethodPost, "/employees/1/edit/", bobToken, EmployeeForm("Hacked"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for foreign edit, got %d", resp.StatusCode)
	}

	resp = server.DoJSON(t, http.MethodPost, "/employee/delete/1/", bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for foreign delete, got %d", resp.StatusCode)
	}

	// Bob's own list is empty
	resp = server.DoJSON(t, http.MethodGet, "/employees/", bobToken, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var list struct {
		Employees []json.RawMessage `json:"employees"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	resp.Body.Close()
	if len(list.Employees) != 0 {
		t.Errorf("expected empty list for bob, got %d", len(list.Employees))
	}
}

// TestDashboardOverHTTP verifies the aggregation endpoint end to end
func TestDashboardOverHTTP(t *testing.T) {
	server := NewTestServer(t)
	token := server.RegisterAndLogin(t, "alice")

	for _, name := range []string{"Jane", "John", "Carol"} {
		resp := server.DoJSON(t, http.MethodPost, "/employees/add/", token, EmployeeForm(name))
		AssertStatusCode(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	resp := server.DoJSON(t, http.MethodGet, "/", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var m struct {
		TotalEmployees  int `json:"totalEmployees"`
		RecentEmployees int `json:"recentEmployees"`
		MonthlyData     []struct {
			Month string `json:"month"`
		} `json:"monthlyData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode dashboard: %v", err)
	}
	resp.Body.Close()

	if m.TotalEmployees != 3 {
		t.Errorf("expected 3 total employees, got %d", m.TotalEmployees)
	}
	if m.RecentEmployees != 3 {
		t.Errorf("expected 3 recent employees, got %d", m.RecentEmployees)
	}
	if len(m.MonthlyData) != 6 {
		t.Errorf("expected 6 month buckets, got %d", len(m.MonthlyData))
	}
}

// TestLogoutRevokesSession verifies the token denylist path
func TestLogoutRevokesSession(t *testing.T) {
	server := NewTestServer(t)
	token := server.RegisterAndLogin(t, "alice")

	// Session works before logout
	resp := server.DoJSON(t, http.MethodGet, "/employees/", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = server.DoJSON(t, http.MethodPost, "/logout/", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	// The same token is now rejected
	resp = server.DoJSON(t, http.MethodGet, "/employees/", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

// TestAddAndEditRoutesCoexist verifies the add form routes answer alongside
// the parameterized edit routes on the same mux
func TestAddAndEditRoutesCoexist(t *testing.T) {
	server := NewTestServer(t)
	token := server.RegisterAndLogin(t, "alice")

	resp := server.DoJSON(t, http.MethodGet, "/employees/add/", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var schema struct {
		Fields []json.RawMessage `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&schema); err != nil {
		t.Fatalf("failed to decode add form: %v", err)
	}
	resp.Body.Close()
	if len(schema.Fields) == 0 {
		t.Errorf("expected add form fields")
	}

	resp = server.DoJSON(t, http.MethodPost, "/employees/add/", token, EmployeeForm("Jane"))
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	// The edit form for the new record resolves through the {id} pattern
	resp = server.DoJSON(t, http.MethodGet, "/employees/1/edit/", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	// A literal "add" never binds as an id
	resp = server.DoJSON(t, http.MethodGet, "/employees/add/edit/", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for /employees/add/edit/, got %d", resp.StatusCode)
	}
}

// TestRegistrationForms verifies the form schema endpoints are public
func TestRegistrationForms(t *testing.T) {
	server := NewTestServer(t)

	for _, path := range []string{"/register/", "/login/"} {
		resp, err := http.Get(server.URL() + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		AssertStatusCode(t, resp, http.StatusOK)
		var body struct {
			Fields []json.RawMessage `json:"fields"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode %s: %v", path, err)
		}
		resp.Body.Close()
		if len(body.Fields) == 0 {
			t.Errorf("GET %s: expected form fields", path)
		}
	}
}
