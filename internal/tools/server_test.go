package tools

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"expensed/internal/ledger"
	"expensed/internal/session"
	"expensed/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	sessions := session.NewManager(repo, time.Hour)
	ledgerSvc := ledger.NewService(repo, nil, nil)

	srv := NewServer(":0", sessions, ledgerSvc)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// call posts a tool invocation and returns the decoded result field.
func call(t *testing.T, ts *httptest.Server, name, token string, args map[string]any) any {
	t.Helper()

	body, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/tools/"+name, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("call %s: status %d", name, resp.StatusCode)
	}

	var envelope struct {
		Result any `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Result
}

// login registers a fresh user and returns a valid token.
func login(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()

	call(t, ts, "register", "", map[string]any{"username": username, "password": "secret"})
	result, ok := call(t, ts, "login", "", map[string]any{"username": username, "password": "secret"}).(map[string]any)
	if !ok {
		t.Fatal("login did not return an object")
	}
	token, _ := result["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestUnknownTool(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/tools/no_such_tool", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestInvalidJSONArguments(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/tools/register", "application/json", bytes.NewReader([]byte(`{not json`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAuthRequiredBeforeAnyWork(t *testing.T) {
	ts := newTestServer(t)

	got := call(t, ts, "get_my_expenses", "", nil)
	if got != "Please log in first using the 'login' tool." {
		t.Errorf("result = %v, want the login prompt", got)
	}

	got = call(t, ts, "add_expense", "bogus-token", map[string]any{
		"category": "Food", "amount": 10, "date": "2025-03-10",
	})
	if got != "Please log in first using the 'login' tool." {
		t.Errorf("result = %v, want the login prompt", got)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ts := newTestServer(t)

	call(t, ts, "register", "", map[string]any{"username": "alice", "password": "secret"})
	got := call(t, ts, "register", "", map[string]any{"username": "alice", "password": "other"})
	if got != "Username already exists. Please choose another." {
		t.Errorf("result = %v", got)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)

	call(t, ts, "register", "", map[string]any{"username": "alice", "password": "secret"})
	got := call(t, ts, "login", "", map[string]any{"username": "alice", "password": "wrong"})
	if got != "Invalid username or password." {
		t.Errorf("result = %v", got)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "alice")

	// Empty ledger.
	got := call(t, ts, "get_my_expenses", token, nil)
	if got != "No expenses found." {
		t.Errorf("empty listing = %v", got)
	}

	// Add, then read back.
	added, ok := call(t, ts, "add_expense", token, map[string]any{
		"category":    "Food",
		"amount":      12.5,
		"date":        "2025-03-10",
		"description": "lunch",
	}).(string)
	if !ok || added == "" {
		t.Fatalf("add_expense = %v", added)
	}

	listing, ok := call(t, ts, "get_my_expenses", token, nil).([]any)
	if !ok || len(listing) != 1 {
		t.Fatalf("listing = %v", listing)
	}
	first := listing[0].(map[string]any)
	if first["category"] != "Food" || first["amount"] != 12.5 || first["date"] != "2025-03-10" {
		t.Errorf("expense = %v", first)
	}

	id := first["id"].(string)

	// Update and verify.
	got = call(t, ts, "update_my_expense", token, map[string]any{"expense_id": id, "amount": 20})
	if got != "Expense updated." {
		t.Errorf("update = %v", got)
	}

	got = call(t, ts, "update_my_expense", token, map[string]any{"expense_id": id})
	if got != "No update data provided." {
		t.Errorf("empty update = %v", got)
	}

	// Delete, then the id resolves to a friendly not-found result.
	got = call(t, ts, "delete_my_expense", token, map[string]any{"expense_id": id})
	if got != "Expense deleted." {
		t.Errorf("delete = %v", got)
	}
	got = call(t, ts, "get_my_expense_by_id", token, map[string]any{"expense_id": id})
	if got != "No expense found with ID: "+id+" for this user." {
		t.Errorf("after delete = %v", got)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	aliceToken := login(t, ts, "alice")
	bobToken := login(t, ts, "bob")

	call(t, ts, "add_expense", aliceToken, map[string]any{
		"category": "Food", "amount": 10, "date": "2025-03-10", "description": "lunch",
	})

	got := call(t, ts, "get_my_expenses", bobToken, nil)
	if got != "No expenses found." {
		t.Errorf("bob sees %v, want nothing", got)
	}
}

func TestRecentLimitRendered(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "alice")

	got := call(t, ts, "get_my_recent_expenses", token, map[string]any{"limit": 25})
	if got != "Limit must be between 1 and 20" {
		t.Errorf("result = %v", got)
	}
}

func TestQuickAddErrors(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "alice")

	got := call(t, ts, "quick_add_expense", token, map[string]any{"expense_text": "lunch with friends"})
	if got != "Could not find amount in the text. Please include a number like '$15' or '25.50'" {
		t.Errorf("result = %v", got)
	}
}

func TestBudgetAlertDefaultsToMonth(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "alice")

	result, ok := call(t, ts, "set_my_budget_alert", token, map[string]any{
		"category": "Food", "monthly_budget": 400,
	}).(map[string]any)
	if !ok {
		t.Fatal("expected a report object")
	}
	if result["period"] != "month" {
		t.Errorf("period = %v, want month", result["period"])
	}
	if result["status"] != "OK" {
		t.Errorf("status = %v, want OK", result["status"])
	}
}

func TestCalculatorNeedsNoAuth(t *testing.T) {
	ts := newTestServer(t)

	got := call(t, ts, "calculator", "", map[string]any{"expression": "(12.5 + 7.5) / 4"})
	if got != 5.0 {
		t.Errorf("result = %v, want 5", got)
	}
}

func TestCatalogListsTools(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/tools")
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}

	byName := make(map[string]Tool, len(payload.Tools))
	for _, tool := range payload.Tools {
		byName[tool.Name] = tool
	}

	for _, name := range []string{
		"register", "login", "logout",
		"add_expense", "get_my_expenses", "get_my_expense_by_id",
		"update_my_expense", "delete_my_expense", "duplicate_my_expense",
		"get_my_expenses_by_category", "find_my_expenses",
		"get_my_recent_expenses", "get_my_today_expenses",
		"get_my_monthly_report", "get_my_expense_summary",
		"get_my_week_summary", "get_my_spending_trends",
		"set_my_budget_alert", "quick_add_expense", "calculator",
	} {
		if _, ok := byName[name]; !ok {
			t.Errorf("catalog is missing %q", name)
		}
	}

	if byName["login"].RequiresAuth {
		t.Error("login must not require auth")
	}
	if !byName["add_expense"].RequiresAuth {
		t.Error("add_expense must require auth")
	}
}
