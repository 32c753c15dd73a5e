package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/khata-app/khata-backend/internal/auth"
	"github.com/khata-app/khata-backend/internal/config"
	"github.com/khata-app/khata-backend/internal/kv"
	"github.com/khata-app/khata-backend/internal/ledger"
	"github.com/khata-app/khata-backend/internal/models"
	"github.com/khata-app/khata-backend/internal/services"
	"github.com/khata-app/khata-backend/internal/worker"
)

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]models.User
	byEmail map[string]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]models.User{}, byEmail: map[string]models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, username, email, hash, role string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byEmail[email]; exists {
		return models.User{}, errors.New("email taken")
	}
	u := models.User{
		ID: uuid.NewString(), Username: username, Email: email,
		PasswordHash: hash, Role: role,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, errors.New("not found")
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return models.User{}, errors.New("not found")
	}
	return u, nil
}

type noopAudits struct{}

func (noopAudits) Create(context.Context, models.AuditLog) error { return nil }

func (noopAudits) List(context.Context, int) ([]models.AuditLog, error) { return nil, nil }

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{Env: "test", RateRPS: 0}
	tm := auth.NewTokenManager("test-access", "test-refresh", "khata-test", 15*time.Minute, time.Hour)
	us := services.NewUserService(newFakeUsers(), tm)

	wp := worker.NewPool(1)
	rec := services.NewReconciler(ledger.NewStore(kv.NewMemoryTree()), noopAudits{}, wp)

	srv := httptest.NewServer(NewRouter(cfg, tm, us, rec, noopAudits{}))
	t.Cleanup(func() {
		srv.Close()
		wp.Stop()
	})
	return srv
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, url, token, body)
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func loginToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := postJSON(t, srv.URL+"/api/v1/auth/register", "", map[string]string{
		"username": "asha", "email": "asha@example.com", "password": "secret-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "secret-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pair services.TokenPair
	decodeBody(t, resp, &pair)
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken
}

func TestHealth(t *testing.T) {
	srv := setupTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestContactsRequireAuth(t *testing.T) {
	srv := setupTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/contacts")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLedgerFlow(t *testing.T) {
	srv := setupTestServer(t)
	token := loginToken(t, srv)

	// record a receive against an unknown phone; contact is created implicitly
	resp := postJSON(t, srv.URL+"/api/v1/transactions", token, map[string]any{
		"name": "Ravi", "phone_number": "9876543210", "user_type": "customer",
		"type": "receive", "amount": 250,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var view services.ContactView
	decodeBody(t, resp, &view)
	require.Equal(t, services.PhaseReady, view.Phase)
	require.NotEmpty(t, view.Contact.ID)
	require.EqualValues(t, 250, view.Settlement.Net)
	contactID := view.Contact.ID

	// a send moves the settlement down
	resp = postJSON(t, srv.URL+"/api/v1/transactions", token, map[string]any{
		"phone_number": "9876543210", "type": "send", "amount": 100,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	decodeBody(t, resp, &view)
	require.EqualValues(t, 150, view.Settlement.Net)
	require.Len(t, view.Contact.Transactions, 2)

	// overview shows the customer with its computed settlement
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/contacts?type=customer", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var summaries []services.ContactSummary
	decodeBody(t, listResp, &summaries)
	require.Len(t, summaries, 1)
	require.EqualValues(t, 150, summaries[0].Settlement.Net)

	// detail by id
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/v1/contacts/"+contactID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	detailResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, detailResp.StatusCode)

	var detail services.ContactSummary
	decodeBody(t, detailResp, &detail)
	require.Equal(t, "Ravi", detail.Contact.Name)
	require.Len(t, detail.Contact.Transactions, 2)

	// pull-to-refresh by phone
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/v1/contacts/by-phone/9876543210", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	refreshResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, refreshResp.StatusCode)
	decodeBody(t, refreshResp, &view)
	require.EqualValues(t, 150, view.Settlement.Net)

	// edit the send amount down to 50; settlement follows
	var txnID string
	for _, txn := range detail.Contact.Transactions {
		if txn.Type == models.TxnSend {
			txnID = txn.ID
		}
	}
	require.NotEmpty(t, txnID)
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/contacts/"+contactID+"/transactions/"+txnID, token,
		map[string]any{"phone_number": "9876543210", "amount": 50})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &view)
	require.EqualValues(t, 200, view.Settlement.Net)
}

func TestAuditLogsAdminOnly(t *testing.T) {
	srv := setupTestServer(t)
	token := loginToken(t, srv)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUpdateContactValidation(t *testing.T) {
	srv := setupTestServer(t)
	token := loginToken(t, srv)

	resp := postJSON(t, srv.URL+"/api/v1/transactions", token, map[string]any{
		"name": "Ravi", "phone_number": "9876543210", "type": "receive", "amount": 10,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var view services.ContactView
	decodeBody(t, resp, &view)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/contacts/"+view.Contact.ID, token,
		map[string]any{"name": "Ravi", "phone_number": "12345"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/contacts/"+view.Contact.ID, token,
		map[string]any{"name": "Ravi Kumar", "phone_number": "9876543210"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &view)
	require.Equal(t, "Ravi Kumar", view.Contact.Name)
}
