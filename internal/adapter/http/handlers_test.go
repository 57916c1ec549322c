package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/adapter/repository/memory"
	"github.com/simaogato/networth-backend/internal/adapter/upload"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/dashboard"
	"github.com/simaogato/networth-backend/internal/usecase/portfolio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	handler    http.Handler
	store      *memory.Store
	uploadsDir string
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, initial *domain.Document) *testEnv {
	t.Helper()
	store := memory.NewStore(initial)
	uploadsDir := t.TempDir()

	dash := dashboard.NewDashboardService(store)
	dash.Now = func() time.Time { return fixedNow }
	port := portfolio.NewPortfolioService(store, upload.NewDiskStore(uploadsDir, 1024), nil, quietLogger())
	port.Now = func() time.Time { return fixedNow }

	h := NewHandler(dash, port, quietLogger())
	h.UploadsDir = uploadsDir
	h.MaxUploadBytes = 1024

	return &testEnv{handler: CORS(h.Routes()), store: store, uploadsDir: uploadsDir}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seeded() *domain.Document {
	return &domain.Document{
		Accounts: []domain.Account{
			{ID: "a", Name: "Bank", Type: "Cuenta Corriente", Balance: decimal.NewFromInt(100)},
			{ID: "b", Name: "World ETF", Type: "ETF", Balance: decimal.NewFromInt(300)},
		},
		History: []domain.HistoryEntry{
			{Date: domain.NewTimestamp(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)), Total: decimal.NewFromInt(300),
				Accounts: map[string]decimal.Decimal{"a": decimal.NewFromInt(100), "b": decimal.NewFromInt(200)}},
			{Date: domain.NewTimestamp(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)), Total: decimal.NewFromInt(320),
				Accounts: map[string]decimal.Decimal{"a": decimal.NewFromInt(80), "b": decimal.NewFromInt(240)}},
		},
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetData_EmptyStore(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/data", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accounts":[],"history":[]}`, rec.Body.String())
}

func TestReplaceData(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"accounts":[{"id":"a","name":"Bank","type":"ETF","iban":"","logo":"","balance":10.5}],
		"history":[{"date":"2024-01-01T00:00:00.000Z","total":10.5,"accounts":{"a":10.5}}]}`

	rec := env.do(t, http.MethodPost, "/api/data", strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/data", nil)
	assert.JSONEq(t, body, rec.Body.String())
}

func TestReplaceData_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Corrupt JSON", body: `{"accounts": [`},
		{name: "Duplicate ids", body: `{"accounts":[{"id":"a","name":"A"},{"id":"a","name":"B"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, seeded())

			rec := env.do(t, http.MethodPost, "/api/data", strings.NewReader(tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
			doc, _ := env.store.Load(context.Background())
			assert.Len(t, doc.Accounts, 2)
		})
	}
}

func TestGetSummary(t *testing.T) {
	env := newTestEnv(t, seeded())

	rec := env.do(t, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, 400.0, body["total"])
	assert.Equal(t, 2.0, body["accountCount"])
	change := body["change"].(map[string]any)
	assert.Equal(t, 100.0, change["delta"])

	accounts := body["accounts"].([]any)
	require.Len(t, accounts, 2)
	// Bank is unchanged against April, the ETF grew from 200 to 300
	bank := accounts[0].(map[string]any)["change"].(map[string]any)
	assert.Equal(t, true, bank["available"])
	assert.Equal(t, false, bank["material"])
	etf := accounts[1].(map[string]any)["change"].(map[string]any)
	assert.Equal(t, 50.0, etf["percent"])
	assert.Equal(t, true, etf["material"])
}

func TestGetSeries(t *testing.T) {
	env := newTestEnv(t, seeded())

	rec := env.do(t, http.MethodGet, "/api/series?timeframe=3M&type=ETF", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var series struct {
		Keys []struct {
			ID string `json:"id"`
		} `json:"keys"`
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series.Keys, 1)
	assert.Equal(t, "b", series.Keys[0].ID)
	require.Len(t, series.Rows, 2)
	assert.Equal(t, 240.0, series.Rows[1]["b"])
	assert.Equal(t, 320.0, series.Rows[1]["total"])
	assert.NotContains(t, series.Rows[1], "a")

	// A month before June 1st starts on May 2nd
	rec = env.do(t, http.MethodGet, "/api/series?timeframe=1M", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":[]`)
}

func TestGetSeries_UnknownTimeframe(t *testing.T) {
	env := newTestEnv(t, seeded())
	rec := env.do(t, http.MethodGet, "/api/series?timeframe=5Y", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetComposition(t *testing.T) {
	env := newTestEnv(t, seeded())

	rec := env.do(t, http.MethodGet, "/api/composition?by=type", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 400.0, body["total"])
	items := body["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "ETF", items[0].(map[string]any)["name"])
	assert.Equal(t, 75.0, items[0].(map[string]any)["share"])

	rec = env.do(t, http.MethodGet, "/api/composition?by=iban", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAccountTypes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/account-types", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var types []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.Equal(t, domain.DefaultAccountTypes(), types)
}

func TestAccountLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/accounts", strings.NewReader(`{"id":"a","name":"Bank","type":"ETF","balance":"12.30"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/accounts", strings.NewReader(`{"id":"a","name":"Again"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/accounts/a", strings.NewReader(`{"id":"ignored","name":"Renamed","type":"ETF","balance":20}`))
	require.Equal(t, http.StatusOK, rec.Code)
	doc, _ := env.store.Load(context.Background())
	require.Len(t, doc.Accounts, 1)
	assert.Equal(t, "Renamed", doc.Accounts[0].Name)
	assert.Equal(t, "a", doc.Accounts[0].ID)

	rec = env.do(t, http.MethodPut, "/api/accounts/missing", strings.NewReader(`{"name":"X"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/accounts/a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accounts":[],"history":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/accounts/a", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordBalances(t *testing.T) {
	env := newTestEnv(t, seeded())

	rec := env.do(t, http.MethodPost, "/api/balances", strings.NewReader(`{"a": 150}`))
	require.Equal(t, http.StatusOK, rec.Code)

	doc, _ := env.store.Load(context.Background())
	require.Len(t, doc.History, 3)
	last := doc.History[2]
	assert.True(t, last.Total.Equal(decimal.NewFromInt(450)))
	assert.True(t, last.Accounts["b"].Equal(decimal.NewFromInt(300)), "untouched accounts are seeded")
	assert.True(t, last.Date.Equal(fixedNow))

	rec = env.do(t, http.MethodPost, "/api/balances", strings.NewReader(`{"ghost": 1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc, _ = env.store.Load(context.Background())
	assert.Len(t, doc.History, 4)
}

func multipartBody(t *testing.T, field, filename string, content []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestUploadLogo(t *testing.T) {
	env := newTestEnv(t, seeded())
	body, ct := multipartBody(t, "logo", "bank.png", []byte("png-bytes"), nil)

	rec := env.upload(t, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	filePath := decodeBody(t, rec)["filePath"].(string)
	assert.True(t, strings.HasPrefix(filePath, "/uploads/"))
	assert.True(t, strings.HasSuffix(filePath, ".png"))

	rec = env.do(t, http.MethodGet, filePath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestUploadLogo_AttachesToAccount(t *testing.T) {
	env := newTestEnv(t, seeded())
	body, ct := multipartBody(t, "logo", "etf.svg", []byte("<svg/>"), map[string]string{"accountId": "b"})

	rec := env.upload(t, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	doc, _ := env.store.Load(context.Background())
	acc, _ := doc.Account("b")
	assert.Equal(t, decodeBody(t, rec)["filePath"], acc.Logo)
}

func TestUploadLogo_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		wantErr  string
	}{
		{name: "No file", field: "", wantErr: "No file uploaded."},
		{name: "Wrong field", field: "image", filename: "a.png", content: []byte("x"), wantErr: "No file uploaded."},
		{name: "Not an image", field: "logo", filename: "a.exe", content: []byte("x")},
		{name: "Too large", field: "logo", filename: "a.png", content: bytes.Repeat([]byte("x"), 2048)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, seeded())
			body, ct := multipartBody(t, tt.field, tt.filename, tt.content, nil)

			rec := env.upload(t, body, ct)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeBody(t, rec)["error"])
			}
			entries, err := os.ReadDir(env.uploadsDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestGetRevisions_NotAvailable(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/revisions", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

type fakeRevisions struct{ limit int }

func (f *fakeRevisions) Revisions(ctx context.Context, limit int) ([]domain.Revision, error) {
	f.limit = limit
	return []domain.Revision{{ID: "r1", Total: decimal.NewFromInt(5), AccountCount: 1}}, nil
}

func TestGetRevisions(t *testing.T) {
	store := memory.NewStore(nil)
	revisions := &fakeRevisions{}
	h := NewHandler(dashboard.NewDashboardService(store), portfolio.NewPortfolioService(store, nil, nil, quietLogger()), quietLogger())
	h.Revisions = revisions
	mux := h.Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/revisions?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, revisions.limit)
	assert.Contains(t, rec.Body.String(), `"id":"r1"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/revisions?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenStore struct{}

func (brokenStore) Load(ctx context.Context) (*domain.Document, error) {
	return nil, &domain.StorageError{Op: "load", Err: errors.New("disk unreadable")}
}

func (brokenStore) Save(ctx context.Context, doc *domain.Document) error {
	return &domain.StorageError{Op: "save", Err: errors.New("read-only")}
}

func TestStorageFailure(t *testing.T) {
	h := NewHandler(dashboard.NewDashboardService(brokenStore{}), portfolio.NewPortfolioService(brokenStore{}, nil, nil, quietLogger()), quietLogger())
	mux := h.Routes()

	for _, target := range []string{"/api/data", "/api/summary", "/api/series", "/api/composition"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "disk unreadable", target)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodOptions, "/api/data", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	store := memory.NewStore(nil)
	h := NewHandler(dashboard.NewDashboardService(store), portfolio.NewPortfolioService(store, nil, nil, quietLogger()), quietLogger())
	h.StaticDir = dir
	mux := h.Routes()

	for target, want := range map[string]string{
		"/":                "<html>app</html>",
		"/app.js":          "console.log(1)",
		"/history/2024-01": "<html>app</html>",
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, want, rec.Body.String(), target)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/brew")
}
