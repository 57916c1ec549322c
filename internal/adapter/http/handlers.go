// Package http serves the JSON API consumed by the dashboard client,
// the uploaded logos and, optionally, the client build itself.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/adapter/upload"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/dashboard"
	"github.com/simaogato/networth-backend/internal/usecase/portfolio"
)

const (
	defaultRevisionLimit = 20
	maxRevisionLimit     = 500
	// multipartOverhead is allowed on top of the file limit for form boundaries and fields
	multipartOverhead = 1 << 20
)

// Handler serves the HTTP API
type Handler struct {
	Dashboard      *dashboard.DashboardService
	Portfolio      *portfolio.PortfolioService
	Revisions      domain.RevisionLister
	Logger         *slog.Logger
	UploadsDir     string
	StaticDir      string
	MaxUploadBytes int64
}

// NewHandler creates a new Handler instance
func NewHandler(
	dashboardService *dashboard.DashboardService,
	portfolioService *portfolio.PortfolioService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Dashboard:      dashboardService,
		Portfolio:      portfolioService,
		Logger:         logger,
		MaxUploadBytes: upload.DefaultMaxBytes,
	}
}

// Routes returns the request multiplexer
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.health)

	mux.HandleFunc("GET /api/data", h.getData)
	mux.HandleFunc("POST /api/data", h.replaceData)
	mux.HandleFunc("POST /api/upload", h.uploadLogo)

	mux.HandleFunc("GET /api/summary", h.getSummary)
	mux.HandleFunc("GET /api/series", h.getSeries)
	mux.HandleFunc("GET /api/composition", h.getComposition)
	mux.HandleFunc("GET /api/account-types", h.getAccountTypes)
	mux.HandleFunc("GET /api/revisions", h.getRevisions)

	mux.HandleFunc("POST /api/accounts", h.addAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", h.editAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", h.deleteAccount)
	mux.HandleFunc("POST /api/balances", h.recordBalances)
	mux.HandleFunc("POST /api/snapshots", h.snapshot)

	if h.UploadsDir != "" {
		mux.Handle("GET "+upload.PublicPrefix+"/", http.StripPrefix(upload.PublicPrefix+"/", http.FileServer(http.Dir(h.UploadsDir))))
	}
	if h.StaticDir != "" {
		mux.Handle("GET /", spaHandler(h.StaticDir))
	}
	return mux
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getData(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Dashboard.GetDocument(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, http.StatusOK, doc)
}

func (h *Handler) replaceData(w http.ResponseWriter, r *http.Request) {
	doc, err := domain.DecodeDocument(r.Body)
	if err != nil {
		writeError(w, &domain.ValidationError{Field: "document", Reason: err.Error()})
		return
	}
	if _, err := h.Portfolio.ReplaceDocument(r.Context(), doc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// uploadLogo stores the multipart "logo" file. When an "accountId" field is
// present the logo is attached to that account as well.
func (h *Handler) uploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("logo")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, &domain.UploadError{Reason: "file too large"})
		default:
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No file uploaded."})
		}
		return
	}
	defer file.Close()

	if accountID := r.FormValue("accountId"); accountID != "" {
		doc, err := h.Portfolio.SetAccountLogo(r.Context(), accountID, header.Filename, file)
		if err != nil {
			writeError(w, err)
			return
		}
		account, _ := doc.Account(accountID)
		writeJSON(w, http.StatusOK, map[string]string{"filePath": account.Logo})
		return
	}

	filePath, err := h.Portfolio.UploadLogo(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"filePath": filePath})
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Dashboard.GetSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) getSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	series, err := h.Dashboard.GetSeries(r.Context(), q.Get("timeframe"), q.Get("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *Handler) getComposition(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.Dashboard.GetComposition(r.Context(), r.URL.Query().Get("by"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) getAccountTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Dashboard.GetAccountTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *Handler) getRevisions(w http.ResponseWriter, r *http.Request) {
	if h.Revisions == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "revision log is not available for this backend"})
		return
	}

	limit := defaultRevisionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRevisionLimit {
			writeError(w, &domain.ValidationError{Field: "limit", Reason: "must be between 1 and " + strconv.Itoa(maxRevisionLimit)})
			return
		}
		limit = n
	}

	revisions, err := h.Revisions.Revisions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revisions)
}

func (h *Handler) addAccount(w http.ResponseWriter, r *http.Request) {
	var input portfolio.AccountInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.Portfolio.AddAccount(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, http.StatusCreated, doc)
}

func (h *Handler) editAccount(w http.ResponseWriter, r *http.Request) {
	var input portfolio.AccountInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	// The path is authoritative for the id
	input.ID = r.PathValue("id")

	doc, err := h.Portfolio.EditAccount(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, http.StatusOK, doc)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Portfolio.DeleteAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, http.StatusOK, doc)
}

func (h *Handler) recordBalances(w http.ResponseWriter, r *http.Request) {
	var balances map[string]decimal.Decimal
	if err := decodeJSON(r, &balances); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.Portfolio.RecordBalances(r.Context(), balances)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, http.StatusOK, doc)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Portfolio.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, http.StatusOK, doc)
}

// spaHandler serves files from dir and falls back to index.html so client-side routes resolve
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}
