package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/soullog/internal/journal"
	"github.com/hitoshi/soullog/internal/metrics"
	"github.com/hitoshi/soullog/internal/middleware"
	"github.com/hitoshi/soullog/internal/model"
)

// maxEntryBodyBytes はエントリ作成リクエストボディの上限。
const maxEntryBodyBytes = 64 << 10

// JournalServiceInterface は日記ハンドラーが必要とするサービスインターフェース。
type JournalServiceInterface interface {
	Create(ctx context.Context, userID string, input journal.CreateEntryInput) (*journal.CreatedEntry, error)
	List(ctx context.Context, userID string, q journal.ListQuery) ([]*model.JournalEntry, error)
	Export(ctx context.Context, userID string) (*journal.Export, error)
	Clear(ctx context.Context, userID string) (int64, error)
	Summary(ctx context.Context, userID string, q journal.SummaryQuery) (*journal.Summary, error)
}

// EntryHandler は日記エントリのHTTPハンドラー。
type EntryHandler struct {
	service  JournalServiceInterface
	recorder metrics.Recorder
	errs     errorResponder
}

// NewEntryHandler はEntryHandlerを生成する。
func NewEntryHandler(service JournalServiceInterface, recorder metrics.Recorder, exposeDetail bool) *EntryHandler {
	return &EntryHandler{
		service:  service,
		recorder: recorder,
		errs:     errorResponder{ExposeDetail: exposeDetail, Recorder: recorder},
	}
}

// entryResponse はエントリのAPIレスポンス。
type entryResponse struct {
	ID        string          `json:"id"`
	Type      model.EntryType `json:"type"`
	Category  model.Category  `json:"category"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
}

// createEntryResponse は作成時のレスポンス。コーチングメッセージを含む。
type createEntryResponse struct {
	entryResponse
	Feedback string `json:"feedback"`
}

func toEntryResponse(e *model.JournalEntry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		Type:      e.Type,
		Category:  e.Category,
		Title:     e.Title(),
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
}

// CreateEntry はエントリを作成する。
// POST /api/entries
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var input journal.CreateEntryInput
	r.Body = http.MaxBytesReader(w, r.Body, maxEntryBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("request body must be a JSON object"))
		return
	}

	created, err := h.service.Create(r.Context(), user.ID, input)
	if err != nil {
		h.errs.handleServiceError(w, r, err, metrics.DependencyEntryStore)
		return
	}
	if h.recorder != nil {
		h.recorder.RecordEntryCreated(string(created.Entry.Type))
	}

	writeJSON(w, http.StatusCreated, createEntryResponse{
		entryResponse: toEntryResponse(created.Entry),
		Feedback:      created.Feedback,
	})
}

// ListEntries はエントリを新しい順で返す。
// GET /api/entries?type=mind&q=walk
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	entries, err := h.service.List(r.Context(), user.ID, journal.ListQuery{
		Type:  r.URL.Query().Get("type"),
		Query: r.URL.Query().Get("q"),
	})
	if err != nil {
		h.errs.handleServiceError(w, r, err, metrics.DependencyEntryStore)
		return
	}

	resp := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearEntries はユーザーの日記を全て削除する。
// DELETE /api/entries
func (h *EntryHandler) ClearEntries(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	if _, err := h.service.Clear(r.Context(), user.ID); err != nil {
		h.errs.handleServiceError(w, r, err, metrics.DependencyEntryStore)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportEntries は全エントリをJSONファイルとしてダウンロードさせる。
// GET /api/entries/export
func (h *EntryHandler) ExportEntries(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	export, err := h.service.Export(r.Context(), user.ID)
	if err != nil {
		h.errs.handleServiceError(w, r, err, metrics.DependencyEntryStore)
		return
	}

	body, err := json.MarshalIndent(export.Entries, "", "  ")
	if err != nil {
		h.errs.handleServiceError(w, r, fmt.Errorf("failed to encode export: %w", err), "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("failed to write export", slog.String("error", err.Error()))
	}
}
