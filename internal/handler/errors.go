package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/soullog/internal/metrics"
	"github.com/hitoshi/soullog/internal/middleware"
	"github.com/hitoshi/soullog/internal/model"
)

// errorResponder はサービス層のエラーを統一エラーレスポンスに変換する。
// ExposeDetailがtrue（開発モード）の場合のみ、500のレスポンスに原因を含める。
type errorResponder struct {
	ExposeDetail bool
	Recorder     metrics.Recorder
}

// handleServiceError はエラーの種類に応じてステータスコードを決めて書き込む。
// dependencyはストア障害時にメトリクスへ記録する依存先の名前。
func (e errorResponder) handleServiceError(w http.ResponseWriter, r *http.Request, err error, dependency string) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, statusForAPIError(apiErr), apiErr)
		return
	}

	if errors.Is(err, model.ErrDependencyUnavailable) {
		slog.Error("dependency unavailable",
			slog.String("path", r.URL.Path),
			slog.String("dependency", dependency),
			slog.String("error", err.Error()),
		)
		if e.Recorder != nil {
			e.Recorder.RecordDependencyFailure(dependency)
		}
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewDependencyUnavailableError())
		return
	}

	slog.Error("internal server error",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	detail := ""
	if e.ExposeDetail {
		detail = err.Error()
	}
	middleware.WriteErrorResponseWithDetail(w, http.StatusInternalServerError, model.NewInternalError(), detail)
}

// statusForAPIError はAPIErrorコードからHTTPステータスコードにマッピングする。
func statusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeCSRF:
		return http.StatusForbidden
	case model.ErrCodeProviderNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.String("error", err.Error()))
	}
}
