package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/soullog/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// Detailは開発モードの500でのみ設定する。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	WriteErrorResponseWithDetail(w, statusCode, apiErr, "")
}

// WriteErrorResponseWithDetail はdetail付きでエラーレスポンスを書き込む。
func WriteErrorResponseWithDetail(w http.ResponseWriter, statusCode int, apiErr *model.APIError, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Detail:   detail,
	})
}

// WriteInternalServerError は汎用の500レスポンスを書き込む。詳細はログにのみ残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
