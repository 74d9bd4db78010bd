package handler

import "net/http"

// Health は死活監視用のエンドポイント。ストアには問い合わせない。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
