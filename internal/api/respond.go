package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies. A financial summary is a handful of numbers.
const maxBodyBytes = 1 << 20

// errorResponse is the error body returned by every endpoint.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// decodeJSON decodes the request body into v, writing a 400 response on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		writeError(w, http.StatusBadRequest, "corpo da requisição é obrigatório")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido: "+err.Error())
		return false
	}
	return true
}
