package api

import (
	"encoding/json"
	"net/http"

	"github.com/lzjever/mbos-wsa/internal/core"
)

// WriteError writes a WSA error response.
func WriteError(w http.ResponseWriter, err *core.AppError) {
	WriteJSON(w, err.Code.HTTPStatus(), core.ErrorResponse{
		Code:    err.Code,
		Message: err.Message,
	})
}

// WriteMissingParameters writes the error a build gets when it needs values
// the caller has not supplied.
func WriteMissingParameters(w http.ResponseWriter, err *core.MissingBuildParametersError) {
	code := core.ErrMissingBuildParameters
	WriteJSON(w, code.HTTPStatus(), core.ErrorResponse{
		Code:       code,
		Message:    err.Error(),
		Parameters: err.Parameters,
		VersionID:  err.VersionID,
	})
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
