package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to a status and a client-safe Greek message; the raw
// error only goes to the log.
func writeAppError(ctx context.Context, w http.ResponseWriter, err error, fallback string, logger *slog.Logger) {
	status := common.HTTPStatus(err)
	msg := common.UserMessage(err, fallback)
	if status == http.StatusGatewayTimeout || errors.Is(err, context.DeadlineExceeded) {
		status, msg = http.StatusGatewayTimeout, constants.MsgTimeout
	}
	l := common.LoggerFromContext(ctx, logger)
	if status >= http.StatusInternalServerError {
		l.Error("http.error", "status", status, "error", err)
	} else {
		l.Warn("http.rejected", "status", status, "error", err)
	}
	writeError(w, status, msg)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return common.InvalidInputError(constants.MsgInvalidBody)
	}
	return nil
}
