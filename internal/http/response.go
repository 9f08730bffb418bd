package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"financas/internal/core"
)

// retryAfterSeconds is advertised with 503 responses.
const retryAfterSeconds = 5

type errorResponse struct {
	Error string `json:"error"`
}

// paymentResponse is the JSON shape of a stored payment record.
type paymentResponse struct {
	ID             int64     `json:"id"`
	FixedExpenseID int64     `json:"fixedExpenseId"`
	Month          int       `json:"month"`
	Year           int       `json:"year"`
	Paid           bool      `json:"paid"`
	PaymentDate    core.Date `json:"paymentDate"`
}

func newPaymentResponse(p core.FixedExpensePayment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		FixedExpenseID: p.FixedExpenseID,
		Month:          p.Month,
		Year:           p.Year,
		Paid:           p.Paid,
		PaymentDate:    p.PaymentDate,
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err, "path", r.URL.Path)
	}
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad), errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCollaboratorUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		msg = "data temporarily unavailable, retry later"
		slog.ErrorContext(r.Context(), "Collaborator unavailable", "error", err, "path", r.URL.Path)
	case http.StatusInternalServerError:
		msg = http.StatusText(status)
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
	}
	writeJSON(w, r, status, errorResponse{Error: msg})
}
