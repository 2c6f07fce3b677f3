package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"perpdesk/internal/domain"
	"perpdesk/internal/service"
)

// apiResponse is the uniform JSON envelope for single-object responses.
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// paginatedResponse is the envelope for list responses.
type paginatedResponse struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data"`
	Pagination service.Pagination `json:"pagination"`
	Error      string             `json:"error,omitempty"`
}

func (s *Server) writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, apiResponse{Success: true, Data: data})
}

func (s *Server) writeMessage(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, apiResponse{Success: true, Data: data, Message: message})
}

func (s *Server) writePage(w http.ResponseWriter, page *service.OrderPage) {
	writeJSON(w, http.StatusOK, paginatedResponse{
		Success:    true,
		Data:       page.Data,
		Pagination: page.Pagination,
	})
}

// writeError maps a domain error to its stable HTTP category. Storage and
// invariant failures hide their detail behind a generic message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.metrics.RecordError()

	var status int
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrMarketNotFound), errors.Is(err, domain.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMarketInactive), errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrExternalAPI):
		status = http.StatusBadGateway
		msg = "external api error"
	default:
		status = http.StatusInternalServerError
		msg = "internal server error"
		s.logger.Error("request failed", slog.Any("error", err))
	}

	writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
