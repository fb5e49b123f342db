package handlers

import (
	"crewflow/internal/additionaldata"
	"crewflow/internal/repository"
	"crewflow/internal/services"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		h.logger.WithError(err).Error("Failed to write JSON response")
	}
}

// respondError maps service and storage errors to status codes.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	message := "internal server error"

	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, additionaldata.ErrInvalidDocument):
		status, code, message = http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, services.ErrForbidden):
		status, code, message = http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, errUnauthorized):
		status, code, message = http.StatusUnauthorized, "unauthorized", err.Error()
	}

	log := h.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	} else {
		log.WithError(err).Debug("Request rejected")
	}

	h.respondJSON(w, status, errorBody{Error: code, Message: message})
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return invalidBody(err)
	}
	return nil
}
