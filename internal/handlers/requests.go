package handlers

import (
	"crewflow/internal/services"
	"fmt"
	"net/http"
	"time"
)

const dateLayout = "2006-01-02"

type createRequestBody struct {
	Title          string         `json:"title"`
	StartDatetime  time.Time      `json:"start_datetime"`
	EndDatetime    time.Time      `json:"end_datetime"`
	Deadline       string         `json:"deadline"`
	Place          string         `json:"place"`
	Type           string         `json:"type"`
	AdditionalData map[string]any `json:"additional_data"`

	RequesterEmail     string `json:"requester_email"`
	RequesterFirstName string `json:"requester_first_name"`
	RequesterLastName  string `json:"requester_last_name"`
	RequesterMobile    string `json:"requester_mobile"`
}

// Omitted fields stay as they are. An empty deadline clears it.
type updateRequestBody struct {
	Title          *string        `json:"title"`
	StartDatetime  *time.Time     `json:"start_datetime"`
	EndDatetime    *time.Time     `json:"end_datetime"`
	Deadline       *string        `json:"deadline"`
	Place          *string        `json:"place"`
	Type           *string        `json:"type"`
	ResponsibleID  *int64         `json:"responsible_id"`
	AdditionalData map[string]any `json:"additional_data"`
}

func (b createRequestBody) input() (services.CreateRequestInput, error) {
	input := services.CreateRequestInput{
		Title:          b.Title,
		StartDatetime:  b.StartDatetime,
		EndDatetime:    b.EndDatetime,
		Place:          b.Place,
		Type:           b.Type,
		AdditionalData: b.AdditionalData,
	}

	if b.Deadline != "" {
		deadline, err := parseDate(b.Deadline)
		if err != nil {
			return input, err
		}
		input.Deadline = &deadline
	}

	if b.RequesterEmail != "" || b.RequesterFirstName != "" || b.RequesterLastName != "" || b.RequesterMobile != "" {
		input.Requester = &services.RequesterContact{
			Email:     b.RequesterEmail,
			FirstName: b.RequesterFirstName,
			LastName:  b.RequesterLastName,
			Mobile:    b.RequesterMobile,
		}
	}
	return input, nil
}

func (b updateRequestBody) input() (services.UpdateRequestInput, error) {
	input := services.UpdateRequestInput{
		Title:          b.Title,
		StartDatetime:  b.StartDatetime,
		EndDatetime:    b.EndDatetime,
		Place:          b.Place,
		Type:           b.Type,
		ResponsibleID:  b.ResponsibleID,
		AdditionalData: b.AdditionalData,
	}

	if b.Deadline != nil {
		if *b.Deadline == "" {
			input.ClearDeadline = true
		} else {
			deadline, err := parseDate(*b.Deadline)
			if err != nil {
				return input, err
			}
			input.Deadline = &deadline
		}
	}
	return input, nil
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}

	input, err := body.input()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	request, err := h.requests.Create(r.Context(), callerFrom(r.Context()), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, request)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	request, err := h.requests.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, request)
}

func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var body updateRequestBody
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}

	input, err := body.input()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	request, err := h.requests.Update(r.Context(), callerFrom(r.Context()), id, input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, request)
}

func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.requests.Delete(r.Context(), callerFrom(r.Context()), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: deadline must look like %s", services.ErrInvalidInput, dateLayout)
	}
	return date, nil
}
