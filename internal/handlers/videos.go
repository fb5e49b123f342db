package handlers

import (
	"crewflow/internal/services"
	"net/http"
)

type createVideoBody struct {
	Title          string         `json:"title"`
	EditorID       *int64         `json:"editor_id"`
	AdditionalData map[string]any `json:"additional_data"`
}

// Omitted fields stay as they are; editor_id 0 unassigns the editor.
type updateVideoBody struct {
	Title          *string        `json:"title"`
	EditorID       *int64         `json:"editor_id"`
	AdditionalData map[string]any `json:"additional_data"`
}

func (b updateVideoBody) input() services.UpdateVideoInput {
	input := services.UpdateVideoInput{
		Title:          b.Title,
		AdditionalData: b.AdditionalData,
	}
	if b.EditorID != nil {
		if *b.EditorID == 0 {
			input.ClearEditor = true
		} else {
			input.EditorID = b.EditorID
		}
	}
	return input
}

func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	videos, err := h.videos.ListByRequest(r.Context(), requestID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, videos)
}

func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var body createVideoBody
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}

	video, err := h.videos.Create(r.Context(), callerFrom(r.Context()), requestID, services.CreateVideoInput{
		Title:          body.Title,
		EditorID:       body.EditorID,
		AdditionalData: body.AdditionalData,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, video)
}

func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	video, err := h.videos.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, video)
}

func (h *Handler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var body updateVideoBody
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}

	video, err := h.videos.Update(r.Context(), callerFrom(r.Context()), id, body.input())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, video)
}
