package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-relay/internal/application/interest"
	"github.com/go-push-relay/internal/transport/http/middleware"
)

// InterestHandler handles interest submission and retrieval.
type InterestHandler struct {
	svc interest.Service
}

func NewInterestHandler(svc interest.Service) *InterestHandler { return &InterestHandler{svc: svc} }

func (h *InterestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req interest.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The authenticated account always wins over the body.
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		req.Owner = claims.Account
	}

	in, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (h *InterestHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (h *InterestHandler) Image(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.svc.Image(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
