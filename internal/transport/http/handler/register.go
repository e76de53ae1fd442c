package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-push-relay/internal/application/registry"
	"github.com/go-push-relay/internal/domain"
	"github.com/go-push-relay/internal/transport/http/middleware"
)

// RegisterHandler handles the device registration endpoints. The POST
// responses are plain text, "OK" or "ERROR(<reason>)", a contract the
// installed clients parse literally.
type RegisterHandler struct {
	svc registry.Service
}

func NewRegisterHandler(svc registry.Service) *RegisterHandler { return &RegisterHandler{svc: svc} }

// ownerOf resolves the account the request acts for: the JWT claims when the
// request is authenticated, the account form field otherwise.
func ownerOf(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return claims.Account
	}
	return r.FormValue("account")
}

func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writePlain(w, http.StatusBadRequest, "ERROR(invalid form)")
		return
	}

	req := registry.RegisterRequest{
		DeviceID:       r.FormValue("deviceId"),
		Owner:          ownerOf(r),
		RegistrationID: r.FormValue("devregid"),
		PhoneNumber:    r.FormValue("phoneNumber"),
		Name:           r.FormValue("deviceName"),
		Type:           r.FormValue("deviceType"),
	}
	if req.RegistrationID == "" {
		writePlain(w, http.StatusBadRequest, "ERROR(no registration id)")
		return
	}

	if _, err := h.svc.Register(r.Context(), req); err != nil {
		if errors.Is(err, domain.ErrMissingField) {
			writePlain(w, http.StatusBadRequest, fmt.Sprintf("ERROR(%s)", err.Error()))
			return
		}
		writePlain(w, http.StatusInternalServerError, "ERROR(cannot save device)")
		return
	}
	writePlain(w, http.StatusOK, "OK")
}

func (h *RegisterHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	owner := ownerOf(r)
	if owner == "" {
		writePlain(w, http.StatusBadRequest, "ERROR(no account)")
		return
	}
	h.svc.Unregister(r.Context(), owner)
	writePlain(w, http.StatusOK, "OK")
}

type deviceView struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Type  string     `json:"type"`
	RegID string     `json:"regid"`
	TS    *time.Time `json:"ts,omitempty"`
}

type deviceListEnvelope struct {
	User    string       `json:"user"`
	Devices []deviceView `json:"devices"`
}

// List returns the caller's registered devices as JSON; unlike the POST
// contract this endpoint is consumed by the web UI, not the installed app.
func (h *RegisterHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := ownerOf(r)
	if owner == "" {
		writeError(w, http.StatusBadRequest, "no account")
		return
	}

	devices, err := h.svc.ListDevices(r.Context(), owner)
	if err != nil {
		httpError(w, err)
		return
	}

	out := deviceListEnvelope{User: owner, Devices: make([]deviceView, 0, len(devices))}
	for _, d := range devices {
		out.Devices = append(out.Devices, deviceView{
			ID:    d.DeviceID,
			Name:  d.Name,
			Type:  d.Type,
			RegID: d.RegistrationID,
			TS:    d.RegisteredAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
