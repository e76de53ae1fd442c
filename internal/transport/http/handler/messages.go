package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-push-relay/internal/domain"
)

// MessageSender is the minimal interface the handler requires from the
// sender service.
type MessageSender interface {
	SendWithRetry(ctx context.Context, msg domain.OutboundMessage) error
}

// DeviceResolver looks up the stored record for a stable device id.
type DeviceResolver interface {
	DeviceByID(ctx context.Context, deviceID string) (*domain.DeviceRecord, error)
}

type sendMessageRequest struct {
	DeviceID       string            `json:"device_id"`
	CollapseKey    string            `json:"collapse_key"`
	DelayWhileIdle bool              `json:"delay_while_idle"`
	Data           map[string]string `json:"data"`
}

// MessageHandler accepts outbound messages addressed by device id. The
// registry supplies the device's current registration id before every send;
// clients never see or submit raw registration ids. The send is attempted
// inline; on a transient failure the message is queued and the request still
// succeeds.
type MessageHandler struct {
	devices DeviceResolver
	sender  MessageSender
}

func NewMessageHandler(devices DeviceResolver, sender MessageSender) *MessageHandler {
	return &MessageHandler{devices: devices, sender: sender}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	device, err := h.devices.DeviceByID(r.Context(), req.DeviceID)
	if err != nil {
		httpError(w, err)
		return
	}

	msg := domain.OutboundMessage{
		RegistrationID: device.RegistrationID,
		CollapseKey:    req.CollapseKey,
		DelayWhileIdle: req.DelayWhileIdle,
		Data:           req.Data,
	}
	if err := h.sender.SendWithRetry(r.Context(), msg); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "accepted"})
}
