// Package interest implements the "did you like it" flow: a sender uploads
// a photo, we store it and push a notification to every registered device
// of every recipient phone number.
package interest

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-push-relay/internal/domain"
	"github.com/go-push-relay/internal/pkg/id"
	"github.com/go-push-relay/internal/pkg/validate"
)

type interestStore interface {
	Put(ctx context.Context, in *domain.Interest) error
	Get(ctx context.Context, interestID string) (*domain.Interest, error)
}

type blobStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

type deviceResolver interface {
	ListByPhone(ctx context.Context, phoneNumber string) ([]domain.DeviceRecord, error)
}

type pushSender interface {
	SendWithRetry(ctx context.Context, msg domain.OutboundMessage) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type SubmitRequest struct {
	Owner       string   `json:"owner" validate:"required"`
	To          []string `json:"to" validate:"required,min=1"`
	Message     string   `json:"message"`
	ImageBase64 string   `json:"image_base64" validate:"required"`
	ContentType string   `json:"content_type"`
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*domain.Interest, error)
	Get(ctx context.Context, interestID string) (*domain.Interest, error)
	Image(ctx context.Context, interestID string) (io.ReadCloser, string, error)
}

type service struct {
	interests interestStore
	blobs     blobStore
	devices   deviceResolver
	push      pushSender
	sms       smsSender // nil when SMS fallback is not configured
}

func NewService(interests interestStore, blobs blobStore, devices deviceResolver, push pushSender, sms smsSender) Service {
	return &service{interests: interests, blobs: blobs, devices: devices, push: push, sms: sms}
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*domain.Interest, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrMissingField)
	}

	img, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decode image: %v: %w", err, domain.ErrBadRequest)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	in := &domain.Interest{
		InterestID:  id.New(),
		Owner:       req.Owner,
		Message:     req.Message,
		ImageKey:    "interests/" + id.New(),
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.blobs.Upload(ctx, in.ImageKey, bytes.NewReader(img), contentType); err != nil {
		return nil, fmt.Errorf("upload interest image: %w", err)
	}
	if err := s.interests.Put(ctx, in); err != nil {
		return nil, fmt.Errorf("store interest: %w", err)
	}

	for _, phone := range req.To {
		s.notifyPhone(ctx, phone, in)
	}
	return in, nil
}

// notifyPhone pushes to every device registered for one recipient. Delivery
// failures never fail the submit; a permanent rejection falls back to SMS
// when a sender is configured.
func (s *service) notifyPhone(ctx context.Context, phone string, in *domain.Interest) {
	devices, err := s.devices.ListByPhone(ctx, phone)
	if err != nil {
		slog.Error("could not resolve devices for recipient", "phone_number", phone, "err", err)
		return
	}
	if len(devices) == 0 {
		slog.Info("recipient has no registered devices", "phone_number", phone, "interest_id", in.InterestID)
		s.sendSMSFallback(ctx, phone, in)
		return
	}

	for _, dev := range devices {
		msg := domain.OutboundMessage{
			RegistrationID: dev.RegistrationID,
			CollapseKey:    in.InterestID,
			DelayWhileIdle: true,
			Data: map[string]string{
				domain.DataKeyInterestID: in.InterestID,
				domain.DataKeyMessage:    in.Message,
				domain.DataKeyAccount:    in.Owner,
			},
		}
		if err := s.push.SendWithRetry(ctx, msg); err != nil {
			if errors.Is(err, domain.ErrPermanentDelivery) {
				slog.Warn("push permanently rejected, falling back to SMS",
					"phone_number", phone, "device_id", dev.DeviceID, "err", err)
				s.sendSMSFallback(ctx, phone, in)
				continue
			}
			slog.Error("push failed", "phone_number", phone, "device_id", dev.DeviceID, "err", err)
		}
	}
}

func (s *service) sendSMSFallback(ctx context.Context, phone string, in *domain.Interest) {
	if s.sms == nil {
		return
	}
	text := fmt.Sprintf("%s shared something with you: %s", in.Owner, in.Message)
	if err := s.sms.SendSMS(ctx, phone, text); err != nil {
		slog.Warn("sms fallback failed", "phone_number", phone, "err", err)
	}
}

func (s *service) Get(ctx context.Context, interestID string) (*domain.Interest, error) {
	return s.interests.Get(ctx, interestID)
}

func (s *service) Image(ctx context.Context, interestID string) (io.ReadCloser, string, error) {
	in, err := s.interests.Get(ctx, interestID)
	if err != nil {
		return nil, "", err
	}
	r, err := s.blobs.Download(ctx, in.ImageKey)
	if err != nil {
		return nil, "", fmt.Errorf("download interest image: %w", err)
	}
	return r, in.ContentType, nil
}
