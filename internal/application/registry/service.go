package registry

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/go-push-relay/internal/domain"
	"github.com/go-push-relay/internal/pkg/validate"
)

type deviceStore interface {
	Get(ctx context.Context, deviceID string) (*domain.DeviceRecord, error)
	Put(ctx context.Context, d *domain.DeviceRecord) error
	Delete(ctx context.Context, deviceID string) error
	ListByOwner(ctx context.Context, owner string) ([]domain.DeviceRecord, error)
	ListByPhone(ctx context.Context, phoneNumber string) ([]domain.DeviceRecord, error)
}

// RegisterRequest carries the registration form fields. DeviceID is the
// stable client-chosen identifier; RegistrationID is the delivery channel's
// current token for the device and rotates over time.
type RegisterRequest struct {
	DeviceID       string `validate:"required"`
	Owner          string `validate:"required"`
	RegistrationID string `validate:"required"`
	PhoneNumber    string `validate:"required"`
	Name           string
	Type           string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.DeviceRecord, error)
	Unregister(ctx context.Context, owner string)
	DeviceByID(ctx context.Context, deviceID string) (*domain.DeviceRecord, error)
	ListDevices(ctx context.Context, owner string) ([]domain.DeviceRecord, error)
	DevicesByPhone(ctx context.Context, phoneNumber string) ([]domain.DeviceRecord, error)
}

type service struct {
	repo       deviceStore
	maxDevices int

	// ownerMu serialises the count-then-evict-then-put critical section per
	// owner, so two concurrent registrations cannot both decide to evict.
	// Owners hash onto a fixed set of locks, so the table never grows with
	// the number of owners.
	ownerMu [64]sync.Mutex
}

func NewService(repo deviceStore, maxDevices int) Service {
	return &service{repo: repo, maxDevices: maxDevices}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*domain.DeviceRecord, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrMissingField)
	}
	if req.Name == "" {
		req.Name = domain.DefaultDeviceName
	}
	if req.Type == "" {
		req.Type = domain.TypePush
	}

	lock := s.lockOwner(req.Owner)
	lock.Lock()
	defer lock.Unlock()

	device, err := s.repo.Get(ctx, req.DeviceID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if err := s.evictIfOverCeiling(ctx, req.Owner); err != nil {
			return nil, err
		}
		// A freshly created record carries no registration timestamp; it is
		// only set when the registration id is overwritten later.
		device = &domain.DeviceRecord{
			DeviceID:       req.DeviceID,
			RegistrationID: req.RegistrationID,
			Type:           req.Type,
		}
	case err != nil:
		return nil, fmt.Errorf("load device record: %w", err)
	default:
		now := time.Now().UTC()
		device.RegistrationID = req.RegistrationID
		device.RegisteredAt = &now
	}

	// Last-write-wins on every call.
	device.Owner = req.Owner
	device.PhoneNumber = req.PhoneNumber
	device.Name = req.Name

	if err := s.repo.Put(ctx, device); err != nil {
		return nil, fmt.Errorf("persist device record: %w", err)
	}
	return device, nil
}

// Unregister removes all of the owner's device records. Best-effort cleanup:
// failures are logged and swallowed so they never block the primary path.
func (s *service) Unregister(ctx context.Context, owner string) {
	devices, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		slog.Warn("unregister: could not list devices", "owner", owner, "err", err)
		return
	}
	for _, d := range devices {
		if err := s.repo.Delete(ctx, d.DeviceID); err != nil {
			slog.Warn("unregister: could not delete device", "device", d.DeviceID, "err", err)
		}
	}
}

// DeviceByID resolves the stable device id to the stored record, which
// carries the delivery channel's current registration id.
func (s *service) DeviceByID(ctx context.Context, deviceID string) (*domain.DeviceRecord, error) {
	return s.repo.Get(ctx, deviceID)
}

func (s *service) ListDevices(ctx context.Context, owner string) ([]domain.DeviceRecord, error) {
	return s.repo.ListByOwner(ctx, owner)
}

func (s *service) DevicesByPhone(ctx context.Context, phoneNumber string) ([]domain.DeviceRecord, error) {
	return s.repo.ListByPhone(ctx, phoneNumber)
}

// evictIfOverCeiling deletes the owner's oldest device record when inserting
// another one would exceed the per-owner ceiling. A nil registration
// timestamp counts as infinitely old; ties keep the first record encountered.
// Eviction failures are logged and swallowed.
func (s *service) evictIfOverCeiling(ctx context.Context, owner string) error {
	devices, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("count devices: %w", err)
	}
	if len(devices) < s.maxDevices {
		return nil
	}

	oldest := devices[0]
	for _, d := range devices[1:] {
		if olderThan(d, oldest) {
			oldest = d
		}
	}
	slog.Info("device ceiling reached, evicting oldest", "owner", owner, "device", oldest.DeviceID)
	if err := s.repo.Delete(ctx, oldest.DeviceID); err != nil {
		slog.Warn("could not evict device", "device", oldest.DeviceID, "err", err)
	}
	return nil
}

func olderThan(a, b domain.DeviceRecord) bool {
	if b.RegisteredAt == nil {
		return false
	}
	if a.RegisteredAt == nil {
		return true
	}
	return a.RegisteredAt.Before(*b.RegisteredAt)
}

func (s *service) lockOwner(owner string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(owner))
	return &s.ownerMu[h.Sum32()%uint32(len(s.ownerMu))]
}
