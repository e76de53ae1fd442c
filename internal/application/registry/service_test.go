package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-push-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeviceStore is an in-memory deviceStore that preserves insertion order,
// which matters for the eviction tie-break.
type fakeDeviceStore struct {
	records []*domain.DeviceRecord

	getErr    error
	putErr    error
	deleteErr error
}

func (f *fakeDeviceStore) Get(_ context.Context, deviceID string) (*domain.DeviceRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, r := range f.records {
		if r.DeviceID == deviceID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeviceStore) Put(_ context.Context, d *domain.DeviceRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	cp := *d
	for i, r := range f.records {
		if r.DeviceID == d.DeviceID {
			f.records[i] = &cp
			return nil
		}
	}
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeDeviceStore) Delete(_ context.Context, deviceID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, r := range f.records {
		if r.DeviceID == deviceID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeDeviceStore) ListByOwner(_ context.Context, owner string) ([]domain.DeviceRecord, error) {
	var out []domain.DeviceRecord
	for _, r := range f.records {
		if r.Owner == owner {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeDeviceStore) ListByPhone(_ context.Context, phone string) ([]domain.DeviceRecord, error) {
	var out []domain.DeviceRecord
	for _, r := range f.records {
		if r.PhoneNumber == phone {
			out = append(out, *r)
		}
	}
	return out, nil
}

func validReq(deviceID string) RegisterRequest {
	return RegisterRequest{
		DeviceID:       deviceID,
		Owner:          "alice@example.com",
		RegistrationID: "reg-" + deviceID,
		PhoneNumber:    "15005550006",
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc := NewService(&fakeDeviceStore{}, 10)

	cases := []RegisterRequest{
		{Owner: "a", RegistrationID: "r", PhoneNumber: "p"}, // no device id
		{DeviceID: "d", Owner: "a", PhoneNumber: "p"},       // no registration id
		{DeviceID: "d", Owner: "a", RegistrationID: "r"},    // no phone number
	}
	for _, req := range cases {
		_, err := svc.Register(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrMissingField))
	}
}

func TestRegister_CreatesNewRecordWithDefaults(t *testing.T) {
	store := &fakeDeviceStore{}
	svc := NewService(store, 10)

	got, err := svc.Register(context.Background(), validReq("dev-1"))
	require.NoError(t, err)

	assert.Equal(t, "dev-1", got.DeviceID)
	assert.Equal(t, "reg-dev-1", got.RegistrationID)
	assert.Equal(t, domain.TypePush, got.Type)
	assert.Equal(t, domain.DefaultDeviceName, got.Name)
	assert.Nil(t, got.RegisteredAt, "a new record has never been re-registered")
	assert.Len(t, store.records, 1)
}

func TestRegister_ReRegisterUpdatesInPlace(t *testing.T) {
	store := &fakeDeviceStore{}
	svc := NewService(store, 10)

	_, err := svc.Register(context.Background(), validReq("dev-1"))
	require.NoError(t, err)

	req := validReq("dev-1")
	req.RegistrationID = "reg-rotated"
	req.PhoneNumber = "15005550007"
	req.Name = "Tablet"
	got, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, store.records, 1, "re-registration must not create a duplicate")
	assert.Equal(t, "reg-rotated", got.RegistrationID)
	assert.NotNil(t, got.RegisteredAt)
	assert.Equal(t, "15005550007", got.PhoneNumber)
	assert.Equal(t, "Tablet", got.Name)
}

func TestRegister_EvictsOldestAtCeiling(t *testing.T) {
	const ceiling = 3
	store := &fakeDeviceStore{}
	svc := NewService(store, ceiling)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < ceiling; i++ {
		_, err := svc.Register(context.Background(), validReq(fmt.Sprintf("dev-%d", i)))
		require.NoError(t, err)
		// Give each record a distinct timestamp; dev-0 is the oldest.
		ts := base.Add(time.Duration(i) * time.Hour)
		store.records[i].RegisteredAt = &ts
	}
	oldestID := store.records[0].DeviceID

	_, err := svc.Register(context.Background(), validReq("dev-new"))
	require.NoError(t, err)

	assert.Len(t, store.records, ceiling, "exactly N records remain after N+1 registrations")
	for _, r := range store.records {
		assert.NotEqual(t, oldestID, r.DeviceID, "the oldest record must be the evicted one")
	}
}

func TestRegister_EvictsNilTimestampFirst(t *testing.T) {
	const ceiling = 3
	store := &fakeDeviceStore{}
	svc := NewService(store, ceiling)

	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < ceiling; i++ {
		_, err := svc.Register(context.Background(), validReq(fmt.Sprintf("dev-%d", i)))
		require.NoError(t, err)
		if i != 1 {
			old := ts
			store.records[i].RegisteredAt = &old
		}
	}

	_, err := svc.Register(context.Background(), validReq("dev-new"))
	require.NoError(t, err)

	for _, r := range store.records {
		assert.NotEqual(t, "dev-1", r.DeviceID, "nil timestamp is treated as infinitely old")
	}
}

func TestRegister_EvictionFailureIsSwallowed(t *testing.T) {
	const ceiling = 1
	store := &fakeDeviceStore{}
	svc := NewService(store, ceiling)

	_, err := svc.Register(context.Background(), validReq("dev-0"))
	require.NoError(t, err)

	store.deleteErr = errors.New("store down")
	_, err = svc.Register(context.Background(), validReq("dev-1"))
	assert.NoError(t, err, "eviction failure must not block registration")
}

func TestUnregister_DeletesAllOwnerRecords(t *testing.T) {
	store := &fakeDeviceStore{}
	svc := NewService(store, 10)

	_, err := svc.Register(context.Background(), validReq("dev-0"))
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), validReq("dev-1"))
	require.NoError(t, err)

	svc.Unregister(context.Background(), "alice@example.com")
	assert.Empty(t, store.records)
}

func TestListDevices_StorageOrder(t *testing.T) {
	store := &fakeDeviceStore{}
	svc := NewService(store, 10)

	for _, id := range []string{"dev-b", "dev-a", "dev-c"} {
		_, err := svc.Register(context.Background(), validReq(id))
		require.NoError(t, err)
	}

	devices, err := svc.ListDevices(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "dev-b", devices[0].DeviceID)
}

func TestDeviceByID_ReturnsStoredRecord(t *testing.T) {
	store := &fakeDeviceStore{records: []*domain.DeviceRecord{
		{DeviceID: "dev-1", Owner: "alice@example.com", RegistrationID: "reg-9"},
	}}
	svc := NewService(store, 10)

	device, err := svc.DeviceByID(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "reg-9", device.RegistrationID)
}

func TestDeviceByID_Unknown(t *testing.T) {
	svc := NewService(&fakeDeviceStore{}, 10)

	_, err := svc.DeviceByID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLockOwner_StableAndBounded(t *testing.T) {
	svc := NewService(&fakeDeviceStore{}, 10).(*service)

	locks := make(map[*sync.Mutex]struct{})
	for i := 0; i < 1000; i++ {
		owner := fmt.Sprintf("owner-%d@example.com", i)
		first := svc.lockOwner(owner)
		assert.Same(t, first, svc.lockOwner(owner))
		locks[first] = struct{}{}
	}
	assert.LessOrEqual(t, len(locks), len(svc.ownerMu))
}
