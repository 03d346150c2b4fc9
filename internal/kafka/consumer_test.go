package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaikyD/backoffice-dashboard/internal/domain"
)

type fakeReloader struct {
	source   string
	err      error
	reloaded []domain.Entity
}

func (f *fakeReloader) Reload(ctx context.Context, entity domain.Entity) error {
	f.reloaded = append(f.reloaded, entity)
	return f.err
}

func (f *fakeReloader) Source() string { return f.source }

func encode(t *testing.T, ev domain.ChangeEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleMessage_ReloadsNamedCollection(t *testing.T) {
	svc := &fakeReloader{source: "me"}
	ev := domain.NewChangeEvent(domain.EntityStores, domain.OpUpdate, 4, "other")

	got, err := handleMessage(context.Background(), svc, encode(t, ev))
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, []domain.Entity{domain.EntityStores}, svc.reloaded)
}

func TestHandleMessage_SkipsOwnEvents(t *testing.T) {
	svc := &fakeReloader{source: "me"}
	ev := domain.NewChangeEvent(domain.EntityOrders, domain.OpFinalize, 1, "me")

	_, err := handleMessage(context.Background(), svc, encode(t, ev))
	require.NoError(t, err)
	assert.Empty(t, svc.reloaded)
}

func TestHandleMessage_Invalid(t *testing.T) {
	svc := &fakeReloader{source: "me"}

	_, err := handleMessage(context.Background(), svc, []byte("{not json"))
	assert.True(t, errors.Is(err, errInvalidEvent))

	ev := domain.NewChangeEvent("invoices", domain.OpCreate, 0, "other")
	_, err = handleMessage(context.Background(), svc, encode(t, ev))
	assert.True(t, errors.Is(err, errInvalidEvent))

	assert.Empty(t, svc.reloaded)
}

func TestHandleMessage_ReloadFailureIsReturned(t *testing.T) {
	boom := errors.New("remote down")
	svc := &fakeReloader{source: "me", err: boom}
	ev := domain.NewChangeEvent(domain.EntityCustomers, domain.OpDelete, 2, "other")

	got, err := handleMessage(context.Background(), svc, encode(t, ev))
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, errInvalidEvent))
	assert.Equal(t, domain.EntityCustomers, got.Entity)
}
