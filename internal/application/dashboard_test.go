package application

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaikyD/backoffice-dashboard/internal/domain"
	"github.com/RaikyD/backoffice-dashboard/internal/listview"
	"github.com/RaikyD/backoffice-dashboard/internal/remote"
	"github.com/RaikyD/backoffice-dashboard/internal/remote/remotetest"
	"github.com/RaikyD/backoffice-dashboard/internal/repository"
)

var brt = time.FixedZone("BRT", -3*60*60)

func ptr[T any](v T) *T { return &v }

type memSnapshots struct {
	mu     sync.Mutex
	saved  map[string][][]byte
	pruned map[string]int
	err    error
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{saved: map[string][][]byte{}, pruned: map[string]int{}}
}

func (m *memSnapshots) SaveSnapshot(ctx context.Context, entity string, count int, payload []byte) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return uuid.Nil, m.err
	}
	m.saved[entity] = append(m.saved[entity], payload)
	return uuid.New(), nil
}

func (m *memSnapshots) LatestSnapshot(ctx context.Context, entity string) (*repository.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	all := m.saved[entity]
	if len(all) == 0 {
		return nil, nil
	}
	return &repository.Snapshot{ID: uuid.New(), Entity: entity, TakenAt: time.Now(), Payload: all[len(all)-1]}, nil
}

func (m *memSnapshots) PruneSnapshots(ctx context.Context, entity string, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned[entity] = keep
	return 0, nil
}

type memEvents struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (m *memEvents) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memEvents) list() []domain.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChangeEvent(nil), m.events...)
}

func seedOrders() []any {
	open, late := domain.SituationInProgress, domain.SituationLate
	fin := domain.SituationFinished
	return []any{
		domain.Order{ID: 1, NumeroPedido: "PED-001", Prioridade: domain.PriorityHigh, Situacao: ptr(domain.ReasonReturn), Situation: &open,
			DataInicio: "2024-03-10T14:00:00Z", DataAtualizacao: "2024-03-11T09:00:00Z",
			ClienteID: 1, Cliente: &domain.Ref{ID: 1, Nome: "Maria Souza"}, LojaID: 1, Loja: &domain.Ref{ID: 1, Nome: "Loja Centro"}},
		domain.Order{ID: 2, NumeroPedido: "PED-002", Prioridade: domain.PriorityLow, Situacao: ptr(domain.ReasonMissingItem), Situation: &late,
			DataInicio: "2024-03-01T10:00:00Z", DataAtualizacao: "2024-03-02T10:00:00Z",
			ClienteID: 2, Cliente: &domain.Ref{ID: 2, Nome: "João Lima"}, LojaID: 2, Loja: &domain.Ref{ID: 2, Nome: "Loja Norte"}},
		domain.Order{ID: 3, NumeroPedido: "PED-003", Prioridade: domain.PriorityHigh, Situacao: ptr(domain.ReasonCancellation), Situation: &fin,
			DataInicio: "2024-03-12T02:00:00Z", DataAtualizacao: "2024-03-12T03:00:00Z", DataFinalizacao: ptr("2024-03-12T03:00:00Z"),
			ClienteID: 1, Cliente: &domain.Ref{ID: 1, Nome: "Maria Souza"}, LojaID: 2, Loja: &domain.Ref{ID: 2, Nome: "Loja Norte"}},
	}
}

func newTestDashboard(t *testing.T, o Options) (*Dashboard, *remotetest.Server) {
	t.Helper()

	srv := remotetest.NewServer()
	t.Cleanup(srv.Close)
	srv.Seed("pedidos", seedOrders()...)
	srv.Seed("clientes",
		domain.Customer{ID: 1, Nome: "Maria Souza", CPF: ptr("111.222.333-44")},
		domain.Customer{ID: 2, Nome: "João Lima"},
	)
	srv.Seed("lojas",
		domain.Store{ID: 1, Nome: "Loja Centro", CanalID: 1, Canal: &domain.Ref{ID: 1, Nome: "Site"}},
		domain.Store{ID: 2, Nome: "Loja Norte", CanalID: 2, Canal: &domain.Ref{ID: 2, Nome: "Marketplace"}},
	)
	srv.Seed("canais", domain.Channel{ID: 1, Nome: "Site"}, domain.Channel{ID: 2, Nome: "Marketplace"})

	client, err := remote.NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, client.Login(context.Background(), remotetest.Email, remotetest.Password))

	if o.Location == nil {
		o.Location = brt
	}
	if o.InstanceID == "" {
		o.InstanceID = "test-instance"
	}
	d, err := NewDashboard(client, o)
	require.NoError(t, err)
	return d, srv
}

func countCalls(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}

func TestLoadAll(t *testing.T) {
	d, _ := newTestDashboard(t, Options{})

	require.NoError(t, d.LoadAll(context.Background()))
	assert.Len(t, d.Orders.Records(), 3)
	assert.Len(t, d.Customers.Records(), 2)
	assert.Len(t, d.Stores.Records(), 2)
	assert.Len(t, d.Channels.Records(), 2)

	assert.Equal(t, "Loja Norte", d.Orders.Records()[1].Loja.Nome)
}

func TestLoadAll_OneCollectionFails(t *testing.T) {
	d, srv := newTestDashboard(t, Options{})
	require.NoError(t, d.LoadAll(context.Background()))

	srv.Fail("lojas", http.StatusInternalServerError)
	err := d.LoadAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrRejected))

	assert.Empty(t, d.Stores.Records())
	assert.Error(t, d.Stores.Err())
	assert.Len(t, d.Orders.Records(), 3)
	assert.NoError(t, d.Orders.Err())
}

func TestLoadAll_KeepOnError(t *testing.T) {
	d, srv := newTestDashboard(t, Options{LoadErrorPolicy: listview.KeepOnError})
	require.NoError(t, d.LoadAll(context.Background()))

	srv.Fail("lojas", http.StatusBadGateway)
	require.Error(t, d.Reload(context.Background(), domain.EntityStores))
	assert.Len(t, d.Stores.Records(), 2)
	assert.Error(t, d.Stores.Err())
}

func TestOrderFilters(t *testing.T) {
	d, _ := newTestDashboard(t, Options{})
	require.NoError(t, d.LoadAll(context.Background()))

	snap, err := d.Orders.Query(map[string]listview.Value{
		"prioridade": listview.Text("ALTA"),
		"loja":       listview.Text("norte"),
	}, listview.PageState{})
	require.NoError(t, err)
	require.Equal(t, 1, snap.Total)
	assert.Equal(t, "PED-003", snap.Items[0].NumeroPedido)

	// 2024-03-12T02:00Z is still March 11 in BRT
	snap, err = d.Orders.Query(map[string]listview.Value{
		"dataInicio": listview.Between("2024-03-11", "2024-03-11"),
	}, listview.PageState{})
	require.NoError(t, err)
	require.Equal(t, 1, snap.Total)
	assert.Equal(t, "PED-003", snap.Items[0].NumeroPedido)

	_, err = d.Orders.Query(map[string]listview.Value{"situacao": listview.Text("PERDIDO")}, listview.PageState{})
	assert.True(t, errors.Is(err, listview.ErrInvalidValue))

	require.NoError(t, d.Customers.SetFilter("cpf", listview.Text("111")))
	assert.Len(t, d.Customers.VisibleRecords(), 1)
}

func TestCreate_ReloadsAndPublishes(t *testing.T) {
	events := &memEvents{}
	d, srv := newTestDashboard(t, Options{Events: events})
	require.NoError(t, d.LoadAll(context.Background()))

	err := d.Create(context.Background(), domain.EntityCustomers, &domain.CustomerPayload{Nome: "Ana Reis", CPF: "999.888.777-66"})
	require.NoError(t, err)

	calls := srv.Calls()
	assert.Equal(t, 1, countCalls(calls, "POST /clientes/register"))
	assert.Equal(t, 2, countCalls(calls, "GET /clientes"))
	assert.Len(t, d.Customers.Records(), 3)

	evs := events.list()
	require.Len(t, evs, 1)
	assert.Equal(t, domain.EntityCustomers, evs[0].Entity)
	assert.Equal(t, domain.OpCreate, evs[0].Op)
	assert.Equal(t, "test-instance", evs[0].Source)
}

func TestCreate_ValidationBlocksRemoteCall(t *testing.T) {
	events := &memEvents{}
	d, srv := newTestDashboard(t, Options{Events: events})

	err := d.Create(context.Background(), domain.EntityStores, &domain.StorePayload{Nome: " "})
	var ve *listview.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "nome")
	assert.Contains(t, ve.Fields, "canalId")

	assert.Zero(t, countCalls(srv.Calls(), "POST /lojas"))
	assert.Empty(t, events.list())
}

func TestWriteRejected_NoReloadNoEvent(t *testing.T) {
	events := &memEvents{}
	d, srv := newTestDashboard(t, Options{Events: events})
	require.NoError(t, d.LoadAll(context.Background()))

	err := d.Remove(context.Background(), domain.EntityChannels, 404)
	var re *remote.Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusNotFound, re.Status)

	assert.Equal(t, 1, countCalls(srv.Calls(), "GET /canais"))
	assert.Len(t, d.Channels.Records(), 2)
	assert.Empty(t, events.list())
}

func TestUpdateAndRemove(t *testing.T) {
	d, srv := newTestDashboard(t, Options{})
	require.NoError(t, d.LoadAll(context.Background()))

	require.NoError(t, d.Update(context.Background(), domain.EntityChannels, 2, &domain.ChannelPayload{Nome: "Marketplace BR"}))
	assert.Equal(t, "Marketplace BR", d.Channels.Records()[1].Nome)

	require.NoError(t, d.Remove(context.Background(), domain.EntityChannels, 1))
	assert.Len(t, d.Channels.Records(), 1)
	assert.Len(t, srv.Records("canais"), 1)

	err := d.Update(context.Background(), domain.EntityChannels, 0, &domain.ChannelPayload{Nome: "x"})
	assert.True(t, errors.Is(err, listview.ErrValidation))
}

func TestOrderActions(t *testing.T) {
	events := &memEvents{}
	d, srv := newTestDashboard(t, Options{Events: events})
	require.NoError(t, d.LoadAll(context.Background()))

	require.NoError(t, d.AddOrderUpdate(context.Background(), 1, "  cliente contatado  "))
	require.NoError(t, d.FinalizeOrder(context.Background(), 1, "reembolso feito"))

	actions := srv.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, remotetest.Action{Collection: "pedidos", ID: 1, Name: "atualizacoes", Body: remotetest.Record{"descricao": "cliente contatado"}}, actions[0])
	assert.Equal(t, "finalizar", actions[1].Name)

	assert.True(t, d.Orders.Records()[0].Finished())
	evs := events.list()
	require.Len(t, evs, 2)
	assert.Equal(t, domain.OpNote, evs[0].Op)
	assert.Equal(t, domain.OpFinalize, evs[1].Op)
	assert.Equal(t, int64(1), evs[1].RecordID)
}

func TestOrderActions_Rejected(t *testing.T) {
	d, srv := newTestDashboard(t, Options{})

	err := d.FinalizeOrder(context.Background(), 1, "   ")
	assert.True(t, errors.Is(err, listview.ErrValidation))

	err = d.AddOrderUpdate(context.Background(), -3, "nota")
	var ve *listview.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "id")

	assert.Empty(t, srv.Actions())
}

func TestUnknownEntity(t *testing.T) {
	d, _ := newTestDashboard(t, Options{})

	_, err := d.View("invoices")
	assert.True(t, errors.Is(err, ErrUnknownEntity))
	assert.True(t, errors.Is(d.Reload(context.Background(), "invoices"), ErrUnknownEntity))
	assert.True(t, errors.Is(d.Create(context.Background(), "invoices", nil), ErrUnknownEntity))
}

func TestSnapshots_SavedOnLoadAndRestored(t *testing.T) {
	snaps := newMemSnapshots()
	d, _ := newTestDashboard(t, Options{Snapshots: snaps, SnapshotKeep: 5})
	require.NoError(t, d.LoadAll(context.Background()))

	for _, e := range domain.Entities {
		require.Len(t, snaps.saved[string(e)], 1, e)
		assert.Equal(t, 5, snaps.pruned[string(e)])
	}
	var orders []domain.Order
	require.NoError(t, json.Unmarshal(snaps.saved["orders"][0], &orders))
	assert.Len(t, orders, 3)

	// a fresh dashboard starts from the snapshots without touching the remote store
	fresh, srv := newTestDashboard(t, Options{Snapshots: snaps})
	require.NoError(t, fresh.RestoreCache(context.Background()))
	assert.Len(t, fresh.Orders.Records(), 3)
	assert.Len(t, fresh.Channels.Records(), 2)
	assert.Zero(t, countCalls(srv.Calls(), "GET /pedidos"))
}

func TestRestoreCache_RepoFailure(t *testing.T) {
	snaps := newMemSnapshots()
	snaps.err = errors.New("db down")
	d, _ := newTestDashboard(t, Options{Snapshots: snaps})

	err := d.RestoreCache(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore orders")
	assert.Empty(t, d.Orders.Records())
}

func TestRestoreCache_NoRepo(t *testing.T) {
	d, _ := newTestDashboard(t, Options{})
	assert.NoError(t, d.RestoreCache(context.Background()))
}
