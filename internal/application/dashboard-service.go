package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RaikyD/backoffice-dashboard/internal/domain"
	"github.com/RaikyD/backoffice-dashboard/internal/listview"
	"github.com/RaikyD/backoffice-dashboard/internal/logger"
	"github.com/RaikyD/backoffice-dashboard/internal/remote"
	"github.com/RaikyD/backoffice-dashboard/internal/repository"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownEntity = errors.New("unknown entity")

// ChangePublisher announces accepted writes to other dashboard instances.
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev domain.ChangeEvent) error
}

// EntityView is the type-erased surface of one listview.View.
type EntityView interface {
	Name() string
	Load(ctx context.Context) error
	Create(ctx context.Context, payload any) error
	Update(ctx context.Context, id int64, payload any) error
	Remove(ctx context.Context, id int64) error
	Loading() bool
	Err() error
}

type Options struct {
	PageSize        int
	LoadErrorPolicy listview.LoadErrorPolicy
	StaleLoadGuard  bool
	Location        *time.Location

	Snapshots    repository.SnapshotRepo
	SnapshotKeep int
	Events       ChangePublisher
	InstanceID   string
}

// Dashboard owns one cached view per remote collection.
type Dashboard struct {
	Orders    *listview.View[domain.Order]
	Customers *listview.View[domain.Customer]
	Stores    *listview.View[domain.Store]
	Channels  *listview.View[domain.Channel]

	orders    *remote.Resource[domain.Order]
	snapshots repository.SnapshotRepo
	keep      int
	events    ChangePublisher
	source    string
	now       func() time.Time

	mu    sync.RWMutex
	views map[domain.Entity]EntityView
}

func NewDashboard(client *remote.Client, o Options) (*Dashboard, error) {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.SnapshotKeep <= 0 {
		o.SnapshotKeep = 20
	}

	common := []listview.Option{
		listview.WithPageSize(o.PageSize),
		listview.WithLoadErrorPolicy(o.LoadErrorPolicy),
		listview.WithStaleLoadGuard(o.StaleLoadGuard),
		listview.WithLocation(o.Location),
		listview.WithValidator(func(p any) map[string]string { return domain.Validate(p) }),
		listview.WithLogger(logger.L()),
	}

	d := &Dashboard{
		orders:    remote.NewResource[domain.Order](client, remote.OrdersEndpoint),
		snapshots: o.Snapshots,
		keep:      o.SnapshotKeep,
		events:    o.Events,
		source:    o.InstanceID,
		now:       time.Now,
	}

	var err error
	if d.Orders, err = listview.New(string(domain.EntityOrders), listview.Store[domain.Order](d.orders), OrderFields(o.Location), common...); err != nil {
		return nil, err
	}
	customers := remote.NewResource[domain.Customer](client, remote.CustomersEndpoint)
	if d.Customers, err = listview.New(string(domain.EntityCustomers), listview.Store[domain.Customer](customers), CustomerFields(), common...); err != nil {
		return nil, err
	}
	stores := remote.NewResource[domain.Store](client, remote.StoresEndpoint)
	if d.Stores, err = listview.New(string(domain.EntityStores), listview.Store[domain.Store](stores), StoreFields(), common...); err != nil {
		return nil, err
	}
	channels := remote.NewResource[domain.Channel](client, remote.ChannelsEndpoint)
	if d.Channels, err = listview.New(string(domain.EntityChannels), listview.Store[domain.Channel](channels), ChannelFields(), common...); err != nil {
		return nil, err
	}

	d.views = map[domain.Entity]EntityView{
		domain.EntityOrders:    d.Orders,
		domain.EntityCustomers: d.Customers,
		domain.EntityStores:    d.Stores,
		domain.EntityChannels:  d.Channels,
	}

	if d.snapshots != nil {
		persistOnLoad(d, domain.EntityOrders, d.Orders)
		persistOnLoad(d, domain.EntityCustomers, d.Customers)
		persistOnLoad(d, domain.EntityStores, d.Stores)
		persistOnLoad(d, domain.EntityChannels, d.Channels)
	}
	return d, nil
}

func (d *Dashboard) View(entity domain.Entity) (EntityView, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.views[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	return v, nil
}

// LoadAll refreshes every collection concurrently. One failing collection
// does not stop the others; the failures are joined.
func (d *Dashboard) LoadAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, entity := range domain.Entities {
		v, _ := d.View(entity)
		g.Go(func() error {
			if err := v.Load(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (d *Dashboard) Reload(ctx context.Context, entity domain.Entity) error {
	v, err := d.View(entity)
	if err != nil {
		return err
	}
	return v.Load(ctx)
}

func (d *Dashboard) Create(ctx context.Context, entity domain.Entity, payload any) error {
	v, err := d.View(entity)
	if err != nil {
		return err
	}
	if err := v.Create(ctx, payload); err != nil {
		return err
	}
	d.publish(ctx, entity, domain.OpCreate, 0)
	return nil
}

func (d *Dashboard) Update(ctx context.Context, entity domain.Entity, id int64, payload any) error {
	v, err := d.View(entity)
	if err != nil {
		return err
	}
	if err := v.Update(ctx, id, payload); err != nil {
		return err
	}
	d.publish(ctx, entity, domain.OpUpdate, id)
	return nil
}

func (d *Dashboard) Remove(ctx context.Context, entity domain.Entity, id int64) error {
	v, err := d.View(entity)
	if err != nil {
		return err
	}
	if err := v.Remove(ctx, id); err != nil {
		return err
	}
	d.publish(ctx, entity, domain.OpDelete, id)
	return nil
}

// AddOrderUpdate appends a progress note to an order.
func (d *Dashboard) AddOrderUpdate(ctx context.Context, id int64, text string) error {
	payload := domain.OrderUpdatePayload{Descricao: strings.TrimSpace(text)}
	if err := d.orderAction(ctx, id, "atualizacoes", "add update", payload); err != nil {
		return err
	}
	d.publish(ctx, domain.EntityOrders, domain.OpNote, id)
	return nil
}

// FinalizeOrder closes an order with its resolution.
func (d *Dashboard) FinalizeOrder(ctx context.Context, id int64, resolution string) error {
	payload := domain.OrderFinalizePayload{Resolucao: strings.TrimSpace(resolution)}
	if err := d.orderAction(ctx, id, "finalizar", "finalize", payload); err != nil {
		return err
	}
	d.publish(ctx, domain.EntityOrders, domain.OpFinalize, id)
	return nil
}

func (d *Dashboard) orderAction(ctx context.Context, id int64, action, op string, payload any) error {
	if id <= 0 {
		return &listview.ValidationError{Op: op + " orders", Fields: map[string]string{"id": "must be positive"}}
	}
	if err := d.Orders.Check(op, payload); err != nil {
		return err
	}
	return d.Orders.Mutate(ctx, op, func(ctx context.Context) error {
		return d.orders.Post(ctx, id, action, payload)
	})
}

func (d *Dashboard) publish(ctx context.Context, entity domain.Entity, op domain.ChangeOp, id int64) {
	if d.events == nil {
		return
	}
	ev := domain.NewChangeEvent(entity, op, id, d.source)
	if err := d.events.PublishChange(ctx, ev); err != nil {
		logger.Warn("publish change failed", "entity", entity, "op", op, "err", err)
	}
}

// Source identifies this instance on the change feed.
func (d *Dashboard) Source() string { return d.source }

// RestoreCache seeds every view from its newest persisted snapshot so the
// dashboard has data before the first remote load completes.
func (d *Dashboard) RestoreCache(ctx context.Context) error {
	if d.snapshots == nil {
		return nil
	}
	return errors.Join(
		restore(ctx, d.snapshots, domain.EntityOrders, d.Orders),
		restore(ctx, d.snapshots, domain.EntityCustomers, d.Customers),
		restore(ctx, d.snapshots, domain.EntityStores, d.Stores),
		restore(ctx, d.snapshots, domain.EntityChannels, d.Channels),
	)
}

func restore[T any](ctx context.Context, repo repository.SnapshotRepo, entity domain.Entity, v *listview.View[T]) error {
	snap, err := repo.LatestSnapshot(ctx, string(entity))
	if err != nil {
		return fmt.Errorf("restore %s: %w", entity, err)
	}
	if snap == nil {
		return nil
	}
	var records []T
	if err := json.Unmarshal(snap.Payload, &records); err != nil {
		logger.Warn("failed to unmarshal snapshot; skip", "entity", entity, "snapshot", snap.ID, "err", err)
		return nil
	}
	v.Restore(records)
	logger.Info("cache restored", "entity", entity, "records", len(records), "taken_at", snap.TakenAt)
	return nil
}

func persistOnLoad[T any](d *Dashboard, entity domain.Entity, v *listview.View[T]) {
	v.OnLoad(func(records []T) {
		payload, err := json.Marshal(records)
		if err != nil {
			logger.Warn("snapshot encode failed", "entity", entity, "err", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := d.snapshots.SaveSnapshot(ctx, string(entity), len(records), payload); err != nil {
			logger.Warn("snapshot save failed", "entity", entity, "err", err)
			return
		}
		if _, err := d.snapshots.PruneSnapshots(ctx, string(entity), d.keep); err != nil {
			logger.Warn("snapshot prune failed", "entity", entity, "err", err)
		}
	})
}
