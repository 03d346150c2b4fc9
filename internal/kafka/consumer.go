package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/RaikyD/backoffice-dashboard/internal/domain"
	"github.com/RaikyD/backoffice-dashboard/internal/logger"
	"github.com/segmentio/kafka-go"
)

type ConsumerConfig struct {
	Brokers string
	Topic   string
	GroupID string
}

// Reloader is the part of the dashboard the change feed drives.
type Reloader interface {
	Reload(ctx context.Context, entity domain.Entity) error
	Source() string
}

var errInvalidEvent = errors.New("invalid change event")

// StartConsumer follows the change feed and reloads the collection named by
// each event that another instance published.
func StartConsumer(ctx context.Context, svc Reloader, cfg ConsumerConfig) (*kafka.Reader, error) {
	brokers := strings.Split(cfg.Brokers, ",")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  0,
		StartOffset:     kafka.LastOffset,
		ReadLagInterval: -1,
	})

	logger.Info("kafka consumer starting", "brokers", cfg.Brokers, "topic", cfg.Topic, "group", cfg.GroupID)

	go func() {
		defer r.Close()

		backoff := time.Millisecond * 300
		for {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("kafka fetch error", "err", err)
				time.Sleep(backoff)
				continue
			}

			ev, err := handleMessage(ctx, svc, m.Value)
			switch {
			case errors.Is(err, errInvalidEvent):
				logger.Warn("kafka invalid event. skip and commit", "offset", m.Offset, "err", err)
			case err != nil:
				// the next change or a manual reload recovers; the feed does not retry
				logger.Warn("reload from change feed failed", "entity", ev.Entity, "err", err)
			}

			if err := r.CommitMessages(ctx, m); err != nil {
				logger.Warn("[kafka] commit failed", "err", err)
			}
		}
	}()
	return r, nil
}

// handleMessage decodes one change event and reloads its collection unless
// this instance published it.
func handleMessage(ctx context.Context, svc Reloader, value []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return ev, errors.Join(errInvalidEvent, err)
	}
	if _, ok := domain.ParseEntity(string(ev.Entity)); !ok {
		return ev, errors.Join(errInvalidEvent, errors.New("unknown entity "+string(ev.Entity)))
	}
	if ev.Source != "" && ev.Source == svc.Source() {
		return ev, nil
	}

	logger.Debug("change received", "entity", ev.Entity, "op", ev.Op, "record", ev.RecordID, "source", ev.Source)
	return ev, svc.Reload(ctx, ev.Entity)
}
