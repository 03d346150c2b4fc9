package application

import (
	"time"

	"github.com/RaikyD/backoffice-dashboard/internal/domain"
)

// Summary holds the KPI cards shown above the dashboard charts.
type Summary struct {
	Orders      OrderKPIs `json:"orders"`
	Customers   int       `json:"customers"`
	Stores      int       `json:"stores"`
	Channels    int       `json:"channels"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type OrderKPIs struct {
	Total       int            `json:"total"`
	Open        int            `json:"open"`
	Finished    int            `json:"finished"`
	Late        int            `json:"late"`
	LastWeek    int            `json:"lastWeek"`
	ByPriority  map[string]int `json:"byPriority"`
	ByReason    map[string]int `json:"byReason"`
	BySituation map[string]int `json:"bySituation"`
}

// Summary is computed from the cached collections only; it never calls the
// remote store.
func (d *Dashboard) Summary() Summary {
	now := d.now()
	return Summary{
		Orders:      orderKPIs(d.Orders.Records(), now),
		Customers:   len(d.Customers.Records()),
		Stores:      len(d.Stores.Records()),
		Channels:    len(d.Channels.Records()),
		GeneratedAt: now.UTC(),
	}
}

func orderKPIs(orders []domain.Order, now time.Time) OrderKPIs {
	k := OrderKPIs{
		Total:       len(orders),
		ByPriority:  make(map[string]int, len(domain.Priorities)),
		ByReason:    make(map[string]int, len(domain.Reasons)),
		BySituation: make(map[string]int, len(domain.Situations)),
	}
	for _, p := range domain.Priorities {
		k.ByPriority[string(p)] = 0
	}
	for _, r := range domain.Reasons {
		k.ByReason[string(r)] = 0
	}
	for _, s := range domain.Situations {
		k.BySituation[string(s)] = 0
	}

	weekAgo := now.Add(-7 * 24 * time.Hour)
	for _, o := range orders {
		if o.Prioridade != "" {
			k.ByPriority[string(o.Prioridade)]++
		}
		if o.Situacao != nil {
			k.ByReason[string(*o.Situacao)]++
		}
		if o.Situation != nil {
			k.BySituation[string(*o.Situation)]++
			if *o.Situation == domain.SituationLate {
				k.Late++
			}
		}
		if o.Finished() {
			k.Finished++
		} else {
			k.Open++
		}
		if started, ok := o.StartedAt(); ok && !started.Before(weekAgo) && !started.After(now) {
			k.LastWeek++
		}
	}
	return k
}
