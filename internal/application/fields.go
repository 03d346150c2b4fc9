package application

import (
	"time"

	"github.com/RaikyD/backoffice-dashboard/internal/domain"
	"github.com/RaikyD/backoffice-dashboard/internal/listview"
)

func refName(r *domain.Ref) (string, bool) {
	if r == nil {
		return "", false
	}
	return r.Nome, true
}

func stringsOf[E ~string](vals []E) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

// OrderFields is the closed filter set of the orders table. Zone-less
// timestamps are read in loc.
func OrderFields(loc *time.Location) []listview.Field[domain.Order] {
	return []listview.Field[domain.Order]{
		listview.TextField("numeroPedido", func(o domain.Order) (string, bool) {
			return o.NumeroPedido, o.NumeroPedido != ""
		}),
		listview.ExactField("prioridade", func(o domain.Order) (string, bool) {
			return string(o.Prioridade), o.Prioridade != ""
		}, stringsOf(domain.Priorities)...),
		listview.ExactField("situacao", func(o domain.Order) (string, bool) {
			if o.Situacao == nil {
				return "", false
			}
			return string(*o.Situacao), true
		}, stringsOf(domain.Reasons)...),
		listview.TextField("cliente", func(o domain.Order) (string, bool) { return refName(o.Cliente) }),
		listview.TextField("loja", func(o domain.Order) (string, bool) { return refName(o.Loja) }),
		listview.TextField("criadoPor", func(o domain.Order) (string, bool) { return refName(o.CriadoPor) }),
		listview.RangeField("dataInicio", func(o domain.Order) (time.Time, bool) { return domain.ParseInstantIn(o.DataInicio, loc) }),
		listview.RangeField("dataAtualizacao", func(o domain.Order) (time.Time, bool) { return domain.ParseInstantIn(o.DataAtualizacao, loc) }),
	}
}

func CustomerFields() []listview.Field[domain.Customer] {
	return []listview.Field[domain.Customer]{
		listview.TextField("nome", func(c domain.Customer) (string, bool) { return c.Nome, true }),
		listview.TextField("cpf", func(c domain.Customer) (string, bool) {
			if c.CPF == nil {
				return "", false
			}
			return *c.CPF, true
		}),
	}
}

func StoreFields() []listview.Field[domain.Store] {
	return []listview.Field[domain.Store]{
		listview.TextField("nome", func(s domain.Store) (string, bool) { return s.Nome, true }),
		listview.TextField("canal", func(s domain.Store) (string, bool) { return refName(s.Canal) }),
	}
}

func ChannelFields() []listview.Field[domain.Channel] {
	return []listview.Field[domain.Channel]{
		listview.TextField("nome", func(c domain.Channel) (string, bool) { return c.Nome, true }),
	}
}
