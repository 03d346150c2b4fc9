package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/RaikyD/backoffice-dashboard/internal/application"
	"github.com/RaikyD/backoffice-dashboard/internal/domain"
	"github.com/RaikyD/backoffice-dashboard/internal/listview"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// entityCmd describes how one collection is listed on the terminal.
type entityCmd[T any] struct {
	entity  domain.Entity
	short   string
	view    func(d *application.Dashboard) *listview.View[T]
	fields  []listview.Field[T]
	headers []string
	row     func(T) []string
}

// command builds "<entity> list". Every filter field becomes a flag named
// after it; range fields get <name>From and <name>To.
func (e entityCmd[T]) command() *cobra.Command {
	var page, size int
	text := map[string]*string{}

	list := &cobra.Command{
		Use:   "list",
		Short: "List " + string(e.entity) + " matching the given filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			d, err := connect(ctx)
			if err != nil {
				return err
			}
			v := e.view(d)
			if err := v.Load(ctx); err != nil {
				return err
			}

			for _, f := range e.fields {
				val := listview.Text(*text[f.Name])
				if f.Kind == listview.KindRange {
					val = listview.Between(*text[f.Name+"From"], *text[f.Name+"To"])
				}
				if err := v.SetFilter(f.Name, val); err != nil {
					return err
				}
			}
			if size > 0 {
				v.SetPageSize(size)
			}
			v.SetPage(page - 1)

			render(cmd, e.headers, e.rows(v.VisibleRecords()))
			snap := v.Snapshot()
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf(
				"page %d/%d, %d matching of %d loaded", snap.Page+1, max(snap.Pages, 1), snap.Total, snap.Loaded)))
			return nil
		},
	}

	for _, f := range e.fields {
		if f.Kind == listview.KindRange {
			text[f.Name+"From"] = list.Flags().String(f.Name+"From", "", "earliest "+f.Name+" (YYYY-MM-DD)")
			text[f.Name+"To"] = list.Flags().String(f.Name+"To", "", "latest "+f.Name+" (YYYY-MM-DD)")
			continue
		}
		usage := f.Kind.String() + " filter on " + f.Name
		if len(f.Allowed) > 0 {
			usage += fmt.Sprintf(" %v", f.Allowed)
		}
		text[f.Name] = list.Flags().String(f.Name, "", usage)
	}
	list.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	list.Flags().IntVar(&size, "size", 0, "page size (default $PAGE_SIZE)")

	parent := &cobra.Command{Use: string(e.entity), Short: e.short}
	parent.AddCommand(list)
	return parent
}

func (e entityCmd[T]) rows(records []T) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		out = append(out, e.row(r))
	}
	return out
}

func render(cmd *cobra.Command, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no records"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(cmd.OutOrStdout(), t)
}

func ref(r *domain.Ref) string {
	if r == nil {
		return ""
	}
	return r.Nome
}

func deref[T ~string](s *T) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func ordersCmd() *cobra.Command {
	return entityCmd[domain.Order]{
		entity:  domain.EntityOrders,
		short:   "Orders (pedidos)",
		view:    func(d *application.Dashboard) *listview.View[domain.Order] { return d.Orders },
		fields:  application.OrderFields(time.Local),
		headers: []string{"Nº", "Prioridade", "Situação", "Motivo", "Cliente", "Loja", "Início"},
		row: func(o domain.Order) []string {
			situation := ""
			if o.Situation != nil {
				situation = o.Situation.Label()
			}
			reason := ""
			if o.Situacao != nil {
				reason = o.Situacao.Label()
			}
			return []string{o.NumeroPedido, o.Prioridade.Label(), situation, reason, ref(o.Cliente), ref(o.Loja), o.DataInicio}
		},
	}.command()
}

func customersCmd() *cobra.Command {
	return entityCmd[domain.Customer]{
		entity:  domain.EntityCustomers,
		short:   "Customers (clientes)",
		view:    func(d *application.Dashboard) *listview.View[domain.Customer] { return d.Customers },
		fields:  application.CustomerFields(),
		headers: []string{"ID", "Nome", "CPF"},
		row: func(c domain.Customer) []string {
			return []string{strconv.FormatInt(c.ID, 10), c.Nome, deref(c.CPF)}
		},
	}.command()
}

func storesCmd() *cobra.Command {
	return entityCmd[domain.Store]{
		entity:  domain.EntityStores,
		short:   "Stores (lojas)",
		view:    func(d *application.Dashboard) *listview.View[domain.Store] { return d.Stores },
		fields:  application.StoreFields(),
		headers: []string{"ID", "Nome", "Canal"},
		row: func(s domain.Store) []string {
			return []string{strconv.FormatInt(s.ID, 10), s.Nome, ref(s.Canal)}
		},
	}.command()
}

func channelsCmd() *cobra.Command {
	return entityCmd[domain.Channel]{
		entity:  domain.EntityChannels,
		short:   "Sales channels (canais)",
		view:    func(d *application.Dashboard) *listview.View[domain.Channel] { return d.Channels },
		fields:  application.ChannelFields(),
		headers: []string{"ID", "Nome", "Descrição", "Lojas"},
		row: func(c domain.Channel) []string {
			return []string{strconv.FormatInt(c.ID, 10), c.Nome, deref(c.Descricao), strconv.Itoa(len(c.Lojas))}
		},
	}.command()
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Load every collection and print the KPI cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			d, err := connect(ctx)
			if err != nil {
				return err
			}
			if err := d.LoadAll(ctx); err != nil {
				// partial data is still worth printing
				fmt.Fprintln(cmd.ErrOrStderr(), errStyle.Render(err.Error()))
			}

			s := d.Summary()
			render(cmd, []string{"Indicador", "Valor"}, [][]string{
				{"Pedidos", strconv.Itoa(s.Orders.Total)},
				{"Em andamento", strconv.Itoa(s.Orders.Open)},
				{"Finalizados", strconv.Itoa(s.Orders.Finished)},
				{"Atrasados", strconv.Itoa(s.Orders.Late)},
				{"Última semana", strconv.Itoa(s.Orders.LastWeek)},
				{"Clientes", strconv.Itoa(s.Customers)},
				{"Lojas", strconv.Itoa(s.Stores)},
				{"Canais", strconv.Itoa(s.Channels)},
			})
			render(cmd, []string{"Prioridade", "Pedidos"}, countRows(s.Orders.ByPriority, func(k string) string {
				return domain.Priority(k).Label()
			}))
			render(cmd, []string{"Motivo", "Pedidos"}, countRows(s.Orders.ByReason, func(k string) string {
				return domain.Reason(k).Label()
			}))
			return nil
		},
	}
}

func countRows(counts map[string]int, label func(string) string) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{label(k), strconv.Itoa(counts[k])})
	}
	return rows
}
