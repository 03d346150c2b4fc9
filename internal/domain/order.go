package domain

import "time"

type Priority string

const (
	PriorityLow    Priority = "BAIXA"
	PriorityMedium Priority = "MEDIA"
	PriorityHigh   Priority = "ALTA"
)

// Reason is the motive an order was opened for.
type Reason string

const (
	ReasonAddressChange     Reason = "ALTERACAO_DE_ENDERECO"
	ReasonDeliveryDelay     Reason = "ATRASO_NA_ENTREGA"
	ReasonProductionDamage  Reason = "AVARIA_DE_PRODUCAO"
	ReasonBlockDelivery     Reason = "BARRAR_A_ENTREGA"
	ReasonCancellation      Reason = "CANCELAMENTO"
	ReasonReturn            Reason = "DEVOLUCAO"
	ReasonDeliveredNotRecvd Reason = "ENTREGUE_E_NAO_RECEBIDO"
	ReasonWrongAddress      Reason = "ERRO_DE_ENDERECO"
	ReasonMissingItem       Reason = "FALTANDO_ITEM"
)

// Situation is the lifecycle state the remote store derives for an order.
type Situation string

const (
	SituationInProgress Situation = "EM_ANDAMENTO"
	SituationFinished   Situation = "FINALIZADO"
	SituationLate       Situation = "ATRASADO"
)

var (
	Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}
	Reasons    = []Reason{
		ReasonAddressChange,
		ReasonDeliveryDelay,
		ReasonProductionDamage,
		ReasonBlockDelivery,
		ReasonCancellation,
		ReasonReturn,
		ReasonDeliveredNotRecvd,
		ReasonWrongAddress,
		ReasonMissingItem,
	}
	Situations = []Situation{SituationInProgress, SituationFinished, SituationLate}
)

var priorityLabels = map[Priority]string{
	PriorityLow:    "Baixa",
	PriorityMedium: "Média",
	PriorityHigh:   "Alta",
}

var reasonLabels = map[Reason]string{
	ReasonAddressChange:     "Alteração de endereço",
	ReasonDeliveryDelay:     "Atraso na entrega",
	ReasonProductionDamage:  "Avaria de produção",
	ReasonBlockDelivery:     "Barrar a entrega",
	ReasonCancellation:      "Cancelamento",
	ReasonReturn:            "Devolução",
	ReasonDeliveredNotRecvd: "Entregue e não recebido",
	ReasonWrongAddress:      "Erro de endereço",
	ReasonMissingItem:       "Faltando item",
}

var situationLabels = map[Situation]string{
	SituationInProgress: "Em andamento",
	SituationFinished:   "Finalizado",
	SituationLate:       "Atrasado",
}

func (p Priority) Label() string  { return labelOr(priorityLabels[p]) }
func (r Reason) Label() string    { return labelOr(reasonLabels[r]) }
func (s Situation) Label() string { return labelOr(situationLabels[s]) }

func labelOr(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// Ref is the denormalized {id, nome} pair the remote store embeds for relations.
type Ref struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

// Order is one pedido. Dates are kept as the raw strings the remote store
// sends so a single malformed value cannot fail a whole load.
type Order struct {
	ID              int64      `json:"id"`
	NumeroPedido    string     `json:"numeroPedido"`
	NumeroChamado   *string    `json:"numeroChamado,omitempty"`
	NumeroJit       *string    `json:"numeroJit,omitempty"`
	Descricao       *string    `json:"descricao,omitempty"`
	Resolucao       *string    `json:"resolucao,omitempty"`
	DataInicio      string     `json:"dataInicio"`
	DataAtualizacao string     `json:"dataAtualizacao"`
	DataFinalizacao *string    `json:"dataFinalizacao,omitempty"`
	Prioridade      Priority   `json:"prioridade"`
	Situacao        *Reason    `json:"situacao,omitempty"`
	Situation       *Situation `json:"situation,omitempty"`
	ClienteID       int64      `json:"clienteId"`
	Cliente         *Ref       `json:"cliente,omitempty"`
	LojaID          int64      `json:"lojaId"`
	Loja            *Ref       `json:"loja,omitempty"`
	CriadoPorID     *int64     `json:"criadoPorId,omitempty"`
	CriadoPor       *Ref       `json:"criadoPor,omitempty"`
}

func (o Order) StartedAt() (time.Time, bool) { return ParseInstant(o.DataInicio) }

// Finished reports whether the order has been closed, either by an explicit
// situation or by a finalization date.
func (o Order) Finished() bool {
	if o.Situation != nil && *o.Situation == SituationFinished {
		return true
	}
	return o.DataFinalizacao != nil && *o.DataFinalizacao != ""
}

// OrderPayload is the body of create and update requests for orders.
type OrderPayload struct {
	NumeroPedido  string   `json:"numeroPedido" validate:"required"`
	NumeroChamado string   `json:"numeroChamado,omitempty"`
	NumeroJit     string   `json:"numeroJit,omitempty"`
	Descricao     string   `json:"descricao" validate:"required"`
	Resolucao     string   `json:"resolucao,omitempty"`
	Prioridade    Priority `json:"prioridade" validate:"required,oneof=BAIXA MEDIA ALTA"`
	Situacao      Reason   `json:"situacao" validate:"required,oneof=ALTERACAO_DE_ENDERECO ATRASO_NA_ENTREGA AVARIA_DE_PRODUCAO BARRAR_A_ENTREGA CANCELAMENTO DEVOLUCAO ENTREGUE_E_NAO_RECEBIDO ERRO_DE_ENDERECO FALTANDO_ITEM"`
	ClienteID     int64    `json:"clienteId" validate:"required,gt=0"`
	LojaID        int64    `json:"lojaId" validate:"required,gt=0"`
	CriadoPorID   *int64   `json:"criadoPorId,omitempty" validate:"omitempty,gt=0"`
}

// OrderUpdatePayload appends a progress note to an order.
type OrderUpdatePayload struct {
	Descricao string `json:"descricao" validate:"required,notblank"`
}

// OrderFinalizePayload closes an order with its final resolution.
type OrderFinalizePayload struct {
	Resolucao string `json:"resolucao" validate:"required,notblank"`
}
