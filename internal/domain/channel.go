package domain

// Channel is a sales channel (marketplace) grouping stores.
type Channel struct {
	ID        int64   `json:"id"`
	Nome      string  `json:"nome"`
	Descricao *string `json:"descricao,omitempty"`
	Lojas     []Ref   `json:"lojas,omitempty"`
}

type ChannelPayload struct {
	Nome      string `json:"nome" validate:"required,notblank"`
	Descricao string `json:"descricao,omitempty"`
}
