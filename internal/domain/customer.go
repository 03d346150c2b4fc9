package domain

type Customer struct {
	ID   int64   `json:"id"`
	Nome string  `json:"nome"`
	CPF  *string `json:"cpf,omitempty"`
}

type CustomerPayload struct {
	Nome string `json:"nome" validate:"required,notblank"`
	CPF  string `json:"cpf" validate:"required,notblank"`
}
