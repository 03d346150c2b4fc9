package domain

// Store is a loja; every store belongs to one sales channel.
type Store struct {
	ID      int64  `json:"id"`
	Nome    string `json:"nome"`
	CanalID int64  `json:"canalId"`
	Canal   *Ref   `json:"canal,omitempty"`
}

type StorePayload struct {
	Nome    string `json:"nome" validate:"required,notblank"`
	CanalID int64  `json:"canalId" validate:"required,gt=0"`
}
