package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entity names one remote collection.
type Entity string

const (
	EntityOrders    Entity = "orders"
	EntityCustomers Entity = "customers"
	EntityStores    Entity = "stores"
	EntityChannels  Entity = "channels"
)

var Entities = []Entity{EntityOrders, EntityCustomers, EntityStores, EntityChannels}

func ParseEntity(s string) (Entity, bool) {
	for _, e := range Entities {
		if string(e) == s {
			return e, true
		}
	}
	return "", false
}

type ChangeOp string

const (
	OpCreate   ChangeOp = "create"
	OpUpdate   ChangeOp = "update"
	OpDelete   ChangeOp = "delete"
	OpNote     ChangeOp = "note"
	OpFinalize ChangeOp = "finalize"
)

// ChangeEvent announces a write that the remote store accepted.
type ChangeEvent struct {
	ID       uuid.UUID `json:"id"`
	Entity   Entity    `json:"entity"`
	Op       ChangeOp  `json:"op"`
	RecordID int64     `json:"recordId,omitempty"`
	At       time.Time `json:"at"`
	Source   string    `json:"source"`
}

func NewChangeEvent(entity Entity, op ChangeOp, recordID int64, source string) ChangeEvent {
	return ChangeEvent{
		ID:       uuid.New(),
		Entity:   entity,
		Op:       op,
		RecordID: recordID,
		At:       time.Now().UTC(),
		Source:   source,
	}
}
