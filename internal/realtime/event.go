package realtime

import (
	"context"
	"encoding/json"
	"time"
)

// Kind is the change that produced an event.
type Kind string

const (
	KindInserted Kind = "inserted"
	KindUpdated  Kind = "updated"
	KindDeleted  Kind = "deleted"
)

// Entity names the table an event refers to.
type Entity string

const (
	EntityNotification Entity = "notification"
	EntityComplaint    Entity = "complaint"
)

// Event is one row-level change. Record carries the row as written; for
// updates it may hold only the changed columns.
type Event struct {
	Kind    Kind            `json:"kind"`
	Entity  Entity          `json:"entity"`
	ID      string          `json:"id"`
	OwnerID string          `json:"owner_id,omitempty"`
	Record  json.RawMessage `json:"record,omitempty"`
	At      time.Time       `json:"at"`
}

func NewEvent(kind Kind, entity Entity, id, ownerID string, record interface{}) Event {
	var raw json.RawMessage
	if record != nil {
		b, _ := json.Marshal(record)
		raw = b
	}
	return Event{Kind: kind, Entity: entity, ID: id, OwnerID: ownerID, Record: raw, At: time.Now().UTC()}
}

// Filter selects the events a subscription receives.
type Filter func(Event) bool

// ForEntity passes every event of one entity.
func ForEntity(entity Entity) Filter {
	return func(ev Event) bool { return ev.Entity == entity }
}

// ForOwner passes events of one entity owned by ownerID.
func ForOwner(entity Entity, ownerID string) Filter {
	return func(ev Event) bool { return ev.Entity == entity && ev.OwnerID == ownerID }
}

// Bus is the change feed seen by writers and by stores.
type Bus interface {
	Publish(ctx context.Context, ev Event)
	Subscribe(filter Filter, buffer int) *Subscription
	Unsubscribe(sub *Subscription)
}
