package realtime

import (
	"encoding/json"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

// NotificationWindow is the number of notifications a mounted list keeps.
const NotificationWindow = 20

// Effect is what a consumer should do beyond replacing its state.
type Effect struct {
	// Alert holds a new notification to surface to the user.
	Alert *models.Notification
	// Refetch asks for a full reload; inserted complaints lack their joined fields.
	Refetch bool
}

// ReduceNotifications applies ev to a newest-first notification list.
func ReduceNotifications(state []models.Notification, ev Event) ([]models.Notification, Effect) {
	if ev.Entity != EntityNotification {
		return state, Effect{}
	}
	switch ev.Kind {
	case KindInserted:
		var n models.Notification
		if err := json.Unmarshal(ev.Record, &n); err != nil || n.ID == "" {
			return state, Effect{}
		}
		if indexOf(state, n.ID, notificationID) >= 0 {
			return state, Effect{}
		}
		next := make([]models.Notification, 0, len(state)+1)
		next = append(next, n)
		next = append(next, state...)
		if len(next) > NotificationWindow {
			next = next[:NotificationWindow]
		}
		return next, Effect{Alert: &n}
	case KindUpdated:
		return mergeByID(state, ev, notificationID), Effect{}
	case KindDeleted:
		return removeByID(state, ev.ID, notificationID), Effect{}
	}
	return state, Effect{}
}

// ReduceComplaints applies ev to a complaint list.
func ReduceComplaints(state []models.ComplaintRow, ev Event) ([]models.ComplaintRow, Effect) {
	if ev.Entity != EntityComplaint {
		return state, Effect{}
	}
	switch ev.Kind {
	case KindInserted:
		return state, Effect{Refetch: true}
	case KindUpdated:
		return mergeByID(state, ev, complaintID), Effect{}
	case KindDeleted:
		return removeByID(state, ev.ID, complaintID), Effect{}
	}
	return state, Effect{}
}

func notificationID(n models.Notification) string { return n.ID }
func complaintID(c models.ComplaintRow) string     { return c.ID }

func indexOf[T any](state []T, id string, idOf func(T) string) int {
	for i := range state {
		if idOf(state[i]) == id {
			return i
		}
	}
	return -1
}

// mergeByID overlays the event's top-level fields onto the matching record.
// Fields absent from the payload keep their previous values.
func mergeByID[T any](state []T, ev Event, idOf func(T) string) []T {
	i := indexOf(state, ev.ID, idOf)
	if i < 0 || len(ev.Record) == 0 {
		return state
	}
	merged, err := overlay(state[i], ev.Record)
	if err != nil {
		return state
	}
	next := make([]T, len(state))
	copy(next, state)
	next[i] = merged
	return next
}

func overlay[T any](current T, patch json.RawMessage) (T, error) {
	var out T
	base, err := json.Marshal(current)
	if err != nil {
		return out, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return out, err
	}
	changes := map[string]json.RawMessage{}
	if err := json.Unmarshal(patch, &changes); err != nil {
		return out, err
	}
	for k, v := range changes {
		fields[k] = v
	}
	combined, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(combined, &out)
	return out, err
}

func removeByID[T any](state []T, id string, idOf func(T) string) []T {
	if indexOf(state, id, idOf) < 0 {
		return state
	}
	next := make([]T, 0, len(state)-1)
	for _, item := range state {
		if idOf(item) != id {
			next = append(next, item)
		}
	}
	return next
}
