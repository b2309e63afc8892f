package listener

import (
	"container/list"
	"time"
)

// Sender identifies who authored an observed message.
type Sender string

const (
	SenderSelf         Sender = "self"
	SenderCounterparty Sender = "counterparty"
)

// MessageEvent is emitted when a contact's normalized label changes
// between polling ticks. Immutable once created.
type MessageEvent struct {
	ContactKey  string
	Sender      Sender
	Body        string
	UnreadCount int
	ObservedAt  time.Time
}

// DefaultMaxContacts bounds the reconciler's per-contact state so a
// long-running listener with a churning contact list keeps flat memory.
const DefaultMaxContacts = 1024

// Reconciler tracks the last-seen normalized label per contact and
// emits at most one MessageEvent per contact per tick. It is an
// explicit state object, not a process-wide singleton: each instance
// owns its map and can be discarded independently.
//
// Not safe for concurrent use; the polling loop is the single caller.
type Reconciler struct {
	states      map[string]*list.Element
	order       *list.List
	maxContacts int
	now         func() time.Time
}

type contactState struct {
	key     string
	stateID string
}

// NewReconciler creates a reconciler with the default contact cap.
func NewReconciler() *Reconciler {
	return &Reconciler{
		states:      make(map[string]*list.Element),
		order:       list.New(),
		maxContacts: DefaultMaxContacts,
		now:         time.Now,
	}
}

// Observe diffs one raw row label against the stored state for its
// contact. It returns nil when the label is unparseable, first-seen, or
// unchanged. On a change it updates the stored state and returns the
// event.
//
// Sender rule: a nonzero unread count means the counterparty wrote the
// message (receiving increments the badge); a zero count means we wrote
// it (sending clears the badge).
func (r *Reconciler) Observe(raw string) *MessageEvent {
	parsed := Parse(raw)
	if parsed == nil || parsed.ContactKey == "" {
		return nil
	}

	stateID := Normalize(raw)

	elem, seen := r.states[parsed.ContactKey]
	if !seen {
		// First sighting: record state without emitting, otherwise a
		// restart would replay every visible conversation as new mail.
		r.insert(parsed.ContactKey, stateID)
		return nil
	}

	st := elem.Value.(*contactState)
	r.order.MoveToFront(elem)
	if st.stateID == stateID {
		return nil
	}
	st.stateID = stateID

	sender := SenderSelf
	if parsed.UnreadCount > 0 {
		sender = SenderCounterparty
	}
	return &MessageEvent{
		ContactKey:  parsed.ContactKey,
		Sender:      sender,
		Body:        parsed.Body,
		UnreadCount: parsed.UnreadCount,
		ObservedAt:  r.now(),
	}
}

// Len reports how many contacts currently have stored state.
func (r *Reconciler) Len() int {
	return len(r.states)
}

func (r *Reconciler) insert(key, stateID string) {
	elem := r.order.PushFront(&contactState{key: key, stateID: stateID})
	r.states[key] = elem
	if r.order.Len() > r.maxContacts {
		oldest := r.order.Back()
		r.order.Remove(oldest)
		delete(r.states, oldest.Value.(*contactState).key)
	}
}
