// Package notify implements the read-side push channel: after every
// committed ledger mutation an event is fanned out to per-user subscribers,
// decoupling snapshot delivery from any particular transport.
package notify

import "sync"

// Event describes one committed ledger change. Subscribers re-read the
// store for the affected collections; events carry identifiers, not data.
type Event struct {
	UserID        string `json:"userId"`
	Kind          string `json:"kind"`
	TransactionID string `json:"transactionId,omitempty"`
	Month         string `json:"month,omitempty"`
}

const (
	KindTransactionRecorded = "transaction.recorded"
	KindTransactionDeleted  = "transaction.deleted"
	KindRecurringGenerated  = "recurring.generated"
)

// Notifier fans events out to channel subscribers keyed by user. Delivery is
// best effort: a subscriber that has fallen behind its buffer misses events
// rather than blocking the writer.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[int]chan Event
	next int
}

func New() *Notifier {
	return &Notifier{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registers for a user's events. The returned cancel func must be
// called to release the subscription; the channel is closed on cancel.
func (n *Notifier) Subscribe(userID string) (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, 16)
	id := n.next
	n.next++
	if n.subs[userID] == nil {
		n.subs[userID] = make(map[int]chan Event)
	}
	n.subs[userID][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[userID][id]; ok {
			delete(n.subs[userID], id)
			if len(n.subs[userID]) == 0 {
				delete(n.subs, userID)
			}
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of its user.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
