// Package notify implements the live notification set: a generic,
// severity-tagged sink whose entries expire after a fixed TTL.
package notify

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// DefaultTTL is the lifetime of a notification when none is configured.
const DefaultTTL = 5 * time.Second

var (
	// ErrClosed is returned by Raise once the notifier has been closed.
	ErrClosed = errors.New("notify: closed")
	// ErrNotFound is returned when dismissing an unknown or expired notification.
	ErrNotFound = errors.New("notify: not found")
)

// Severity tags a notification for rendering.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Valid reports whether the severity is one of the known values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeveritySuccess, SeverityError:
		return true
	}
	return false
}

// Alert is the input to Raise. Code and Subject are opaque labels set by the
// producer; the notifier only stores them.
type Alert struct {
	Message  string
	Severity Severity
	Code     string
	Subject  string
}

// Notification is an immutable entry of the live set.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Code      string    `json:"code,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventKind names a notification lifecycle transition.
type EventKind string

const (
	EventRaised    EventKind = "raised"
	EventExpired   EventKind = "expired"
	EventDismissed EventKind = "dismissed"
)

// Event is delivered to listeners after each transition.
type Event struct {
	Kind         EventKind    `json:"kind"`
	Notification Notification `json:"notification"`
}

// Listener receives lifecycle events. Listeners are invoked synchronously
// outside the notifier lock and must not block.
type Listener func(Event)

// Notifier holds the live notification set.
type Notifier struct {
	mu          sync.RWMutex
	now         func() time.Time
	idGenerator func() string
	ttl         time.Duration
	closed      bool
	entries     map[string]Notification

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New constructs a notifier. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration, idGenerator func() string, now func() time.Time) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &Notifier{
		now:         now,
		idGenerator: idGenerator,
		ttl:         ttl,
		entries:     make(map[string]Notification),
	}
}

// TTL returns the configured lifetime.
func (n *Notifier) TTL() time.Duration {
	return n.ttl
}

// Subscribe registers a listener for lifecycle events.
func (n *Notifier) Subscribe(listener Listener) {
	if n == nil || listener == nil {
		return
	}
	n.listenersMu.Lock()
	n.listeners = append(n.listeners, listener)
	n.listenersMu.Unlock()
}

// Raise adds a notification and returns its id.
func (n *Notifier) Raise(alert Alert) (string, error) {
	if n == nil {
		return "", ErrClosed
	}
	severity := alert.Severity
	if !severity.Valid() {
		severity = SeverityInfo
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return "", ErrClosed
	}
	created := n.now()
	notification := Notification{
		ID:        n.idGenerator(),
		Message:   alert.Message,
		Severity:  severity,
		Code:      alert.Code,
		Subject:   alert.Subject,
		CreatedAt: created,
		ExpiresAt: created.Add(n.ttl),
	}
	n.entries[notification.ID] = notification
	n.mu.Unlock()

	n.publish(Event{Kind: EventRaised, Notification: notification})
	return notification.ID, nil
}

// Sweep removes every notification with ExpiresAt at or before now and
// returns how many were removed.
func (n *Notifier) Sweep(now time.Time) int {
	if n == nil {
		return 0
	}
	n.mu.Lock()
	expired := n.cleanupLocked(now)
	n.mu.Unlock()

	for _, notification := range expired {
		n.publish(Event{Kind: EventExpired, Notification: notification})
	}
	return len(expired)
}

// Dismiss removes a notification before its TTL elapses.
func (n *Notifier) Dismiss(id string) error {
	if n == nil {
		return ErrNotFound
	}
	n.mu.Lock()
	notification, ok := n.entries[id]
	if ok {
		delete(n.entries, id)
	}
	n.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	n.publish(Event{Kind: EventDismissed, Notification: notification})
	return nil
}

// Active lists notifications still live at now, oldest first. Entries whose
// expiry has passed are hidden even if no sweep has removed them yet.
func (n *Notifier) Active(now time.Time) []Notification {
	if n == nil {
		return nil
	}
	n.mu.RLock()
	defer n.mu.RUnlock()

	list := make([]Notification, 0, len(n.entries))
	for _, notification := range n.entries {
		if notification.ExpiresAt.After(now) {
			list = append(list, notification)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// Close disables further raises. Existing entries remain queryable.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}

func (n *Notifier) cleanupLocked(now time.Time) []Notification {
	var expired []Notification
	for id, notification := range n.entries {
		if !notification.ExpiresAt.After(now) {
			expired = append(expired, notification)
			delete(n.entries, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	return expired
}

func (n *Notifier) publish(event Event) {
	n.listenersMu.RLock()
	listeners := make([]Listener, len(n.listeners))
	copy(listeners, n.listeners)
	n.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}
