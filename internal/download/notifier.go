package download

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NoticeLevel is the display state of a download notification.
type NoticeLevel string

const (
	NoticeProgress NoticeLevel = "progress"
	NoticeSuccess  NoticeLevel = "success"
	NoticeError    NoticeLevel = "error"
)

// Notice is one transient download status notification.
type Notice struct {
	ID        string      `json:"id"`
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Notifier is an in-memory notification center. Every notice has its
// own dismissal timer, so concurrent downloads never shorten or cancel
// each other's notification lifetime.
type Notifier struct {
	dismissAfter time.Duration

	mu      sync.Mutex
	notices map[string]Notice
	timers  map[string]*time.Timer
}

// NewNotifier creates a Notifier whose notices auto-dismiss after the
// given duration.
// Parameters:
//   - dismissAfter: notice lifetime; zero or negative falls back to 5s.
// Returns:
//   - *Notifier: initialized notifier.
func NewNotifier(dismissAfter time.Duration) *Notifier {
	if dismissAfter <= 0 {
		dismissAfter = 5 * time.Second
	}
	return &Notifier{
		dismissAfter: dismissAfter,
		notices:      make(map[string]Notice),
		timers:       make(map[string]*time.Timer),
	}
}

// Push adds a new notice and schedules its dismissal.
// Parameters:
//   - level: display state.
//   - format: printf-style message.
// Returns:
//   - string: notice ID, usable with Update.
func (n *Notifier) Push(level NoticeLevel, format string, args ...interface{}) string {
	id := uuid.New().String()
	n.mu.Lock()
	n.notices[id] = Notice{
		ID:        id,
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
		CreatedAt: time.Now(),
	}
	n.timers[id] = time.AfterFunc(n.dismissAfter, func() { n.Dismiss(id) })
	n.mu.Unlock()
	return id
}

// Update transitions an existing notice to a new state and restarts
// its dismissal timer. Updating a notice that was already dismissed
// re-creates it under the same ID.
func (n *Notifier) Update(id string, level NoticeLevel, format string, args ...interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	notice, ok := n.notices[id]
	if !ok {
		notice = Notice{ID: id, CreatedAt: time.Now()}
	}
	notice.Level = level
	notice.Message = fmt.Sprintf(format, args...)
	n.notices[id] = notice

	if t, ok := n.timers[id]; ok {
		t.Stop()
	}
	n.timers[id] = time.AfterFunc(n.dismissAfter, func() { n.Dismiss(id) })
}

// Dismiss removes a notice immediately.
func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	delete(n.notices, id)
}

// Active returns the live notices, oldest first.
func (n *Notifier) Active() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notice, 0, len(n.notices))
	for _, notice := range n.notices {
		out = append(out, notice)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
