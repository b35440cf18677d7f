package notify

import (
	"sync"

	"github.com/yourusername/study-engine/internal/models"
)

// hub owns the publish channel fan-out. Each subscriber holds its own
// buffered channel (its cursor is the last id it has seen; re-delivery
// after reconnect is the subscriber's concern). A subscriber that
// cannot keep up is dropped — the client reconnects.
type hub struct {
	mu     sync.Mutex
	nextID int64
	subs   map[int64]chan *models.Notification
}

const subscriberBuffer = 16

func newHub() *hub {
	return &hub{subs: map[int64]chan *models.Notification{}}
}

func (h *hub) subscribe() *models.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan *models.Notification, subscriberBuffer)
	h.subs[h.nextID] = ch

	return &models.Subscription{ID: h.nextID, C: ch}
}

func (h *hub) unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

// publish delivers FIFO per subscriber; a full buffer drops that
// subscriber. Only notifications created after a subscription began are
// seen, because a new subscriber's channel starts empty.
func (h *hub) publish(n *models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			close(ch)
			delete(h.subs, id)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
