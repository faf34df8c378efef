package manager

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/okservice/repairdesk/internal/db"
)

const clientBuffer = 16

// Event is the JSON payload pushed to dashboard subscribers for every new request.
type Event struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Problem   string    `json:"problem"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// SSEBroker fans new-request events out to connected dashboards. Slow
// clients lose messages rather than blocking intake.
type SSEBroker struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

func NewSSEBroker() *SSEBroker {
	return &SSEBroker{
		clients: make(map[chan string]struct{}),
	}
}

func (b *SSEBroker) Subscribe() chan string {
	ch := make(chan string, clientBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *SSEBroker) Unsubscribe(ch chan string) {
	b.mu.Lock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Clients is the number of connected subscribers.
func (b *SSEBroker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *SSEBroker) Publish(req db.Request) {
	payload, err := json.Marshal(Event{
		ID:        req.ID,
		Name:      req.Name,
		Phone:     req.Phone,
		Problem:   req.Problem,
		Source:    string(req.Source),
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		return
	}
	msg := string(payload)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}
