package offline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	clientChannelBuffer = 16
	clientHeartbeat     = 30 * time.Second
)

// Сообщения между страницами и воркером.
const (
	MessageClearCache   = "CLEAR_CACHE"
	MessageCacheCleared = "CACHE_CLEARED"
)

// Message - управляющее сообщение {type: ...}.
type Message struct {
	Type string `json:"type"`
}

// Client - одна открытая страница, подписанная на сообщения воркера.
type Client struct {
	ID         string
	ch         chan Message
	controlled bool
}

// Messages возвращает канал сообщений клиента; он закрывается при Unregister.
func (c *Client) Messages() <-chan Message { return c.ch }

// Clients - реестр открытых страниц.
type Clients struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	claimed bool
}

func NewClients() *Clients {
	return &Clients{clients: make(map[*Client]struct{})}
}

// Register добавляет страницу. После Claim новые страницы сразу под управлением.
func (b *Clients) Register() *Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &Client{
		ID:         uuid.NewString(),
		ch:         make(chan Message, clientChannelBuffer),
		controlled: b.claimed,
	}
	b.clients[c] = struct{}{}
	return c
}

// Unregister удаляет страницу и закрывает ее канал.
func (b *Clients) Unregister(c *Client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.ch)
	}
	b.mu.Unlock()
}

// Claim берет под управление все открытые страницы без перезагрузки.
func (b *Clients) Claim() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.claimed = true
	for c := range b.clients {
		c.controlled = true
	}
	return len(b.clients)
}

// Release снимает управление (воркер удален).
func (b *Clients) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.claimed = false
	for c := range b.clients {
		c.controlled = false
	}
}

// PostMessage отправляет сообщение всем управляемым страницам и возвращает
// число получателей. Медленные клиенты пропускаются.
func (b *Clients) PostMessage(msg Message) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sent := 0
	for c := range b.clients {
		if !c.controlled {
			continue
		}
		select {
		case c.ch <- msg:
			sent++
		default:
		}
	}
	return sent
}

// Count возвращает число открытых и управляемых страниц.
func (b *Clients) Count() (total, controlled int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.clients {
		total++
		if c.controlled {
			controlled++
		}
	}
	return total, controlled
}

// ServeSSE держит поток событий для одной страницы.
func (b *Clients) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := b.Register()
	defer b.Unregister(c)

	fmt.Fprintf(w, ": client %s\n\n", c.ID)
	flusher.Flush()

	ticker := time.NewTicker(clientHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			payload, _ := json.Marshal(msg)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
