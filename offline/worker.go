// Package offline - офлайн-кэш оболочки приложения: http.RoundTripper,
// который стоит между страницей и сетью для одного источника (origin).
//
// Жизненный цикл: Install кэширует корневой документ и сразу переходит к
// активации, Activate удаляет кэши других версий и берет страницы под
// управление, сообщение CLEAR_CACHE сбрасывает все.
package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.alis.build/alog"
)

const (
	// DefaultVersion - имя кэша текущей версии оболочки.
	DefaultVersion = "app-v3"
	// DefaultLimit - максимум записей в кэше версии.
	DefaultLimit = 50
	// CacheHeader помечает ответы, отданные из кэша.
	CacheHeader = "X-Offline-Cache"
)

// State - состояние воркера.
type State string

const (
	StateParsed     State = "parsed"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// ErrUnknownMessage - воркер не знает такого типа сообщения.
var ErrUnknownMessage = errors.New("unknown worker message")

// Worker перехватывает запросы к своему источнику.
type Worker struct {
	storage      *CacheStorage
	next         http.RoundTripper
	origin       *url.URL
	version      string
	limit        int
	clients      *Clients
	registration *Registration

	mu    sync.Mutex
	state State
}

// WorkerOption настраивает Worker.
type WorkerOption func(*Worker)

func WithVersion(v string) WorkerOption { return func(w *Worker) { w.version = v } }

func WithLimit(n int) WorkerOption { return func(w *Worker) { w.limit = n } }

// WithTransport задает сеть, в которую уходят промахи кэша.
func WithTransport(rt http.RoundTripper) WorkerOption { return func(w *Worker) { w.next = rt } }

func WithClients(c *Clients) WorkerOption { return func(w *Worker) { w.clients = c } }

// NewWorker создает воркер для origin (например, "http://127.0.0.1:5173").
func NewWorker(storage *CacheStorage, origin string, opts ...WorkerOption) (*Worker, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("NewWorker: неверный origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("NewWorker: origin %q должен содержать схему и хост", origin)
	}
	w := &Worker{
		storage: storage,
		next:    http.DefaultTransport,
		origin:  &url.URL{Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Host)},
		version: DefaultVersion,
		limit:   DefaultLimit,
		clients: NewClients(),
		state:   StateParsed,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.limit <= 0 {
		return nil, fmt.Errorf("NewWorker: лимит кэша должен быть положительным, получено %d", w.limit)
	}
	w.registration = NewRegistration(w.origin.String() + "/")
	return w, nil
}

func (w *Worker) Version() string { return w.version }

func (w *Worker) Limit() int { return w.limit }

// Origin возвращает обслуживаемый источник без завершающего слэша.
func (w *Worker) Origin() string { return w.origin.String() }

func (w *Worker) Clients() *Clients { return w.clients }

func (w *Worker) Registration() *Registration { return w.registration }

func (w *Worker) Storage() *CacheStorage { return w.storage }

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) rootKey() string {
	return w.origin.String() + "/"
}

// Install заранее кэширует корневой документ в кэш версии.
// Ожидание старых экземпляров пропускается: воркер сразу готов к Activate.
func (w *Worker) Install(ctx context.Context) error {
	w.setState(StateInstalling)
	w.registration.Register()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.rootKey(), nil)
	if err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("Install: %w", err)
	}
	resp, err := w.next.RoundTrip(req)
	if err != nil {
		// Источник недоступен, но эта версия уже была установлена раньше:
		// работаем из сохраненного кэша.
		if w.installedBefore(ctx) {
			w.setState(StateInstalled)
			alog.Warnf(ctx, "Offline worker %s: источник недоступен (%v), используется сохраненный кэш", w.version, err)
			return nil
		}
		w.setState(StateRedundant)
		return fmt.Errorf("Install: не удалось загрузить %s: %w", w.rootKey(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		w.setState(StateRedundant)
		return fmt.Errorf("Install: %s ответил %d", w.rootKey(), resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("Install: чтение %s: %w", w.rootKey(), err)
	}

	cache, err := w.storage.Open(ctx, w.version)
	if err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("Install: %w", err)
	}
	if err := cache.Put(ctx, w.rootKey(), CachedResponse{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}); err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("Install: %w", err)
	}
	w.setState(StateInstalled)
	alog.Infof(ctx, "Offline worker %s installed", w.version)
	return nil
}

// installedBefore сообщает, что кэш текущей версии существует и содержит корень.
func (w *Worker) installedBefore(ctx context.Context) bool {
	ok, err := w.storage.Has(ctx, w.version)
	if err != nil || !ok {
		return false
	}
	cache, err := w.storage.Open(ctx, w.version)
	if err != nil {
		return false
	}
	root, err := cache.Match(ctx, w.rootKey())
	return err == nil && root != nil
}

// Activate удаляет кэши всех других версий и берет открытые страницы под управление.
func (w *Worker) Activate(ctx context.Context) error {
	w.setState(StateActivating)
	names, err := w.storage.Names(ctx)
	if err != nil {
		return fmt.Errorf("Activate: %w", err)
	}
	for _, name := range names {
		if name == w.version {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("Activate: %w", err)
		}
		alog.Infof(ctx, "Offline worker: удален старый кэш %s", name)
	}
	claimed := w.clients.Claim()
	w.setState(StateActivated)
	alog.Debugf(ctx, "Offline worker %s activated, клиентов: %d", w.version, claimed)
	return nil
}

// HandleMessage обрабатывает управляющее сообщение страницы.
func (w *Worker) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Type {
	case MessageClearCache:
		return w.clearAll(ctx)
	default:
		return fmt.Errorf("HandleMessage: %q: %w", msg.Type, ErrUnknownMessage)
	}
}

// clearAll удаляет все кэши, снимает регистрацию и уведомляет страницы.
func (w *Worker) clearAll(ctx context.Context) error {
	names, err := w.storage.Names(ctx)
	if err != nil {
		return fmt.Errorf("clearAll: %w", err)
	}
	for _, name := range names {
		if _, err := w.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("clearAll: %w", err)
		}
	}
	w.registration.Unregister()
	w.setState(StateRedundant)
	notified := w.clients.PostMessage(Message{Type: MessageCacheCleared})
	w.clients.Release()
	alog.Infof(ctx, "Offline worker: удалено кэшей %d, уведомлено страниц %d", len(names), notified)
	return nil
}

func (w *Worker) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, w.origin.Scheme) && strings.EqualFold(u.Host, w.origin.Host)
}

// controlling сообщает, перехватывает ли воркер запросы.
func (w *Worker) controlling() bool {
	return w.registration.Active() && w.State() == StateActivated
}

// RoundTrip: чужие источники и не-GET идут в сеть как есть; для своих GET
// сначала кэш, затем сеть (ответ 200 копируется в кэш), при обрыве сети -
// закэшированный корневой документ.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	if !w.sameOrigin(req.URL) || !w.controlling() || req.Method != http.MethodGet {
		return w.next.RoundTrip(req)
	}
	ctx := req.Context()
	key := RequestKey(req.URL)

	cached, err := w.storage.Match(ctx, key)
	if err != nil {
		alog.Warnf(ctx, "Offline worker: match %s: %v", key, err)
	}
	if cached != nil {
		resp := cached.Response(req)
		resp.Header.Set(CacheHeader, "hit")
		return resp, nil
	}

	resp, netErr := w.next.RoundTrip(req)
	if netErr != nil {
		fallback, err := w.storage.Match(ctx, w.rootKey())
		if err != nil || fallback == nil {
			return nil, netErr
		}
		alog.Debugf(ctx, "Offline worker: сеть недоступна, отдаем %s вместо %s", w.rootKey(), key)
		out := fallback.Response(req)
		out.Header.Set(CacheHeader, "fallback")
		return out, nil
	}

	if resp.StatusCode == http.StatusOK {
		if err := w.store(ctx, key, resp); err != nil {
			alog.Warnf(ctx, "Offline worker: не удалось сохранить %s: %v", key, err)
		}
	}
	return resp, nil
}

// store копирует тело ответа в кэш версии, вытесняя при заполнении самую
// старую запись. Вызывающему возвращается нетронутая копия тела.
func (w *Worker) store(ctx context.Context, key string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("store: чтение тела: %w", err)
	}

	cache, err := w.storage.Open(ctx, w.version)
	if err != nil {
		return err
	}
	existing, err := cache.Match(ctx, key)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := w.evict(ctx, cache); err != nil {
			return err
		}
	}
	return cache.Put(ctx, key, CachedResponse{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body})
}

// evict освобождает место под одну запись: удаляет самые старые по порядку вставки.
func (w *Worker) evict(ctx context.Context, cache *Cache) error {
	count, err := cache.Count(ctx)
	if err != nil {
		return err
	}
	if count < w.limit {
		return nil
	}
	keys, err := cache.Keys(ctx)
	if err != nil {
		return err
	}
	n := count - w.limit + 1
	if n > len(keys) {
		n = len(keys)
	}
	for _, key := range keys[:n] {
		if _, err := cache.Delete(ctx, key); err != nil {
			return err
		}
		alog.Debugf(ctx, "Offline worker: вытеснен %s", key)
	}
	return nil
}
