package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nikbrunner/pm/internal/exporter"
	"github.com/nikbrunner/pm/internal/importer"
	"github.com/nikbrunner/pm/internal/logging"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/storage"
)

// writeTimeout bounds a single appData write.
const writeTimeout = 10 * time.Second

// Listener is called with the new state after every accepted transition.
// Listeners run in transition order and must not call Dispatch.
type Listener func(model.AppState)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager owns the application state, applies actions through Reduce and
// mirrors the state to storage.
//
// Writes go through a single writer goroutine that always persists the
// latest state, so several pending autosaves collapse into one write.
type Manager struct {
	store  storage.Storage
	logger *slog.Logger

	mu     sync.RWMutex
	state  model.AppState
	closed bool

	notifyMu  sync.Mutex
	listeners map[int]Listener
	nextID    int

	// Write tickets: requested counts scheduled writes, written is the
	// highest ticket covered by a finished write.
	writeMu   sync.Mutex
	requested uint64
	written   uint64
	lastErr   error
	waiters   []waiter

	kick      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type waiter struct {
	ticket uint64
	ch     chan error
}

// NewManager creates a Manager holding the default state and starts its writer.
func NewManager(store storage.Storage, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		state:     model.NewAppState(),
		listeners: make(map[int]Listener),
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.With("component", "state")
	}

	m.wg.Add(1)
	go m.writer()

	return m
}

// Load restores the persisted state. Missing data keeps the default state.
// Loading never schedules a write.
func (m *Manager) Load(ctx context.Context) error {
	data, err := m.store.Get(ctx, storage.KeyAppData)
	if errors.Is(err, storage.ErrNotFound) {
		m.logger.Debug("no persisted state, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", storage.KeyAppData, err)
	}

	restored := model.NewAppState()
	if err := json.Unmarshal(data, &restored); err != nil {
		return fmt.Errorf("decode %s: %w", storage.KeyAppData, err)
	}

	_, err = m.apply(func(model.AppState) (Action, error) {
		return RestoreData{State: restored}, nil
	}, false)
	if err != nil {
		return err
	}

	m.logger.Debug("state loaded", "folders", len(restored.Folders))
	return nil
}

// State returns a copy of the current state.
func (m *Manager) State() model.AppState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Dispatch applies a and returns the new state. When the new state has
// autosave enabled a write is scheduled; its outcome is only logged.
func (m *Manager) Dispatch(a Action) (model.AppState, error) {
	return m.apply(func(model.AppState) (Action, error) {
		return a, nil
	}, true)
}

// Import validates a JSON document and replaces the state with it.
// Fields missing from the document keep their current values, except
// folders which are always replaced. Nothing changes on failure.
func (m *Manager) Import(data []byte) error {
	doc, err := importer.ParseState(data)
	if err != nil {
		return err
	}

	_, err = m.apply(func(cur model.AppState) (Action, error) {
		next := model.AppState{
			Folders:        doc.Folders,
			SelectedFolder: doc.SelectedFolder,
			CurrentTab:     cur.CurrentTab,
			Settings:       cur.Settings,
		}
		if doc.CurrentTab != nil {
			next.CurrentTab = *doc.CurrentTab
		}
		if doc.Settings != nil {
			next.Settings = *doc.Settings
		}
		return RestoreData{State: next}, nil
	}, true)
	return err
}

// Export returns the current state as pretty-printed JSON.
func (m *Manager) Export() ([]byte, error) {
	return exporter.ExportState(m.State())
}

// Subscribe registers l and returns a function removing it.
func (m *Manager) Subscribe(l Listener) func() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l

	return func() {
		m.notifyMu.Lock()
		defer m.notifyMu.Unlock()
		delete(m.listeners, id)
	}
}

// Watch registers l and returns the state it starts from. l receives every
// transition after that state and none before it.
func (m *Manager) Watch(l Listener) (model.AppState, func()) {
	m.mu.RLock()
	s := m.state.Clone()
	m.notifyMu.Lock()
	m.mu.RUnlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.notifyMu.Unlock()

	return s, func() {
		m.notifyMu.Lock()
		defer m.notifyMu.Unlock()
		delete(m.listeners, id)
	}
}

// Flush waits until every write scheduled before the call has finished and
// returns the error of the write that covered them.
func (m *Manager) Flush(ctx context.Context) error {
	m.writeMu.Lock()
	ticket := m.requested
	if ticket <= m.written {
		err := m.lastErr
		m.writeMu.Unlock()
		return err
	}
	ch := m.addWaiter(ticket)
	m.writeMu.Unlock()

	return m.wait(ctx, ch)
}

// Save writes the current state regardless of the autosave setting and
// waits for the write.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	m.writeMu.Lock()
	ticket := m.scheduleLocked()
	ch := m.addWaiter(ticket)
	m.writeMu.Unlock()
	m.mu.RUnlock()

	return m.wait(ctx, ch)
}

// Close flushes pending writes and stops the writer.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()

		err = m.Flush(context.Background())
		close(m.done)
		m.wg.Wait()
	})
	return err
}

// apply reduces the action built by next against the current state.
// next runs under the state lock.
func (m *Manager) apply(next func(model.AppState) (Action, error), autosave bool) (model.AppState, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return model.AppState{}, ErrClosed
	}

	a, err := next(m.state)
	if err != nil {
		m.mu.Unlock()
		return model.AppState{}, err
	}

	s, err := Reduce(m.state, a)
	if err != nil {
		m.mu.Unlock()
		return model.AppState{}, err
	}
	m.state = s

	if autosave && s.Settings.AutoSave {
		m.writeMu.Lock()
		m.scheduleLocked()
		m.writeMu.Unlock()
	}

	// Take the notify lock before releasing the state lock so listeners
	// observe transitions in order.
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	for _, l := range m.listeners {
		l(s.Clone())
	}

	return s.Clone(), nil
}

// scheduleLocked requests a write and returns its ticket. Caller holds writeMu.
func (m *Manager) scheduleLocked() uint64 {
	m.requested++
	select {
	case m.kick <- struct{}{}:
	default:
	}
	return m.requested
}

// addWaiter registers a waiter for ticket. Caller holds writeMu.
func (m *Manager) addWaiter(ticket uint64) chan error {
	ch := make(chan error, 1)
	m.waiters = append(m.waiters, waiter{ticket: ticket, ch: ch})
	return ch
}

func (m *Manager) wait(ctx context.Context, ch chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writer is the only goroutine writing appData.
func (m *Manager) writer() {
	defer m.wg.Done()
	for {
		select {
		case <-m.kick:
			m.drain()
		case <-m.done:
			m.drain()
			return
		}
	}
}

// drain writes until every requested ticket is covered.
func (m *Manager) drain() {
	for {
		m.writeMu.Lock()
		target := m.requested
		if target <= m.written {
			m.writeMu.Unlock()
			return
		}
		m.writeMu.Unlock()

		// Tickets are taken after the state they cover is in place, so this
		// snapshot covers every ticket up to target.
		snapshot := m.State()
		err := m.write(snapshot)

		m.writeMu.Lock()
		m.written = target
		m.lastErr = err
		pending := m.waiters[:0]
		for _, w := range m.waiters {
			if w.ticket <= target {
				w.ch <- err
				continue
			}
			pending = append(pending, w)
		}
		m.waiters = pending
		m.writeMu.Unlock()
	}
}

func (m *Manager) write(s model.AppState) error {
	data, err := json.Marshal(s)
	if err != nil {
		m.logger.Error("encode state failed", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := m.store.Set(ctx, storage.KeyAppData, data); err != nil {
		m.logger.Error("save state failed", "key", storage.KeyAppData, "error", err)
		return fmt.Errorf("write %s: %w", storage.KeyAppData, err)
	}

	m.logger.Debug("state saved", "bytes", len(data), "folders", len(s.Folders))
	return nil
}
