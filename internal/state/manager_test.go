package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nikbrunner/pm/internal/importer"
	"github.com/nikbrunner/pm/internal/logging"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/storage"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func newTestManager(t *testing.T, store storage.Storage) *Manager {
	t.Helper()
	m := NewManager(store, WithLogger(logging.Discard()))
	t.Cleanup(func() { m.Close() })
	return m
}

func persisted(t *testing.T, store storage.Storage) model.AppState {
	t.Helper()
	data, err := store.Get(context.Background(), storage.KeyAppData)
	assert.NilError(t, err)
	var s model.AppState
	assert.NilError(t, json.Unmarshal(data, &s))
	return s
}

func TestManager_LoadMissingKeepsDefaults(t *testing.T) {
	mem := storage.NewMemoryStorage()
	m := newTestManager(t, mem)

	assert.NilError(t, m.Load(context.Background()))
	assert.NilError(t, m.Flush(context.Background()))

	assert.DeepEqual(t, m.State(), model.NewAppState())
	assert.Equal(t, mem.Writes(), 0)
}

func TestManager_LoadRestoresWithoutWriting(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	blob := `{"folders":[{"id":"f1","name":"Work","prompts":[]}],` +
		`"selectedFolder":{"id":"f1","name":"Work","prompts":[]},` +
		`"currentTab":"prompts",` +
		`"settings":{"theme":"dark","language":"en","autoSave":true,"autoSyncInterval":5}}`
	assert.NilError(t, mem.Set(ctx, storage.KeyAppData, []byte(blob)))

	m := newTestManager(t, mem)
	assert.NilError(t, m.Load(ctx))
	assert.NilError(t, m.Flush(ctx))

	s := m.State()
	assert.Assert(t, is.Len(s.Folders, 1))
	assert.Equal(t, s.SelectedFolder.ID, "f1")
	assert.Equal(t, s.Settings.Theme, model.ThemeDark)
	assert.Equal(t, mem.Writes(), 1)
}

func TestManager_LoadInvalidData(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	assert.NilError(t, mem.Set(ctx, storage.KeyAppData, []byte(`"not an object"`)))

	m := newTestManager(t, mem)
	assert.Assert(t, m.Load(ctx) != nil)
	assert.DeepEqual(t, m.State(), model.NewAppState())
}

func TestManager_AutosaveConverges(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	m := newTestManager(t, mem)

	_, err := m.Dispatch(AddFolder{Folder: model.Folder{ID: "f1", Name: "Work"}})
	assert.NilError(t, err)
	for i := 0; i < 20; i++ {
		_, err := m.Dispatch(AddPrompt{FolderID: "f1", Prompt: model.NewPrompt(model.NewPromptParams{Title: "T"})})
		assert.NilError(t, err)
	}
	_, err = m.Dispatch(SelectFolder{FolderID: "f1"})
	assert.NilError(t, err)

	assert.NilError(t, m.Flush(ctx))

	assert.DeepEqual(t, persisted(t, mem), m.State())
	assert.Assert(t, mem.Writes() >= 1)
	assert.Assert(t, mem.Writes() <= 22)
}

func TestManager_AutosaveDisabled(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	m := newTestManager(t, mem)

	settings := model.DefaultSettings()
	settings.AutoSave = false
	_, err := m.Dispatch(UpdateSettings{Settings: settings})
	assert.NilError(t, err)
	_, err = m.Dispatch(AddFolder{Folder: model.Folder{ID: "f1", Name: "Work"}})
	assert.NilError(t, err)

	assert.NilError(t, m.Flush(ctx))
	assert.Equal(t, mem.Writes(), 0)

	// An explicit save writes regardless of the setting
	assert.NilError(t, m.Save(ctx))
	assert.Equal(t, mem.Writes(), 1)
	assert.DeepEqual(t, persisted(t, mem), m.State())
}

func TestManager_WriteFailureIsLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := NewManager(mem, WithLogger(logger))
	defer m.Close()

	injected := errors.New("quota exceeded")
	mem.SetError(injected)

	s, err := m.Dispatch(AddFolder{Folder: model.Folder{ID: "f1", Name: "Work"}})
	assert.NilError(t, err)
	assert.Assert(t, is.Len(s.Folders, 1))

	assert.ErrorIs(t, m.Flush(ctx), injected)
	assert.Assert(t, is.Contains(buf.String(), "save state failed"))

	// State is unaffected by the failed write
	assert.Assert(t, is.Len(m.State().Folders, 1))

	// Later writes succeed again once storage recovers
	mem.SetError(nil)
	_, err = m.Dispatch(SetCurrentTab{Tab: "prompts"})
	assert.NilError(t, err)
	assert.NilError(t, m.Flush(ctx))
	assert.DeepEqual(t, persisted(t, mem), m.State())
}

func TestManager_DispatchRejected(t *testing.T) {
	mem := storage.NewMemoryStorage()
	m := newTestManager(t, mem)

	_, err := m.Dispatch(DeleteFolder{FolderID: "missing"})
	assert.ErrorIs(t, err, model.ErrFolderNotFound)

	assert.NilError(t, m.Flush(context.Background()))
	assert.Equal(t, mem.Writes(), 0)
}

func TestManager_ImportInvalidLeavesStateUnchanged(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStorage())
	_, err := m.Dispatch(AddFolder{Folder: model.Folder{ID: "f1", Name: "Work"}})
	assert.NilError(t, err)
	before := m.State()

	err = m.Import([]byte(`{"folders": "not-an-array"}`))
	assert.ErrorIs(t, err, importer.ErrInvalidFormat)
	assert.DeepEqual(t, m.State(), before)
}

func TestManager_ImportKeepsMissingFields(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStorage())

	settings := model.DefaultSettings()
	settings.Theme = model.ThemeLight
	_, err := m.Dispatch(UpdateSettings{Settings: settings})
	assert.NilError(t, err)
	_, err = m.Dispatch(AddFolder{Folder: model.Folder{ID: "old", Name: "Old"}})
	assert.NilError(t, err)

	assert.NilError(t, m.Import([]byte(`{"folders":[{"id":"f1","name":"New","prompts":[]}]}`)))

	s := m.State()
	assert.Assert(t, is.Len(s.Folders, 1))
	assert.Equal(t, s.Folders[0].ID, "f1")
	assert.Equal(t, s.Settings.Theme, model.ThemeLight)
}

func TestManager_ExportImportRoundTrip(t *testing.T) {
	src := newTestManager(t, storage.NewMemoryStorage())
	_, err := src.Dispatch(AddFolder{Folder: model.Folder{ID: "f1", Name: "Work"}})
	assert.NilError(t, err)
	_, err = src.Dispatch(AddFolder{Folder: model.Folder{ID: "f2", Name: "Home"}})
	assert.NilError(t, err)
	_, err = src.Dispatch(AddPrompt{FolderID: "f2", Prompt: model.Prompt{ID: "p1", Title: "T", Content: "C", Tags: []string{"a"}}})
	assert.NilError(t, err)

	data, err := src.Export()
	assert.NilError(t, err)

	dst := newTestManager(t, storage.NewMemoryStorage())
	assert.NilError(t, dst.Import(data))

	assert.DeepEqual(t, dst.State().Folders, src.State().Folders)
}

func TestManager_Subscribe(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStorage())

	var mu sync.Mutex
	var seen []int
	unsubscribe := m.Subscribe(func(s model.AppState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, len(s.Folders))
	})

	_, err := m.Dispatch(AddFolder{Folder: model.Folder{ID: "f1"}})
	assert.NilError(t, err)
	_, err = m.Dispatch(AddFolder{Folder: model.Folder{ID: "f2"}})
	assert.NilError(t, err)

	unsubscribe()
	_, err = m.Dispatch(AddFolder{Folder: model.Folder{ID: "f3"}})
	assert.NilError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.DeepEqual(t, seen, []int{1, 2})
}

func TestManager_WatchStartsFromCurrentState(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStorage())

	_, err := m.Dispatch(AddFolder{Folder: model.Folder{ID: "f1"}})
	assert.NilError(t, err)

	var mu sync.Mutex
	var seen []int
	initial, unwatch := m.Watch(func(s model.AppState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, len(s.Folders))
	})
	defer unwatch()

	_, err = m.Dispatch(AddFolder{Folder: model.Folder{ID: "f2"}})
	assert.NilError(t, err)

	assert.Assert(t, is.Len(initial.Folders, 1))
	mu.Lock()
	defer mu.Unlock()
	assert.DeepEqual(t, seen, []int{2})
}

func TestManager_CloseFlushesAndRejects(t *testing.T) {
	mem := storage.NewMemoryStorage()
	m := NewManager(mem, WithLogger(logging.Discard()))

	_, err := m.Dispatch(AddFolder{Folder: model.Folder{ID: "f1", Name: "Work"}})
	assert.NilError(t, err)

	assert.NilError(t, m.Close())
	assert.Equal(t, persisted(t, mem).Folders[0].ID, "f1")

	_, err = m.Dispatch(AddFolder{Folder: model.Folder{ID: "f2"}})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Save(context.Background()), ErrClosed)

	// Closing twice is fine
	assert.NilError(t, m.Close())
}

// blockingStorage holds every Set until release is closed.
type blockingStorage struct {
	*storage.MemoryStorage
	release chan struct{}
}

func (s *blockingStorage) Set(ctx context.Context, key string, value []byte) error {
	<-s.release
	return s.MemoryStorage.Set(ctx, key, value)
}

func TestManager_FlushHonorsContext(t *testing.T) {
	store := &blockingStorage{MemoryStorage: storage.NewMemoryStorage(), release: make(chan struct{})}
	m := NewManager(store, WithLogger(logging.Discard()))

	_, err := m.Dispatch(AddFolder{Folder: model.Folder{ID: "f1"}})
	assert.NilError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Flush(ctx), context.DeadlineExceeded)

	close(store.release)
	assert.NilError(t, m.Flush(context.Background()))
	assert.NilError(t, m.Close())
	assert.Equal(t, store.Writes(), 1)
}
