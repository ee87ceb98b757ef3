// Package workspace holds the per-session context: the board and
// programmer registries built from the loaded platforms, the current
// selection, and the observers notified when the selection changes.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/joeycumines/sketchctl/internal/board"
	"github.com/joeycumines/sketchctl/internal/project"
)

var (
	// ErrNotFound is returned when a board or programmer key is not
	// registered.
	ErrNotFound = errors.New("not found")
	// ErrNoBoard is returned by operations that need a current board.
	ErrNoBoard = errors.New("no board selected")
)

// Observer receives selection changes. Within one update BoardChanged always
// returns before ConfigChanged is called. Observers run synchronously, in
// subscription order, and must not mutate the workspace.
type Observer interface {
	BoardChanged(b *board.Board)
	ConfigChanged(b *board.Board)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnBoard  func(*board.Board)
	OnConfig func(*board.Board)
}

func (f ObserverFuncs) BoardChanged(b *board.Board) {
	if f.OnBoard != nil {
		f.OnBoard(b)
	}
}

func (f ObserverFuncs) ConfigChanged(b *board.Board) {
	if f.OnConfig != nil {
		f.OnConfig(b)
	}
}

// Workspace is created once per session and rebuilt wholesale by Reload.
type Workspace struct {
	root   string
	logger *slog.Logger

	mu              sync.RWMutex
	platforms       []*board.Platform
	boards          map[board.Key]*board.Board
	boardOrder      []board.Key
	programmers     map[string]*board.Programmer
	programmerOrder []string
	current         *board.Board
	programmer      *board.Programmer
	settings        project.Settings

	obsMu     sync.Mutex
	observers []*subscription
}

type subscription struct{ Observer }

// New creates an empty workspace rooted at root.
func New(root string, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		root:        root,
		logger:      logger,
		boards:      make(map[board.Key]*board.Board),
		programmers: make(map[string]*board.Programmer),
	}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// Reload replaces the registries with the installed boards and programmers
// of platforms. A board key seen twice keeps its first board. The current
// selection is carried over by key, configuration included, when it still
// exists; otherwise it is cleared.
func (w *Workspace) Reload(platforms []*board.Platform) {
	boards := make(map[board.Key]*board.Board)
	var boardOrder []board.Key
	programmers := make(map[string]*board.Programmer)
	var programmerOrder []string

	for _, p := range platforms {
		for _, b := range p.InstalledBoards {
			key := b.Key()
			if existing, ok := boards[key]; ok {
				w.logger.Warn("duplicate board key, keeping first",
					"board", key.String(),
					"kept", existing.Platform.RootBoardPath,
					"dropped", p.RootBoardPath)
				continue
			}
			boards[key] = b
			boardOrder = append(boardOrder, key)
		}
		for _, prog := range p.Programmers {
			key := prog.Key()
			if _, ok := programmers[key]; ok {
				continue
			}
			programmers[key] = prog
			programmerOrder = append(programmerOrder, key)
		}
	}

	w.mu.Lock()
	var current *board.Board
	if w.current != nil {
		if b, ok := boards[w.current.Key()]; ok {
			b.LoadConfig(w.current.CustomConfigString())
			current = b
		}
	}
	var programmer *board.Programmer
	if w.programmer != nil {
		programmer = programmers[w.programmer.Key()]
	}
	w.platforms = platforms
	w.boards, w.boardOrder = boards, boardOrder
	w.programmers, w.programmerOrder = programmers, programmerOrder
	w.current, w.programmer = current, programmer
	w.mu.Unlock()

	w.logger.Debug("workspace reloaded", "platforms", len(platforms), "boards", len(boardOrder), "programmers", len(programmerOrder))
}

// Platforms returns the platforms of the last Reload.
func (w *Workspace) Platforms() []*board.Platform {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.platforms)
}

// Boards returns every installed board in first-seen order.
func (w *Workspace) Boards() []*board.Board {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*board.Board, 0, len(w.boardOrder))
	for _, k := range w.boardOrder {
		out = append(out, w.boards[k])
	}
	return out
}

// Board looks up an installed board.
func (w *Workspace) Board(key board.Key) (*board.Board, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.boards[key]
	return b, ok
}

// Programmers returns every installed programmer in first-seen order.
func (w *Workspace) Programmers() []*board.Programmer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*board.Programmer, 0, len(w.programmerOrder))
	for _, k := range w.programmerOrder {
		out = append(out, w.programmers[k])
	}
	return out
}

// Programmer looks up an installed programmer by "package:id".
func (w *Workspace) Programmer(key string) (*board.Programmer, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.programmers[key]
	return p, ok
}

// CurrentBoard returns the selected board, or nil.
func (w *Workspace) CurrentBoard() *board.Board {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// CurrentProgrammer returns the selected programmer, or nil.
func (w *Workspace) CurrentProgrammer() *board.Programmer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.programmer
}

// Settings returns a copy of the project settings last applied.
func (w *Workspace) Settings() project.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.settings
	s.BuildPreferences = slices.Clone(s.BuildPreferences)
	return s
}

// UpdateSettings changes the in-memory project settings. The settings file
// is not touched; use PersistProject or project.Update for that.
func (w *Workspace) UpdateSettings(fn func(*project.Settings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.settings)
}

// Subscribe registers o and returns a function that removes it.
func (w *Workspace) Subscribe(o Observer) (unsubscribe func()) {
	sub := &subscription{o}
	w.obsMu.Lock()
	w.observers = append(w.observers, sub)
	w.obsMu.Unlock()
	return func() {
		w.obsMu.Lock()
		defer w.obsMu.Unlock()
		w.observers = slices.DeleteFunc(w.observers, func(s *subscription) bool { return s == sub })
	}
}

func (w *Workspace) snapshotObservers() []*subscription {
	w.obsMu.Lock()
	defer w.obsMu.Unlock()
	return slices.Clone(w.observers)
}

// notify delivers every BoardChanged before any ConfigChanged.
func (w *Workspace) notify(b *board.Board, boardChanged bool) {
	subs := w.snapshotObservers()
	if boardChanged {
		for _, s := range subs {
			s.BoardChanged(b)
		}
	}
	for _, s := range subs {
		s.ConfigChanged(b)
	}
}

// SelectBoard makes key the current board. Selecting the current board
// again is a no-op without notifications.
func (w *Workspace) SelectBoard(key board.Key) error {
	w.mu.Lock()
	b, ok := w.boards[key]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("board %s: %w", key, ErrNotFound)
	}
	if w.current == b {
		w.mu.Unlock()
		return nil
	}
	w.current = b
	w.mu.Unlock()

	w.logger.Info("board selected", "board", key.String())
	w.notify(b, true)
	return nil
}

// SelectProgrammer makes key ("package:id") the current programmer.
func (w *Workspace) SelectProgrammer(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.programmers[key]
	if !ok {
		return fmt.Errorf("programmer %s: %w", key, ErrNotFound)
	}
	w.programmer = p
	return nil
}

// UpdateConfig applies one option to the current board.
func (w *Workspace) UpdateConfig(configID, optionID string) (board.ConfigResult, error) {
	return w.mutateConfig(func(b *board.Board) board.ConfigResult {
		return b.UpdateConfig(configID, optionID)
	})
}

// LoadConfig applies a configuration string to the current board.
func (w *Workspace) LoadConfig(s string) (board.ConfigResult, error) {
	return w.mutateConfig(func(b *board.Board) board.ConfigResult {
		return b.LoadConfig(s)
	})
}

// ResetConfig restores the current board's defaults.
func (w *Workspace) ResetConfig() error {
	_, err := w.mutateConfig(func(b *board.Board) board.ConfigResult {
		before := b.CustomConfigString()
		b.ResetConfig()
		if b.CustomConfigString() == before {
			return board.ConfigSuccessNoChange
		}
		return board.ConfigSuccess
	})
	return err
}

// mutateConfig notifies ConfigChanged whenever the configuration string
// changed, including the partial application of a failed load.
func (w *Workspace) mutateConfig(fn func(*board.Board) board.ConfigResult) (board.ConfigResult, error) {
	w.mu.Lock()
	b := w.current
	if b == nil {
		w.mu.Unlock()
		return board.ConfigInvalidFormat, ErrNoBoard
	}
	before := b.CustomConfigString()
	res := fn(b)
	changed := b.CustomConfigString() != before
	w.mu.Unlock()

	if changed {
		w.notify(b, false)
	}
	return res, nil
}
