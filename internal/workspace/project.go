package workspace

import (
	"fmt"

	"github.com/joeycumines/sketchctl/internal/board"
	"github.com/joeycumines/sketchctl/internal/project"
)

// ApplyProject adopts s as the project settings and selects the board,
// configuration and programmer it names. Problems never fail the call:
// they come back as warnings for the user. An invalid configuration is
// replaced by the board defaults, and s.Configuration is rewritten to the
// normalized string.
func (w *Workspace) ApplyProject(s *project.Settings) (warnings []string) {
	if s.Board != "" {
		warnings = append(warnings, w.applyBoard(s)...)
	}
	if s.Programmer != "" {
		if err := w.SelectProgrammer(s.Programmer); err != nil {
			warnings = append(warnings, fmt.Sprintf("Programmer %q from %s is not installed.", s.Programmer, project.FileName))
		}
	}

	w.mu.Lock()
	w.settings = *s
	w.mu.Unlock()
	return warnings
}

func (w *Workspace) applyBoard(s *project.Settings) []string {
	key, suffix, err := board.ParseKey(s.Board)
	if err != nil {
		return []string{fmt.Sprintf("Invalid board %q in %s: %v", s.Board, project.FileName, err)}
	}
	if err := w.SelectBoard(key); err != nil {
		return []string{fmt.Sprintf("Board %s from %s is not installed.", key, project.FileName)}
	}

	config := s.Configuration
	if config == "" {
		config = suffix
	}
	res, err := w.LoadConfig(config)
	if err != nil {
		return []string{err.Error()}
	}
	if res.OK() {
		return nil
	}

	if err := w.ResetConfig(); err != nil {
		return []string{err.Error()}
	}
	b := w.CurrentBoard()
	s.Configuration = b.CustomConfigString()
	return []string{fmt.Sprintf("Invalid board configuration %q for %s (%s); using defaults %q.", config, key, res, s.Configuration)}
}

// PersistProject writes the current board, configuration and programmer
// into the settings file, leaving every other field as found on disk.
func (w *Workspace) PersistProject() error {
	b := w.CurrentBoard()
	p := w.CurrentProgrammer()
	err := project.Update(w.root, func(s *project.Settings) error {
		if b != nil {
			s.Board = b.Key().String()
			s.Configuration = b.CustomConfigString()
		}
		if p != nil {
			s.Programmer = p.Key()
		}
		w.mu.Lock()
		w.settings = *s
		w.mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist project settings: %w", err)
	}
	return nil
}

// Open loads the project settings under the workspace root and applies them.
func (w *Workspace) Open() ([]string, error) {
	s, err := project.Load(w.root)
	if err != nil {
		return nil, err
	}
	return w.ApplyProject(s), nil
}
