package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/sketchctl/internal/board"
	"github.com/joeycumines/sketchctl/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const avrBoards = `uno.name=Arduino Uno
uno.build.mcu=atmega328p
menu.cpu=Processor
nano.name=Arduino Nano
nano.menu.cpu.atmega328=ATmega328P
nano.menu.cpu.atmega328old=ATmega328P (Old Bootloader)
nano.menu.cpu.atmega168=ATmega168
`

func avrPlatform(root string) *board.Platform {
	p := &board.Platform{PackageName: "arduino", Architecture: "avr", RootBoardPath: root}
	p.InstalledBoards = board.ParseBoards(avrBoards, p)
	p.Programmers = board.ParseProgrammers("avrisp.name=AVR ISP\nusbasp.name=USBasp\n", p)
	return p
}

func newWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w := New(t.TempDir(), nil)
	w.Reload([]*board.Platform{avrPlatform("/hw/arduino/avr")})
	return w
}

var (
	unoKey  = board.Key{Package: "arduino", Architecture: "avr", Board: "uno"}
	nanoKey = board.Key{Package: "arduino", Architecture: "avr", Board: "nano"}
)

type event struct {
	kind  string
	board string
	tag   string
}

func recorder(events *[]event, tag string) Observer {
	return ObserverFuncs{
		OnBoard: func(b *board.Board) {
			*events = append(*events, event{"board", b.Key().String(), tag})
		},
		OnConfig: func(b *board.Board) {
			*events = append(*events, event{"config", b.BuildConfigString(), tag})
		},
	}
}

func TestReload_RegistriesInFirstSeenOrder(t *testing.T) {
	t.Parallel()
	w := newWorkspace(t)

	var keys []string
	for _, b := range w.Boards() {
		keys = append(keys, b.Key().String())
	}
	assert.Equal(t, []string{"arduino:avr:uno", "arduino:avr:nano"}, keys)

	var progs []string
	for _, p := range w.Programmers() {
		progs = append(progs, p.Key())
	}
	assert.Equal(t, []string{"arduino:avrisp", "arduino:usbasp"}, progs)

	b, ok := w.Board(nanoKey)
	require.True(t, ok)
	assert.Equal(t, "Arduino Nano", b.Name())
	_, ok = w.Programmer("arduino:usbasp")
	assert.True(t, ok)
	assert.Len(t, w.Platforms(), 1)
}

func TestReload_DuplicateKeyKeepsFirst(t *testing.T) {
	t.Parallel()
	w := New(t.TempDir(), nil)
	first := avrPlatform("/bundled/avr")
	second := avrPlatform("/sketchbook/hardware/avr")
	w.Reload([]*board.Platform{first, second})

	assert.Len(t, w.Boards(), 2)
	b, _ := w.Board(unoKey)
	assert.Same(t, first, b.Platform)
}

func TestReload_CarriesSelectionByKey(t *testing.T) {
	t.Parallel()
	w := newWorkspace(t)
	require.NoError(t, w.SelectBoard(nanoKey))
	_, err := w.LoadConfig("cpu=atmega168")
	require.NoError(t, err)
	require.NoError(t, w.SelectProgrammer("arduino:usbasp"))

	w.Reload([]*board.Platform{avrPlatform("/hw/arduino/avr")})

	cur := w.CurrentBoard()
	require.NotNil(t, cur)
	assert.Equal(t, "arduino:avr:nano:cpu=atmega168", cur.BuildConfigString())
	require.NotNil(t, w.CurrentProgrammer())
	assert.Equal(t, "arduino:usbasp", w.CurrentProgrammer().Key())

	w.Reload(nil)
	assert.Nil(t, w.CurrentBoard())
	assert.Nil(t, w.CurrentProgrammer())
	assert.Empty(t, w.Boards())
}

func TestSelectBoard_NotifiesBoardThenConfig(t *testing.T) {
	t.Parallel()
	w := newWorkspace(t)
	var events []event
	w.Subscribe(recorder(&events, "a"))
	unsubscribe := w.Subscribe(recorder(&events, "b"))

	require.NoError(t, w.SelectBoard(nanoKey))
	assert.Equal(t, []event{
		{"board", "arduino:avr:nano", "a"},
		{"board", "arduino:avr:nano", "b"},
		{"config", "arduino:avr:nano:cpu=atmega328", "a"},
		{"config", "arduino:avr:nano:cpu=atmega328", "b"},
	}, events)

	events = nil
	require.NoError(t, w.SelectBoard(nanoKey))
	assert.Empty(t, events, "reselecting the current board is silent")

	unsubscribe()
	require.NoError(t, w.SelectBoard(unoKey))
	assert.Equal(t, []event{
		{"board", "arduino:avr:uno", "a"},
		{"config", "arduino:avr:uno", "a"},
	}, events)
}

func TestSelectBoard_Unknown(t *testing.T) {
	t.Parallel()
	w := newWorkspace(t)
	err := w.SelectBoard(board.Key{Package: "x", Architecture: "y", Board: "z"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, w.CurrentBoard())
	assert.ErrorIs(t, w.SelectProgrammer("arduino:missing"), ErrNotFound)
}

func TestConfigMutations(t *testing.T) {
	t.Parallel()
	w := newWorkspace(t)

	_, err := w.UpdateConfig("cpu", "atmega168")
	assert.ErrorIs(t, err, ErrNoBoard)

	require.NoError(t, w.SelectBoard(nanoKey))
	var events []event
	w.Subscribe(recorder(&events, "x"))

	res, err := w.UpdateConfig("cpu", "atmega168")
	require.NoError(t, err)
	assert.Equal(t, board.ConfigSuccess, res)

	res, err = w.UpdateConfig("cpu", "atmega168")
	require.NoError(t, err)
	assert.Equal(t, board.ConfigSuccessNoChange, res)

	res, err = w.UpdateConfig("cpu", "nope")
	require.NoError(t, err)
	assert.Equal(t, board.ConfigInvalidOptionID, res)

	res, err = w.LoadConfig("bogus")
	require.NoError(t, err)
	assert.Equal(t, board.ConfigInvalidFormat, res)

	require.NoError(t, w.ResetConfig())
	require.NoError(t, w.ResetConfig())

	assert.Equal(t, []event{
		{"config", "arduino:avr:nano:cpu=atmega168", "x"},
		{"config", "arduino:avr:nano:cpu=atmega328", "x"},
	}, events, "only actual changes notify, and never BoardChanged")
}

func TestApplyProject(t *testing.T) {
	t.Parallel()

	t.Run("valid configuration", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t)
		s := &project.Settings{Board: "arduino:avr:nano", Configuration: "cpu=atmega328old", Programmer: "arduino:avrisp", Port: "COM4"}
		assert.Empty(t, w.ApplyProject(s))
		assert.Equal(t, "arduino:avr:nano:cpu=atmega328old", w.CurrentBoard().BuildConfigString())
		assert.Equal(t, "arduino:avrisp", w.CurrentProgrammer().Key())
		assert.Equal(t, "COM4", w.Settings().Port)
	})

	t.Run("configuration from board suffix", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t)
		assert.Empty(t, w.ApplyProject(&project.Settings{Board: "arduino:avr:nano:cpu=atmega168"}))
		assert.Equal(t, "arduino:avr:nano:cpu=atmega168", w.CurrentBoard().BuildConfigString())
	})

	t.Run("invalid configuration falls back to defaults", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t)
		s := &project.Settings{Board: "arduino:avr:nano", Configuration: "cpu=atmega168,speed=fast"}
		warnings := w.ApplyProject(s)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "invalid config id")
		assert.Equal(t, "cpu=atmega328", s.Configuration)
		assert.Equal(t, "arduino:avr:nano:cpu=atmega328", w.CurrentBoard().BuildConfigString())
		assert.Equal(t, "cpu=atmega328", w.Settings().Configuration)
	})

	t.Run("unknown board and programmer", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t)
		warnings := w.ApplyProject(&project.Settings{Board: "esp8266:esp8266:generic", Programmer: "arduino:jtag"})
		assert.Len(t, warnings, 2)
		assert.Nil(t, w.CurrentBoard())
	})

	t.Run("malformed board", func(t *testing.T) {
		t.Parallel()
		w := newWorkspace(t)
		warnings := w.ApplyProject(&project.Settings{Board: "uno"})
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "Invalid board")
	})
}

func TestPersistProjectAndOpen(t *testing.T) {
	t.Parallel()
	w := newWorkspace(t)
	require.NoError(t, project.Save(w.Root(), &project.Settings{Sketch: "Blink.ino", Port: "/dev/ttyUSB0"}))

	warnings, err := w.Open()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "Blink.ino", w.Settings().Sketch)

	require.NoError(t, w.SelectBoard(nanoKey))
	_, err = w.UpdateConfig("cpu", "atmega168")
	require.NoError(t, err)
	require.NoError(t, w.SelectProgrammer("arduino:usbasp"))
	require.NoError(t, w.PersistProject())

	s, err := project.Load(w.Root())
	require.NoError(t, err)
	assert.Equal(t, &project.Settings{
		Sketch:        "Blink.ino",
		Port:          "/dev/ttyUSB0",
		Board:         "arduino:avr:nano",
		Configuration: "cpu=atmega168",
		Programmer:    "arduino:usbasp",
	}, s)

	other := newWorkspaceAt(t, w.Root())
	warnings, err = other.Open()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "arduino:avr:nano:cpu=atmega168", other.CurrentBoard().BuildConfigString())
}

func TestOpen_UnreadableSettings(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, project.FileName), []byte("board: [unclosed"), 0644))
	_, err := newWorkspaceAt(t, root).Open()
	assert.Error(t, err)
}

func newWorkspaceAt(t *testing.T, root string) *Workspace {
	t.Helper()
	w := New(root, nil)
	w.Reload([]*board.Platform{avrPlatform("/hw/arduino/avr")})
	return w
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()
	w := newWorkspace(t)
	w.ApplyProject(&project.Settings{Port: "COM1", BuildPreferences: []project.Preference{{Key: "a", Value: "1"}}})

	snapshot := w.Settings()
	snapshot.BuildPreferences[0].Value = "mutated"

	w.UpdateSettings(func(s *project.Settings) { s.Port = "COM7" })
	got := w.Settings()
	assert.Equal(t, "COM7", got.Port)
	assert.Equal(t, "1", got.BuildPreferences[0].Value, "Settings returns a copy")

	_, err := os.Stat(project.Path(w.Root()))
	assert.True(t, os.IsNotExist(err), "in-memory only")
}
