package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/utf-cast/internal/cli/hooks"
	"github.com/stackvity/utf-cast/pkg/converter"
)

const testDir = "/data/project"

// newTestModel returns an initialized model whose cancel func counts calls.
func newTestModel(width, height int) (*Model, *int) {
	calls := 0
	m := NewModel("1.0.0", testDir, func() { calls++ })
	m.width = width
	m.height = height
	listHeight := height - listHeightMargin
	if listHeight < 1 {
		listHeight = 1
	}
	m.list.SetSize(width, listHeight)
	m.initialized = true
	return &m, &calls
}

func update(t *testing.T, m *Model, msg tea.Msg) (*Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(*Model)
	require.True(t, ok)
	return updated, cmd
}

func TestModel_Init(t *testing.T) {
	m, _ := newTestModel(80, 25)
	cmd := m.Init()
	require.NotNil(t, cmd)
	_, ok := cmd().(spinner.TickMsg)
	assert.True(t, ok, "Init should return a command that produces spinner.TickMsg")
}

func TestModel_Update_WindowSize(t *testing.T) {
	m, _ := newTestModel(80, 25)
	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Nil(t, cmd)
	assert.True(t, m.initialized)
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 30, m.height)
	assert.Equal(t, 30-listHeightMargin, m.list.Height())
	assert.Equal(t, 100, m.list.Width())
}

func TestModel_Update_FileRecord(t *testing.T) {
	m, _ := newTestModel(80, 25)

	records := []converter.FileRecord{
		{FullPath: testDir + "/a.txt", EncodingName: "UTF-8", HasBOM: true, State: converter.StateConverted},
		{FullPath: testDir + "/sub/b.txt", EncodingName: "Unicode", State: converter.StateFailed, ErrorMessage: "denied"},
		{FullPath: testDir + "/c.txt", EncodingName: "Default/ANSI", State: converter.StateDetected},
	}
	var cmd tea.Cmd
	for i, r := range records {
		m, cmd = update(t, m, hooks.FileRecordMsg{Record: r})
		if i == 0 {
			assert.NotNil(t, cmd, "first record schedules a list refresh")
		}
	}

	require.Len(t, m.fileItems, 3)
	assert.Equal(t, "a.txt", m.fileItems[0].path)
	assert.Equal(t, "sub/b.txt", m.fileItems[1].path)
	assert.Equal(t, "denied", m.fileItems[1].message)
	assert.Equal(t, phaseScanning, m.phaseMessage)

	assert.Equal(t, 3, m.summary.Total)
	assert.Equal(t, 1, m.summary.Converted)
	assert.Equal(t, 1, m.summary.Failed)
	assert.Equal(t, 1, m.summary.Detected)
	assert.Equal(t, 1, m.summary.WithBOM)
	assert.True(t, m.updatePending)

	m, _ = update(t, m, UpdateListMsg{})
	assert.False(t, m.updatePending)
	assert.Len(t, m.list.Items(), 3)
}

func TestModel_Update_RunFinished(t *testing.T) {
	m, _ := newTestModel(80, 25)
	start := time.Now()
	info := converter.FinishInfo{
		Outcome:    converter.OutcomeFailed,
		Err:        errors.New("walk failed"),
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
	}

	m, _ = update(t, m, hooks.RunFinishedMsg{Info: info})
	assert.True(t, m.finished)
	assert.False(t, m.quitting, "the view stays open until the user quits")
	assert.Equal(t, "Failed", m.phaseMessage)
	assert.Equal(t, "walk failed", m.runError)
	assert.Equal(t, 2*time.Second, m.summary.Elapsed)

	_, cmd := update(t, m, spinner.TickMsg{})
	assert.Nil(t, cmd, "spinner stops after the run finishes")
}

func TestModel_Update_QuitWhileRunningCancels(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		t.Run(key, func(t *testing.T) {
			m, calls := newTestModel(80, 25)

			m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
			assert.Nil(t, cmd)
			assert.Equal(t, 1, *calls)
			assert.True(t, m.cancelling)
			assert.False(t, m.quitting)
			assert.Equal(t, phaseCancelling, m.phaseMessage)

			// A record that was in flight still arrives.
			m, _ = update(t, m, hooks.FileRecordMsg{Record: converter.FileRecord{FullPath: testDir + "/x", State: converter.StateConverted}})
			assert.Equal(t, phaseCancelling, m.phaseMessage)

			m, cmd = update(t, m, hooks.RunFinishedMsg{Info: converter.FinishInfo{Outcome: converter.OutcomeCancelled}})
			assert.True(t, m.quitting)
			assert.NotNil(t, cmd)
			assert.Equal(t, 1, *calls)
		})
	}
}

func TestModel_Update_SecondQuitExits(t *testing.T) {
	m, calls := newTestModel(80, 25)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, 1, *calls, "cancel is requested only once")

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
}

func TestModel_Update_QuitAfterFinish(t *testing.T) {
	m, calls := newTestModel(80, 25)
	m, _ = update(t, m, hooks.RunFinishedMsg{Info: converter.FinishInfo{Outcome: converter.OutcomeCompleted}})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Zero(t, *calls)
}

func TestModel_NilCancel(t *testing.T) {
	m := NewModel("", "", nil)
	assert.Equal(t, "dev", m.appVersion)
	assert.NotPanics(t, func() {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	})
	assert.True(t, m.cancelling)
}

func TestModel_DisplayPath(t *testing.T) {
	m, _ := newTestModel(80, 25)
	assert.Equal(t, "a/b.txt", m.displayPath(testDir+"/a/b.txt"))

	m.directory = ""
	assert.Equal(t, "/elsewhere/c.txt", m.displayPath("/elsewhere/c.txt"))
}
