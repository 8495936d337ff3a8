package hooks

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mkapulica/Time-is-Money/pkg/converter"
)

type MockTUIProgram struct {
	mock.Mock
}

func (m *MockTUIProgram) Send(msg tea.Msg) {
	m.Called(msg)
}

type MockProgressBar struct {
	mock.Mock
}

func (m *MockProgressBar) Add(num int) error {
	return m.Called(num).Error(0)
}

func (m *MockProgressBar) Describe(description string) {
	m.Called(description)
}

func (m *MockProgressBar) Close() error {
	return m.Called().Error(0)
}

func newLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}

func TestNewCLIHooks_FallsBackToLog(t *testing.T) {
	logger, _ := newLogger(slog.LevelInfo)
	assert.Equal(t, ModeLog, NewCLIHooks(logger, Options{Mode: ModeTUI}).Mode())
	assert.Equal(t, ModeLog, NewCLIHooks(logger, Options{Mode: ModeProgress}).Mode())
	assert.Equal(t, ModeTUI, NewCLIHooks(logger, Options{Mode: ModeTUI, Program: new(MockTUIProgram)}).Mode())
}

func TestCLIHooks_TUI(t *testing.T) {
	logger, buf := newLogger(slog.LevelDebug)
	prog := new(MockTUIProgram)
	prog.On("Send", FileDiscoveredMsg{Path: "index.html"}).Once()
	prog.On("Send", FileStatusUpdateMsg{Path: "index.html", Status: converter.StatusSuccess, Message: "2 prices rewritten", Prices: 2, Duration: time.Second}).Once()
	prog.On("Send", mock.AnythingOfType("hooks.RunCompleteMsg")).Once()

	h := NewCLIHooks(logger, Options{Mode: ModeTUI, Program: prog, Verbose: true})
	assert.NoError(t, h.OnFileDiscovered("index.html"))
	assert.NoError(t, h.OnFileStatusUpdate("index.html", converter.StatusSuccess, "2 prices rewritten", 2, time.Second))
	assert.NoError(t, h.OnRunComplete(converter.Report{}))

	prog.AssertExpectations(t)
	assert.Empty(t, buf.String(), "TUI mode does not log")
}

func TestCLIHooks_Progress(t *testing.T) {
	logger, buf := newLogger(slog.LevelInfo)
	bar := new(MockProgressBar)
	bar.On("Add", 1).Return(nil).Times(4)
	bar.On("Describe", "Converting (2 prices)").Times(2)
	bar.On("Describe", "Converting (5 prices)").Once()
	bar.On("Describe", "Converting (9 prices)").Once()
	bar.On("Close").Return(nil).Once()
	var out bytes.Buffer

	h := NewCLIHooks(logger, Options{Mode: ModeProgress, Bar: bar, Out: &out})
	assert.NoError(t, h.OnFileDiscovered("a.html"))
	assert.NoError(t, h.OnFileStatusUpdate("a.html", converter.StatusProcessing, "", 0, 0))
	assert.NoError(t, h.OnFileStatusUpdate("a.html", converter.StatusSuccess, "2 prices rewritten", 2, time.Millisecond))
	assert.NoError(t, h.OnFileStatusUpdate("b.png", converter.StatusFailed, "binary file encountered", 0, time.Millisecond))
	assert.NoError(t, h.OnFileStatusUpdate("c.txt", converter.StatusSuccess, "3 prices rewritten", 3, time.Millisecond))
	assert.NoError(t, h.OnFileStatusUpdate("d.md", converter.StatusCached, "4 prices rewritten", 4, 0))
	assert.NoError(t, h.OnRunComplete(converter.Report{}))

	bar.AssertExpectations(t)
	assert.Equal(t, 4, h.Finished())
	assert.Equal(t, "\n", out.String())
	assert.Contains(t, buf.String(), "binary file encountered")
	assert.NotContains(t, buf.String(), "a.html")
}

func TestCLIHooks_VerboseLog(t *testing.T) {
	logger, buf := newLogger(slog.LevelDebug)
	h := NewCLIHooks(logger, Options{Mode: ModeLog, Verbose: true})

	assert.NoError(t, h.OnFileDiscovered("shop"))
	assert.NoError(t, h.OnFileStatusUpdate("shop/a.html", converter.StatusSuccess, "1 prices rewritten", 1, 5*time.Millisecond))
	assert.NoError(t, h.OnFileStatusUpdate("shop/b.html", converter.StatusFailed, "boom", 0, 0))
	assert.NoError(t, h.OnRunComplete(converter.Report{}))

	out := buf.String()
	assert.Contains(t, out, "File discovered")
	assert.Contains(t, out, "path=shop/a.html")
	assert.Contains(t, out, `message="1 prices rewritten"`)
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "error=boom")
}

func TestCLIHooks_QuietLog(t *testing.T) {
	logger, buf := newLogger(slog.LevelInfo)
	h := NewCLIHooks(logger, Options{})

	assert.NoError(t, h.OnFileDiscovered("a.html"))
	assert.NoError(t, h.OnFileStatusUpdate("a.html", converter.StatusSuccess, "", 0, 0))
	assert.Empty(t, buf.String())

	assert.NoError(t, h.OnFileStatusUpdate("b.html", converter.StatusFailed, "boom", 0, 0))
	assert.Contains(t, buf.String(), "File processing failed")
}
