package x11

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusrank/focusrank/pkg/window"
)

var testNow = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

type fakeProps struct {
	clients []window.Handle
	active  window.Handle
	titles  map[window.Handle]string
	classes map[window.Handle]string
	hide    map[window.Handle]bool
	err     error
}

func newFakeProps() *fakeProps {
	return &fakeProps{
		titles:  make(map[window.Handle]string),
		classes: make(map[window.Handle]string),
		hide:    make(map[window.Handle]bool),
	}
}

func (f *fakeProps) clientList() ([]window.Handle, error) {
	return append([]window.Handle(nil), f.clients...), f.err
}

func (f *fakeProps) activeWindow() (window.Handle, error) {
	return f.active, f.err
}

func (f *fakeProps) title(h window.Handle) string   { return f.titles[h] }
func (f *fakeProps) appName(h window.Handle) string { return f.classes[h] }
func (f *fakeProps) hidden(h window.Handle) bool    { return f.hide[h] }

func (f *fakeProps) add(h window.Handle, title, class string) {
	f.clients = append(f.clients, h)
	f.titles[h] = title
	f.classes[h] = class
}

func newTestState(t *testing.T) (*state, *fakeProps) {
	t.Helper()
	props := newFakeProps()
	props.add(1, "Terminal", "kitty")
	props.add(2, "Mozilla Firefox", "firefox")
	props.add(3, "Files", "nautilus")
	props.active = 2
	s := newState(props, func() time.Time { return testNow })
	return s, props
}

func TestState_Windows(t *testing.T) {
	s, props := newTestState(t)
	props.hide[3] = true

	records, err := s.windows()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, window.Handle(2), records[0].Handle)
	assert.Equal(t, "firefox", records[0].AppName)
	assert.Equal(t, window.Handle(1), records[1].Handle)
	assert.Equal(t, testNow, records[1].Timestamp)
	assert.Len(t, s.clients, 3)
}

func TestState_WindowsError(t *testing.T) {
	s, props := newTestState(t)
	props.err = errors.New("bad window")

	_, err := s.windows()
	assert.Error(t, err)
}

func TestState_ClientListChanged(t *testing.T) {
	s, props := newTestState(t)
	_, err := s.windows()
	require.NoError(t, err)

	props.add(4, "Mail", "thunderbird")
	props.clients = []window.Handle{4, 2, 1}

	events, err := s.clientListChanged()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, window.Opened, events[0].Kind)
	assert.Equal(t, "Mail", events[0].Record.Title)
	assert.Equal(t, "thunderbird", events[0].Record.AppName)
	assert.Equal(t, window.Closed, events[1].Kind)
	assert.Equal(t, window.Handle(3), events[1].Record.Handle)

	events, err = s.clientListChanged()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestState_ActiveChanged(t *testing.T) {
	s, props := newTestState(t)
	_, err := s.windows()
	require.NoError(t, err)

	events, err := s.activeChanged()
	require.NoError(t, err)
	assert.Empty(t, events, "focus of the already active window is suppressed")

	props.active = 1
	events, err = s.activeChanged()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, window.Focused, events[0].Kind)
	assert.Equal(t, "Terminal", events[0].Record.Title)

	props.active = 0
	events, err = s.activeChanged()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestState_ActiveUnknownWindow(t *testing.T) {
	s, props := newTestState(t)
	_, err := s.windows()
	require.NoError(t, err)

	props.titles[9] = "Popup"
	props.active = 9
	events, err := s.activeChanged()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Popup", events[0].Record.Title)
	assert.Contains(t, s.clients, window.Handle(9))
}

func TestState_TitleChanged(t *testing.T) {
	s, props := newTestState(t)
	_, err := s.windows()
	require.NoError(t, err)

	assert.Empty(t, s.titleChanged(1))

	props.titles[1] = "vim main.go"
	events := s.titleChanged(1)
	require.Len(t, events, 1)
	assert.Equal(t, window.Renamed, events[0].Kind)
	assert.Equal(t, "vim main.go", events[0].Record.Title)
	assert.Equal(t, "kitty", events[0].Record.AppName)

	assert.Empty(t, s.titleChanged(1))
	assert.Empty(t, s.titleChanged(42))
}

func TestState_WMStateChanged(t *testing.T) {
	s, props := newTestState(t)
	_, err := s.windows()
	require.NoError(t, err)

	assert.Empty(t, s.wmStateChanged(2))

	props.hide[2] = true
	events := s.wmStateChanged(2)
	require.Len(t, events, 1)
	assert.Equal(t, window.Minimized, events[0].Kind)
	assert.Empty(t, s.wmStateChanged(2))

	// restoring is reported by the following focus
	props.hide[2] = false
	assert.Empty(t, s.wmStateChanged(2))
	events, err = s.activeChanged()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, window.Focused, events[0].Kind)
	assert.Equal(t, window.Handle(2), events[0].Record.Handle)
}

func TestParseWindowList(t *testing.T) {
	data := make([]byte, 14)
	binary.LittleEndian.PutUint32(data[0:], 0x01200003)
	binary.LittleEndian.PutUint32(data[4:], 0)
	binary.LittleEndian.PutUint32(data[8:], 0x00e00001)

	assert.Equal(t, []window.Handle{0x01200003, 0x00e00001}, parseWindowList(data))
	assert.Empty(t, parseWindowList(nil))
}

func TestParseWMClass(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "instance and class", input: "Navigator\x00Firefox\x00", expected: "Firefox"},
		{name: "same names", input: "kitty\x00kitty\x00", expected: "kitty"},
		{name: "instance only", input: "xterm\x00", expected: "xterm"},
		{name: "empty class", input: "instance\x00\x00", expected: "instance"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseWMClass([]byte(tt.input)))
		})
	}
}

func TestSource(t *testing.T) {
	var _ window.Source = (*Source)(nil)

	s := NewSource(WithDisplay(""))
	assert.False(t, s.IsAvailable())
	assert.Equal(t, "x11", s.GetDisplayServer())

	_, err := s.Windows()
	assert.True(t, errors.Is(err, ErrNoDisplay))
	assert.NoError(t, s.Close())
}
