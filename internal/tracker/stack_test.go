package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/focusrank/focusrank/pkg/window"
)

func TestWindowStack(t *testing.T) {
	hub := window.NewHub()
	s := NewWindowStack()
	s.Subscribe(hub)

	hub.Dispatch(window.Event{Kind: window.Setup, Records: []window.Record{rec(1, "a"), rec(2, "b"), rec(3, "c")}})
	assert.Equal(t, []window.Handle{1, 2, 3}, s.Handles())
	assert.Equal(t, 2, s.ZIndex(3))

	hub.Dispatch(ev(window.Focused, rec(3, "c")))
	assert.Equal(t, []window.Handle{3, 1, 2}, s.Handles())

	hub.Dispatch(ev(window.Opened, rec(4, "d")))
	assert.Equal(t, []window.Handle{4, 3, 1, 2}, s.Handles())

	hub.Dispatch(ev(window.Minimized, rec(1, "a")))
	hub.Dispatch(ev(window.Closed, rec(4, "d")))
	assert.Equal(t, []window.Handle{3, 2}, s.Handles())
	assert.Equal(t, -1, s.ZIndex(4))

	hub.Dispatch(ev(window.Renamed, rec(2, "B")))
	assert.Equal(t, []window.Handle{3, 2}, s.Handles())
}

func TestWindowStack_ObserverOrder(t *testing.T) {
	hub := window.NewHub()
	s := NewWindowStack()

	var before, after []int
	hub.OnFocused(func(r window.Record) { before = append(before, s.ZIndex(r.Handle)) })
	s.Subscribe(hub)
	hub.OnFocused(func(r window.Record) { after = append(after, s.ZIndex(r.Handle)) })

	hub.Dispatch(window.Event{Kind: window.Setup, Records: []window.Record{rec(1, "a"), rec(2, "b")}})
	hub.Dispatch(ev(window.Focused, rec(2, "b")))

	assert.Equal(t, []int{1}, before)
	assert.Equal(t, []int{0}, after)
}

func TestWindowStack_HandlesIsCopy(t *testing.T) {
	hub := window.NewHub()
	s := NewWindowStack()
	s.Subscribe(hub)
	hub.Dispatch(window.Event{Kind: window.Setup, Records: []window.Record{rec(1, "a")}})

	handles := s.Handles()
	handles[0] = 9
	assert.Equal(t, 0, s.ZIndex(1))
}
