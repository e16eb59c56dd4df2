// Package x11 streams window events from an X server through EWMH root and
// client properties.
package x11

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/pkg/window"
)

// ErrNoDisplay is returned when no X server can be reached
var ErrNoDisplay = errors.New("no X11 display available")

// Source implements window.Source for X11
type Source struct {
	display string
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	client *client
	state  *state
}

// Option configures a Source
type Option func(*Source)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDisplay connects to display instead of $DISPLAY
func WithDisplay(display string) Option {
	return func(s *Source) {
		s.display = display
	}
}

// NewSource creates a source. The connection is opened on first use.
func NewSource(opts ...Option) *Source {
	s := &Source{
		display: os.Getenv("DISPLAY"),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("x11")
	return s
}

// IsAvailable checks if an X display is configured
func (s *Source) IsAvailable() bool {
	return s.display != ""
}

// GetDisplayServer returns "x11"
func (s *Source) GetDisplayServer() string {
	return "x11"
}

func (s *Source) connect() (*client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	if s.display == "" {
		return nil, errors.Wrap(ErrNoDisplay, "DISPLAY is not set")
	}
	c, err := newClient(s.display)
	if err != nil {
		return nil, err
	}
	s.client = c
	s.state = newState(c, s.now)
	return c, nil
}

// Windows returns the visible managed windows, active window first
func (s *Source) Windows() ([]window.Record, error) {
	c, err := s.connect()
	if err != nil {
		return nil, err
	}
	records, err := s.state.windows()
	if err != nil {
		return nil, err
	}
	for h := range s.state.clients {
		if err := c.watch(xproto.Window(h)); err != nil {
			s.logger.Debug("failed to watch window", zap.Stringer("handle", h), zap.Error(err))
		}
	}
	return records, nil
}

// Watch streams window events until ctx is cancelled.
// Windows must be called first so the state matches the server.
func (s *Source) Watch(ctx context.Context, events chan<- window.Event) error {
	c, err := s.connect()
	if err != nil {
		return err
	}
	if err := c.watch(c.root); err != nil {
		return errors.Wrap(err, "failed to watch root window")
	}

	type xevent struct {
		ev  xgb.Event
		err xgb.Error
	}
	xevents := make(chan xevent)
	go func() {
		defer close(xevents)
		for {
			ev, xerr := c.conn.WaitForEvent()
			if ev == nil && xerr == nil {
				return
			}
			select {
			case xevents <- xevent{ev, xerr}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case x, ok := <-xevents:
			if !ok {
				return errors.New("X11 connection closed")
			}
			if x.err != nil {
				s.logger.Debug("X11 error", zap.String("error", x.err.Error()))
				continue
			}
			notify, isProperty := x.ev.(xproto.PropertyNotifyEvent)
			if !isProperty {
				continue
			}
			for _, ev := range s.handle(c, notify) {
				select {
				case events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

func (s *Source) handle(c *client, notify xproto.PropertyNotifyEvent) []window.Event {
	var (
		events []window.Event
		err    error
	)
	switch {
	case notify.Window == c.root && (notify.Atom == c.atoms["_NET_CLIENT_LIST"] || notify.Atom == c.atoms["_NET_CLIENT_LIST_STACKING"]):
		events, err = s.state.clientListChanged()
		for _, ev := range events {
			if ev.Kind == window.Opened {
				if werr := c.watch(xproto.Window(ev.Record.Handle)); werr != nil {
					s.logger.Debug("failed to watch window", zap.Stringer("handle", ev.Record.Handle), zap.Error(werr))
				}
			}
		}
	case notify.Window == c.root && notify.Atom == c.atoms["_NET_ACTIVE_WINDOW"]:
		events, err = s.state.activeChanged()
	case notify.Atom == c.atoms["_NET_WM_NAME"] || notify.Atom == c.atoms["WM_NAME"]:
		events = s.state.titleChanged(window.Handle(notify.Window))
	case notify.Atom == c.atoms["_NET_WM_STATE"]:
		events = s.state.wmStateChanged(window.Handle(notify.Window))
	}
	if err != nil {
		s.logger.Warn("failed to read window property", zap.Error(err))
		return nil
	}
	return events
}

// Close closes the X connection
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.close()
		s.client = nil
	}
	return nil
}
