package x11

import (
	"encoding/binary"
	"slices"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/focusrank/focusrank/pkg/window"
)

const (
	maxPropertyLength = 1024
	maxNameLength     = 256
)

var atomNames = []string{
	"_NET_CLIENT_LIST",
	"_NET_CLIENT_LIST_STACKING",
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_STATE",
	"_NET_WM_STATE_HIDDEN",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// client reads window properties over one X connection
type client struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

func newClient(display string) (*client, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrapf(ErrNoDisplay, "failed to connect to %q: %v", display, err)
	}

	c := &client{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}
	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		c.atoms[name] = reply.Atom
	}
	return c, nil
}

func (c *client) close() {
	c.conn.Close()
}

func (c *client) property(w xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, w, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// watch subscribes to property changes of w
func (c *client) watch(w xproto.Window) error {
	return xproto.ChangeWindowAttributesChecked(c.conn, w,
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check()
}

// clientList returns the managed windows, topmost first
func (c *client) clientList() ([]window.Handle, error) {
	data, err := c.property(c.root, c.atoms["_NET_CLIENT_LIST_STACKING"], xproto.AtomWindow, maxPropertyLength)
	if err == nil && len(data) >= 4 {
		handles := parseWindowList(data)
		slices.Reverse(handles)
		return handles, nil
	}
	data, err = c.property(c.root, c.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, maxPropertyLength)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read client list")
	}
	return parseWindowList(data), nil
}

func (c *client) activeWindow() (window.Handle, error) {
	data, err := c.property(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read active window")
	}
	if len(data) < 4 {
		return 0, nil
	}
	return window.Handle(binary.LittleEndian.Uint32(data)), nil
}

func (c *client) title(h window.Handle) string {
	data, err := c.property(xproto.Window(h), c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], maxNameLength)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	data, err = c.property(xproto.Window(h), c.atoms["WM_NAME"], xproto.AtomString, maxNameLength)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

func (c *client) appName(h window.Handle) string {
	data, err := c.property(xproto.Window(h), c.atoms["WM_CLASS"], xproto.AtomString, maxNameLength)
	if err != nil {
		return ""
	}
	return parseWMClass(data)
}

func (c *client) hidden(h window.Handle) bool {
	data, err := c.property(xproto.Window(h), c.atoms["_NET_WM_STATE"], xproto.AtomAtom, maxPropertyLength)
	if err != nil {
		return false
	}
	hidden := uint32(c.atoms["_NET_WM_STATE_HIDDEN"])
	for i := 0; i+4 <= len(data); i += 4 {
		if binary.LittleEndian.Uint32(data[i:]) == hidden {
			return true
		}
	}
	return false
}

// parseWindowList decodes a list of 32-bit window ids
func parseWindowList(data []byte) []window.Handle {
	handles := make([]window.Handle, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		if h := window.Handle(binary.LittleEndian.Uint32(data[i:])); h != 0 {
			handles = append(handles, h)
		}
	}
	return handles
}

// parseWMClass returns the class part of a WM_CLASS value, falling back to the
// instance name
func parseWMClass(data []byte) string {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	for i := len(parts) - 1; i >= 0; i-- {
		if name := strings.TrimSpace(parts[i]); name != "" {
			return name
		}
	}
	return ""
}
