package viewtracker

import (
	"fmt"
	"reflect"
)

// KeyKind discriminates Key variants.
type KeyKind int

// Key kinds.
const (
	KindScreen KeyKind = iota + 1
	KindRoute
)

// Key identifies one tracked view: either a native screen handle or a
// named route plus instance key from an embedding runtime.
//
// Keys compare with ==. Screen handles are matched by identity (use
// pointers), never by display name.
type Key struct {
	kind     KeyKind
	screen   any
	route    string
	instance string
}

// ScreenKey returns a key for a native screen handle. A nil or
// non-comparable handle (for example a struct holding a slice) yields the
// zero Key, which trackers ignore.
func ScreenKey(handle any) Key {
	if handle == nil || !reflect.ValueOf(handle).Comparable() {
		return Key{}
	}
	return Key{kind: KindScreen, screen: handle}
}

// RouteKey returns a key for a route name and instance key.
func RouteKey(name, instance string) Key {
	return Key{kind: KindRoute, route: name, instance: instance}
}

// Kind returns the key variant.
func (k Key) Kind() KeyKind { return k.kind }

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k.kind == 0 }

// Screen returns the native handle, or nil for route keys.
func (k Key) Screen() any { return k.screen }

// Route returns the route name and instance key, or empty strings for
// screen keys.
func (k Key) Route() (name, instance string) { return k.route, k.instance }

// Name returns a display name used for View messages.
func (k Key) Name() string {
	switch k.kind {
	case KindScreen:
		if s, ok := k.screen.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("%T", k.screen)
	case KindRoute:
		return k.route
	default:
		return ""
	}
}
