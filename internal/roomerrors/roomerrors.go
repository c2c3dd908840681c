// Package roomerrors defines the typed error kinds from spec.md §7, so
// callers can errors.Is/errors.As instead of matching on strings.
package roomerrors

import "fmt"

// Kind distinguishes the five error kinds spec.md §7 describes.
type Kind int

const (
	KindCredential Kind = iota
	KindProtocol
	KindGameLogic
	KindSideEffect
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindProtocol:
		return "protocol"
	case KindGameLogic:
		return "game_logic"
	case KindSideEffect:
		return "side_effect"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is a typed room-runtime error carrying its Kind and, where
// relevant, the room id and channel (game-logic errors) it occurred in.
type Error struct {
	Kind    Kind
	RoomID  string
	Channel string
	Err     error
}

func (e *Error) Error() string {
	if e.RoomID != "" {
		return fmt.Sprintf("%s error in room %s (%s): %v", e.Kind, e.RoomID, e.Channel, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, enabling
// errors.Is(err, roomerrors.Credential) style sentinel checks.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an *Error of the given kind wrapping err.
func New(kind Kind, roomID, channel string, err error) *Error {
	return &Error{Kind: kind, RoomID: roomID, Channel: channel, Err: err}
}

// Sentinels for errors.Is comparisons against a bare kind (Err left nil).
var (
	Credential = &Error{Kind: KindCredential}
	Protocol   = &Error{Kind: KindProtocol}
	GameLogic  = &Error{Kind: KindGameLogic}
	SideEffect = &Error{Kind: KindSideEffect}
	Resource   = &Error{Kind: KindResource}
)
