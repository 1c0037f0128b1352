// Package entity holds the plain data types shared by the actor core: player
// and room identifiers, room configuration, and the error taxonomy client
// responses are built from.
package entity

import "fmt"

// PlayerId is an opaque, non-empty identifier chosen by the client at login.
type PlayerId = string

// RoomId is an opaque, non-empty identifier chosen by the client on join.
type RoomId = string

// RoomConfig is the configuration attached to a room at creation time. Two
// configs are equal iff all fields are equal.
type RoomConfig struct {
	MaxPlayers uint32
}

// DefaultRoomConfig is used whenever a JoinRequest omits an explicit config.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{MaxPlayers: 2}
}

// ErrorCode enumerates the protocol-level error conditions a ServerMessage
// can carry. The zero value, ErrNone, means "no error".
type ErrorCode int

const (
	ErrNone ErrorCode = iota
	ErrUnauthorized
	ErrAlreadyLoggedIn
	ErrAlreadyJoinedTheRoom
	ErrRoomConfigDoesNotMatch
	ErrRoomNotFound
	ErrRoomIsFull
	ErrFailedPrecondition
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNone:
		return "NONE"
	case ErrUnauthorized:
		return "UNAUTHORIZED"
	case ErrAlreadyLoggedIn:
		return "ALREADY_LOGGED_IN"
	case ErrAlreadyJoinedTheRoom:
		return "ALREADY_JOINED_THE_ROOM"
	case ErrRoomConfigDoesNotMatch:
		return "ROOM_CONFIG_DOES_NOT_MATCH"
	case ErrRoomNotFound:
		return "ROOM_NOT_FOUND"
	case ErrRoomIsFull:
		return "ROOM_IS_FULL"
	case ErrFailedPrecondition:
		return "FAILED_PRECONDITION"
	default:
		return "UNKNOWN"
	}
}

// JoinErrorKind is the subset of ErrorCode a room actor can produce while
// handling a join attempt.
type JoinErrorKind int

const (
	JoinErrAlreadyJoined JoinErrorKind = iota
	JoinErrConfigMismatch
	JoinErrRoomFull
)

func (k JoinErrorKind) ErrorCode() ErrorCode {
	switch k {
	case JoinErrAlreadyJoined:
		return ErrAlreadyJoinedTheRoom
	case JoinErrConfigMismatch:
		return ErrRoomConfigDoesNotMatch
	case JoinErrRoomFull:
		return ErrRoomIsFull
	default:
		return ErrFailedPrecondition
	}
}

func (k JoinErrorKind) String() string {
	switch k {
	case JoinErrAlreadyJoined:
		return "AlreadyJoined"
	case JoinErrConfigMismatch:
		return "ConfigMismatch"
	case JoinErrRoomFull:
		return "RoomFull"
	default:
		return fmt.Sprintf("JoinErrorKind(%d)", int(k))
	}
}
