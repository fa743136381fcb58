/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
)

// Sentinel errors for the room lifecycle and game state machine.
// The websocket layer translates these into user-facing messages;
// everything else is surfaced as a generic "try again".
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrNotInRoom       = errors.New("player is not in this room")
	ErrNotHost         = errors.New("only the host may do that")
	ErrWrongGameState  = errors.New("action not valid in current game state")
	ErrAlreadyAnswered = errors.New("player already answered this question")
	ErrRoundOpen       = errors.New("not all players have answered yet")
)
