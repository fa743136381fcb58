/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"time"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6

	// Attempts before CreateRoom gives up on finding an unused code.
	// At 36^6 codes, more than one retry is already rare.
	createRoomAttempts = 5
)

// newRoomCode generates a short human-enterable room code.
func newRoomCode() string {
	out := make([]byte, roomCodeLength)
	for i := range out {
		out[i] = roomCodeAlphabet[cryptoIntn(len(roomCodeAlphabet))]
	}
	return string(out)
}

// RoomManager owns room lifecycle (create, join, leave, start) and the
// per-round game state machine in game.go. All room mutations go
// through the injected RoomStore as single atomic writes.
type RoomManager struct {
	cfg    *Config
	store  RoomStore
	loader *QuestionLoader
}

func newRoomManager(cfg *Config, store RoomStore, loader *QuestionLoader) *RoomManager {
	return &RoomManager{
		cfg:    cfg,
		store:  store,
		loader: loader,
	}
}

// CreateRoom loads a question set and writes a fresh Room document.
// The creator becomes host. Code collisions are retried with a fresh
// code a bounded number of times.
func (m *RoomManager) CreateRoom(ctx context.Context, hostUID, hostName string) (string, error) {
	questions := m.loader.Load(ctx, m.cfg.questionCount, m.cfg.questionCategory, m.cfg.questionDifficulty)

	var err error
	for attempt := 0; attempt < createRoomAttempts; attempt++ {
		code := newRoomCode()
		room := &Room{
			RoomID: code,
			HostID: hostUID,
			Players: []Player{
				{UID: hostUID, Name: hostName},
			},
			Questions:            questions,
			CurrentQuestionIndex: 0,
			GameState:            GameWaiting,
			Answers:              make(map[string]string),
			CreatedAt:            time.Now(),
		}

		err = m.store.Create(ctx, room)
		if errors.Is(err, ErrRoomExists) {
			continue
		}
		if err != nil {
			return "", err
		}

		logf(m.cfg, "ROOMS: %q created room %s", hostName, code)

		return code, nil
	}

	return "", err
}

// JoinRoom adds the player to the room if not already present. Joining
// twice with the same uid is a no-op, so a re-join never duplicates an
// entry or resets a score.
func (m *RoomManager) JoinRoom(ctx context.Context, roomID, uid, name string) (*Room, error) {
	joined := false
	snap, err := m.store.Update(ctx, roomID, func(r *Room) error {
		if r.hasPlayer(uid) {
			return nil
		}
		r.Players = append(r.Players, Player{UID: uid, Name: name})
		joined = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if joined {
		logf(m.cfg, "ROOMS: %q joined room %s", name, roomID)
	}

	return snap, nil
}

// LeaveRoom removes the player. If the host leaves, the first
// remaining player becomes host, written together with the player list
// in one update. The last player leaving deletes the room.
func (m *RoomManager) LeaveRoom(ctx context.Context, roomID, uid string) error {
	empty := false
	_, err := m.store.Update(ctx, roomID, func(r *Room) error {
		i := r.playerIndex(uid)
		if i < 0 {
			return ErrNotInRoom
		}

		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		delete(r.Answers, uid)

		if len(r.Players) == 0 {
			empty = true
			return nil
		}
		if r.HostID == uid {
			r.HostID = r.Players[0].UID
			logf(m.cfg, "ROOMS: Host of %s migrated to %q", roomID, r.Players[0].Name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if empty {
		logf(m.cfg, "ROOMS: Deleting empty room %s", roomID)
		return m.store.Delete(ctx, roomID)
	}

	return nil
}

// StartGame moves the room from waiting to playing. Host only.
func (m *RoomManager) StartGame(ctx context.Context, roomID, uid string) (*Room, error) {
	snap, err := m.store.Update(ctx, roomID, func(r *Room) error {
		if r.HostID != uid {
			return ErrNotHost
		}
		if !r.GameState.canTransition(GamePlaying) {
			return ErrWrongGameState
		}
		r.GameState = GamePlaying
		return nil
	})
	if err != nil {
		return nil, err
	}

	logf(m.cfg, "GAMES: Room %s started with %d players", roomID, len(snap.Players))

	return snap, nil
}
