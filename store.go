/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"
	"time"
)

// RoomStore is the shared-document capability backing multiplayer
// games, injected into the room manager rather than referenced as
// ambient state.
//
// The concurrency contract: Update runs the mutation against the live
// document atomically, and a mutation must touch only the fields of
// its own operation. A mutation that returns an error must do so
// before modifying anything; errors abort the write and nothing is
// published. After every committed write, subscribers are
// pushed the full new snapshot. Delivery coalesces: a slow subscriber
// may skip intermediate states but always eventually observes the
// latest committed one.
type RoomStore interface {
	Create(ctx context.Context, room *Room) error
	Get(ctx context.Context, roomID string) (*Room, error)
	Update(ctx context.Context, roomID string, mutate func(*Room) error) (*Room, error)
	Delete(ctx context.Context, roomID string) error

	// Subscribe immediately delivers the current snapshot, then one
	// per committed write. The channel is closed when the room is
	// deleted or the cancel func is called.
	Subscribe(roomID string) (<-chan *Room, func(), error)
}

type subscriber struct {
	ch chan *Room
}

type roomEntry struct {
	room    *Room
	subs    map[int]*subscriber
	nextSub int
}

type memoryStore struct {
	cfg   *Config
	mu    sync.Mutex
	rooms map[string]*roomEntry
}

func newMemoryStore(cfg *Config) *memoryStore {
	s := &memoryStore{
		cfg:   cfg,
		rooms: make(map[string]*roomEntry),
	}
	if cfg.sessionTimeout > 0 {
		go s.reaperLoop(cfg.sessionTimeout)
	}
	return s
}

func (s *memoryStore) Create(ctx context.Context, room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.RoomID]; exists {
		return ErrRoomExists
	}

	stored := room.clone()
	stored.lastActive = time.Now()
	s.rooms[room.RoomID] = &roomEntry{
		room: stored,
		subs: make(map[int]*subscriber),
	}

	return nil
}

func (s *memoryStore) Get(ctx context.Context, roomID string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return entry.room.clone(), nil
}

func (s *memoryStore) Update(ctx context.Context, roomID string, mutate func(*Room) error) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	if err := mutate(entry.room); err != nil {
		return nil, err
	}

	entry.room.lastActive = time.Now()
	snap := s.publishLocked(entry)

	return snap, nil
}

// Delete removes the room and closes all subscriber channels. Deleting
// an absent room is a no-op, matching document store semantics.
func (s *memoryStore) Delete(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(roomID)

	return nil
}

func (s *memoryStore) Subscribe(roomID string) (<-chan *Room, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[roomID]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	sub := &subscriber{
		ch: make(chan *Room, 1),
	}
	id := entry.nextSub
	entry.nextSub++
	entry.subs[id] = sub

	// First delivery is the current state, so a new subscriber renders
	// immediately without a separate read.
	sub.ch <- entry.room.clone()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		entry, ok := s.rooms[roomID]
		if !ok {
			return
		}
		if sub, ok := entry.subs[id]; ok {
			delete(entry.subs, id)
			close(sub.ch)
		}
	}

	return sub.ch, cancel, nil
}

// publishLocked fans the current document out to every subscriber,
// replacing any undelivered snapshot so delivery coalesces instead of
// blocking the writer.
func (s *memoryStore) publishLocked(entry *roomEntry) *Room {
	snap := entry.room.clone()

	for _, sub := range entry.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}

	return snap
}

func (s *memoryStore) deleteLocked(roomID string) {
	entry, ok := s.rooms[roomID]
	if !ok {
		return
	}

	for id, sub := range entry.subs {
		delete(entry.subs, id)
		close(sub.ch)
	}
	delete(s.rooms, roomID)
}

// reaperLoop periodically removes rooms that have been idle longer
// than idleTimeout. There is no per-room TTL in the document model, so
// abandoned rooms would otherwise live forever.
func (s *memoryStore) reaperLoop(idleTimeout time.Duration) {
	ticker := time.NewTicker(idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-idleTimeout)

		s.mu.Lock()
		for id, entry := range s.rooms {
			if entry.room.lastActive.Before(cutoff) {
				s.deleteLocked(id)
				logf(s.cfg, "ROOMS: Reaped idle room %s", id)
			}
		}
		s.mu.Unlock()
	}
}
