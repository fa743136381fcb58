/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"
	"time"
)

// submitAnswer records uid's answer for the current question and, when
// correct, increments that player's score. Both effects land in the
// same write. A player may answer each question at most once.
func submitAnswer(r *Room, uid, answer string) error {
	if r.GameState != GamePlaying {
		return ErrWrongGameState
	}

	i := r.playerIndex(uid)
	if i < 0 {
		return ErrNotInRoom
	}

	if _, answered := r.Answers[uid]; answered {
		return ErrAlreadyAnswered
	}

	question, ok := r.currentQuestion()
	if !ok {
		return ErrWrongGameState
	}

	r.Answers[uid] = answer
	if answer == question.CorrectAnswer {
		r.Players[i].Score++
	}

	return nil
}

// advanceQuestion moves to the next question, clearing the answer map
// in the same write as the index bump so no snapshot ever pairs stale
// answers with a new question. On the last question it finishes the
// game instead.
func advanceQuestion(r *Room) error {
	if r.GameState != GamePlaying {
		return ErrWrongGameState
	}
	if !r.allAnswered() {
		return ErrRoundOpen
	}

	if r.CurrentQuestionIndex+1 < len(r.Questions) {
		r.CurrentQuestionIndex++
		r.Answers = make(map[string]string)
	} else {
		r.GameState = GameFinished
	}

	return nil
}

// SubmitAnswer applies a player's answer to the shared room document.
func (m *RoomManager) SubmitAnswer(ctx context.Context, roomID, uid, answer string) (*Room, error) {
	return m.store.Update(ctx, roomID, func(r *Room) error {
		return submitAnswer(r, uid, answer)
	})
}

// AdvanceQuestion moves the shared game to the next round, or finishes
// it. Host only, and only once every player has answered.
func (m *RoomManager) AdvanceQuestion(ctx context.Context, roomID, uid string) (*Room, error) {
	snap, err := m.store.Update(ctx, roomID, func(r *Room) error {
		if r.HostID != uid {
			return ErrNotHost
		}
		return advanceQuestion(r)
	})
	if err != nil {
		return nil, err
	}

	if snap.GameState == GameFinished {
		logf(m.cfg, "GAMES: Room %s finished after %d questions", roomID, len(snap.Questions))
	}

	return snap, nil
}

// SoloGame is the single-player variant: the same state machine
// applied synchronously to a local room that is never shared, so "all
// answered" reduces to "the one player answered".
type SoloGame struct {
	mu   sync.Mutex
	room *Room
}

func newSoloGame(uid, name string, questions []QuestionRecord) *SoloGame {
	return &SoloGame{
		room: &Room{
			HostID: uid,
			Players: []Player{
				{UID: uid, Name: name},
			},
			Questions: questions,
			GameState: GamePlaying,
			Answers:   make(map[string]string),
			CreatedAt: time.Now(),
		},
	}
}

func (g *SoloGame) Snapshot() *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.room.clone()
}

func (g *SoloGame) SubmitAnswer(answer string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := submitAnswer(g.room, g.room.Players[0].UID, answer); err != nil {
		return nil, err
	}

	return g.room.clone(), nil
}

func (g *SoloGame) AdvanceQuestion() (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := advanceQuestion(g.room); err != nil {
		return nil, err
	}

	return g.room.clone(), nil
}
