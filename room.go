/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"maps"
	"slices"
	"time"
)

// GameState is the lifecycle phase of a Room.
type GameState string

const (
	GameWaiting  GameState = "waiting"
	GamePlaying  GameState = "playing"
	GameFinished GameState = "finished"
)

// canTransition reports whether moving from s to next is a legal
// state machine step. "finished" is terminal.
func (s GameState) canTransition(next GameState) bool {
	switch s {
	case GameWaiting:
		return next == GamePlaying
	case GamePlaying:
		return next == GameFinished
	default:
		return false
	}
}

// Player is one entry in a Room's player list. Insertion order is
// join order, and the list never contains two entries with the same UID.
type Player struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// QuestionRecord is one multiple-choice question. Answers holds the
// correct answer and the incorrect answers in a single shuffled order,
// fixed at fetch time so every player sees the options in the same
// positions for the life of the room.
type QuestionRecord struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
	Answers          []string `json:"answers"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
}

// Room is the shared document for one multiplayer game session.
// Answers maps player UID to their submitted answer for the current
// question only; it is cleared in the same write that advances the
// question index.
type Room struct {
	RoomID               string            `json:"roomId"`
	HostID               string            `json:"hostId"`
	Players              []Player          `json:"players"`
	Questions            []QuestionRecord  `json:"questions"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	GameState            GameState         `json:"gameState"`
	Answers              map[string]string `json:"answers"`
	CreatedAt            time.Time         `json:"createdAt"`

	lastActive time.Time
}

func (r *Room) playerIndex(uid string) int {
	for i := range r.Players {
		if r.Players[i].UID == uid {
			return i
		}
	}
	return -1
}

func (r *Room) hasPlayer(uid string) bool {
	return r.playerIndex(uid) >= 0
}

// allAnswered is the round completion predicate: every current player
// has an answer recorded for the current question.
func (r *Room) allAnswered() bool {
	return len(r.Players) > 0 && len(r.Answers) == len(r.Players)
}

func (r *Room) currentQuestion() (QuestionRecord, bool) {
	if r.CurrentQuestionIndex < 0 || r.CurrentQuestionIndex >= len(r.Questions) {
		return QuestionRecord{}, false
	}
	return r.Questions[r.CurrentQuestionIndex], true
}

// scoreboard returns the players ordered by score, highest first.
// Ties keep join order.
func (r *Room) scoreboard() []Player {
	out := slices.Clone(r.Players)
	slices.SortStableFunc(out, func(a, b Player) int {
		return b.Score - a.Score
	})
	return out
}

// clone returns a deep copy suitable for handing to subscribers, so a
// pushed snapshot never aliases live store state.
func (r *Room) clone() *Room {
	out := *r
	out.Players = slices.Clone(r.Players)
	out.Answers = maps.Clone(r.Answers)
	out.Questions = make([]QuestionRecord, len(r.Questions))
	for i, q := range r.Questions {
		q.IncorrectAnswers = slices.Clone(q.IncorrectAnswers)
		q.Answers = slices.Clone(q.Answers)
		out.Questions[i] = q
	}
	return &out
}
