package main

import (
	"context"
	"errors"
	"testing"
)

// startedGame creates a two-player room on the fallback question set
// and starts it. Player "a" is host.
func startedGame(t *testing.T) (*RoomManager, *memoryStore, string) {
	t.Helper()

	m, store := newTestManager()
	ctx := context.Background()

	roomID, err := m.CreateRoom(ctx, "a", "Alice")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := m.JoinRoom(ctx, roomID, "b", "Bob"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if _, err := m.StartGame(ctx, roomID, "a"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	return m, store, roomID
}

func TestSubmitAnswerScoring(t *testing.T) {
	m, _, roomID := startedGame(t)
	ctx := context.Background()

	// Question 1 of the fallback set: the correct answer is "Paris".
	snap, err := m.SubmitAnswer(ctx, roomID, "a", "Paris")
	if err != nil {
		t.Fatalf("correct SubmitAnswer: %v", err)
	}
	if snap.Players[snap.playerIndex("a")].Score != 1 {
		t.Errorf("score after correct answer = %d, want 1", snap.Players[snap.playerIndex("a")].Score)
	}
	if snap.Answers["a"] != "Paris" {
		t.Errorf("answers[a] = %q, want %q", snap.Answers["a"], "Paris")
	}

	snap, err = m.SubmitAnswer(ctx, roomID, "b", "London")
	if err != nil {
		t.Fatalf("incorrect SubmitAnswer: %v", err)
	}
	if snap.Players[snap.playerIndex("b")].Score != 0 {
		t.Errorf("score after incorrect answer = %d, want 0", snap.Players[snap.playerIndex("b")].Score)
	}
	if snap.Answers["b"] != "London" {
		t.Errorf("answers[b] = %q, want %q", snap.Answers["b"], "London")
	}
}

func TestSubmitAnswerOncePerQuestion(t *testing.T) {
	m, store, roomID := startedGame(t)
	ctx := context.Background()

	if _, err := m.SubmitAnswer(ctx, roomID, "a", "Paris"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitAnswer(ctx, roomID, "a", "Paris"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("second SubmitAnswer = %v, want ErrAlreadyAnswered", err)
	}

	room, err := store.Get(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if score := room.Players[room.playerIndex("a")].Score; score != 1 {
		t.Errorf("score after duplicate submission = %d, want 1 (no double count)", score)
	}
}

func TestSubmitAnswerGuards(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	roomID, err := m.CreateRoom(ctx, "a", "Alice")
	if err != nil {
		t.Fatal(err)
	}

	// Game not started yet.
	if _, err := m.SubmitAnswer(ctx, roomID, "a", "Paris"); !errors.Is(err, ErrWrongGameState) {
		t.Fatalf("SubmitAnswer while waiting = %v, want ErrWrongGameState", err)
	}

	if _, err := m.StartGame(ctx, roomID, "a"); err != nil {
		t.Fatal(err)
	}

	// Not a member.
	if _, err := m.SubmitAnswer(ctx, roomID, "z", "Paris"); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("SubmitAnswer by outsider = %v, want ErrNotInRoom", err)
	}
}

// Round completion must become true exactly once regardless of the
// order in which players submit.
func TestRoundCompletionExactlyOnce(t *testing.T) {
	orders := [][]struct{ uid, answer string }{
		{{"a", "Paris"}, {"b", "London"}},
		{{"b", "London"}, {"a", "Paris"}},
	}

	for _, order := range orders {
		m, _, roomID := startedGame(t)
		ctx := context.Background()

		completions := 0
		for _, submit := range order {
			snap, err := m.SubmitAnswer(ctx, roomID, submit.uid, submit.answer)
			if err != nil {
				t.Fatal(err)
			}
			if snap.allAnswered() {
				completions++
			}
		}

		if completions != 1 {
			t.Errorf("round completion observed %d times, want exactly 1", completions)
		}
	}
}

func TestAdvanceQuestionGuards(t *testing.T) {
	m, _, roomID := startedGame(t)
	ctx := context.Background()

	// Round still open.
	if _, err := m.AdvanceQuestion(ctx, roomID, "a"); !errors.Is(err, ErrRoundOpen) {
		t.Fatalf("AdvanceQuestion with open round = %v, want ErrRoundOpen", err)
	}

	if _, err := m.SubmitAnswer(ctx, roomID, "a", "Paris"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitAnswer(ctx, roomID, "b", "London"); err != nil {
		t.Fatal(err)
	}

	// Not the host.
	if _, err := m.AdvanceQuestion(ctx, roomID, "b"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host AdvanceQuestion = %v, want ErrNotHost", err)
	}
}

// The index bump and the answer reset must land in one write: no
// snapshot may ever pair the new index with the old round's answers.
func TestAdvanceClearsAnswersInSameSnapshot(t *testing.T) {
	m, store, roomID := startedGame(t)
	ctx := context.Background()

	snaps, cancel, err := store.Subscribe(roomID)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if _, err := m.SubmitAnswer(ctx, roomID, "a", "Paris"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitAnswer(ctx, roomID, "b", "London"); err != nil {
		t.Fatal(err)
	}

	snap, err := m.AdvanceQuestion(ctx, roomID, "a")
	if err != nil {
		t.Fatal(err)
	}
	if snap.CurrentQuestionIndex != 1 {
		t.Errorf("index = %d, want 1", snap.CurrentQuestionIndex)
	}
	if len(snap.Answers) != 0 {
		t.Errorf("answers = %v, want cleared in the same write", snap.Answers)
	}

	// Every snapshot a subscriber can observe must satisfy the same
	// invariant.
	for {
		select {
		case observed := <-snaps:
			if observed.CurrentQuestionIndex > 0 && len(observed.Answers) != 0 {
				t.Fatalf("observed snapshot pairs index %d with stale answers %v",
					observed.CurrentQuestionIndex, observed.Answers)
			}
		default:
			return
		}
	}
}

func TestGameFinishesAfterLastQuestion(t *testing.T) {
	m, _, roomID := startedGame(t)
	ctx := context.Background()

	// Round 1.
	if _, err := m.SubmitAnswer(ctx, roomID, "a", "Paris"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitAnswer(ctx, roomID, "b", "London"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AdvanceQuestion(ctx, roomID, "a"); err != nil {
		t.Fatal(err)
	}

	// Round 2 (last).
	if _, err := m.SubmitAnswer(ctx, roomID, "a", "Mark Twain"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitAnswer(ctx, roomID, "b", "William Shakespeare"); err != nil {
		t.Fatal(err)
	}

	snap, err := m.AdvanceQuestion(ctx, roomID, "a")
	if err != nil {
		t.Fatal(err)
	}
	if snap.GameState != GameFinished {
		t.Fatalf("GameState = %q, want %q", snap.GameState, GameFinished)
	}
	if snap.CurrentQuestionIndex != 1 {
		t.Errorf("index = %d, want to stay on the last question", snap.CurrentQuestionIndex)
	}

	// Terminal state: nothing advances out of finished.
	if _, err := m.AdvanceQuestion(ctx, roomID, "a"); !errors.Is(err, ErrWrongGameState) {
		t.Fatalf("AdvanceQuestion after finish = %v, want ErrWrongGameState", err)
	}
}

func TestScoreboardSortsByScoreDescending(t *testing.T) {
	room := &Room{
		Players: []Player{
			{UID: "a", Name: "Alice", Score: 1},
			{UID: "b", Name: "Bob", Score: 3},
			{UID: "c", Name: "Carol", Score: 1},
		},
	}

	board := room.scoreboard()

	if board[0].UID != "b" {
		t.Errorf("leader = %q, want %q", board[0].UID, "b")
	}
	// Ties keep join order.
	if board[1].UID != "a" || board[2].UID != "c" {
		t.Errorf("tie order = %q, %q, want a then c", board[1].UID, board[2].UID)
	}
	// Original list untouched.
	if room.Players[0].UID != "a" {
		t.Error("scoreboard reordered the live player list")
	}
}

// The full multiplayer session from lobby to final scores.
func TestEndToEndScenario(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	roomID, err := m.CreateRoom(ctx, "a", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.JoinRoom(ctx, roomID, "b", "Bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartGame(ctx, roomID, "a"); err != nil {
		t.Fatal(err)
	}

	// Q1: Alice correct, Bob incorrect.
	if _, err := m.SubmitAnswer(ctx, roomID, "a", "Paris"); err != nil {
		t.Fatal(err)
	}
	snap, err := m.SubmitAnswer(ctx, roomID, "b", "Berlin")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.allAnswered() {
		t.Fatal("round not complete after both answered")
	}
	if snap.Players[snap.playerIndex("a")].Score != 1 || snap.Players[snap.playerIndex("b")].Score != 0 {
		t.Fatalf("scores after Q1 = %+v, want A:1 B:0", snap.Players)
	}

	snap, err = m.AdvanceQuestion(ctx, roomID, "a")
	if err != nil {
		t.Fatal(err)
	}
	if snap.CurrentQuestionIndex != 1 || len(snap.Answers) != 0 {
		t.Fatalf("after advance: index=%d answers=%v, want 1 and empty", snap.CurrentQuestionIndex, snap.Answers)
	}

	// Q2: both correct.
	if _, err := m.SubmitAnswer(ctx, roomID, "a", "William Shakespeare"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitAnswer(ctx, roomID, "b", "William Shakespeare"); err != nil {
		t.Fatal(err)
	}

	snap, err = m.AdvanceQuestion(ctx, roomID, "a")
	if err != nil {
		t.Fatal(err)
	}
	if snap.GameState != GameFinished {
		t.Fatalf("GameState = %q, want %q", snap.GameState, GameFinished)
	}

	board := snap.scoreboard()
	if board[0].UID != "a" || board[0].Score != 2 {
		t.Errorf("winner = %+v, want Alice with 2", board[0])
	}
	if board[1].UID != "b" || board[1].Score != 1 {
		t.Errorf("runner-up = %+v, want Bob with 1", board[1])
	}

	// Everyone leaves; the room disappears.
	if err := m.LeaveRoom(ctx, roomID, "b"); err != nil {
		t.Fatal(err)
	}
	if err := m.LeaveRoom(ctx, roomID, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, roomID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("room still exists after everyone left: %v", err)
	}
}

func TestSoloGameFlow(t *testing.T) {
	game := newSoloGame("u", "Solo", fallbackQuestions())

	snap := game.Snapshot()
	if snap.GameState != GamePlaying {
		t.Fatalf("solo game starts in %q, want %q", snap.GameState, GamePlaying)
	}
	if len(snap.Players) != 1 {
		t.Fatalf("solo game has %d players, want 1", len(snap.Players))
	}

	snap, err := game.SubmitAnswer("Paris")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Players[0].Score != 1 {
		t.Errorf("score = %d, want 1", snap.Players[0].Score)
	}
	if !snap.allAnswered() {
		t.Error("single answer should complete the round")
	}

	if _, err := game.SubmitAnswer("Paris"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("second answer = %v, want ErrAlreadyAnswered", err)
	}

	snap, err = game.AdvanceQuestion()
	if err != nil {
		t.Fatal(err)
	}
	if snap.CurrentQuestionIndex != 1 || len(snap.Answers) != 0 {
		t.Fatalf("after advance: index=%d answers=%v, want 1 and empty", snap.CurrentQuestionIndex, snap.Answers)
	}

	if _, err := game.SubmitAnswer("Leo Tolstoy"); err != nil {
		t.Fatal(err)
	}
	snap, err = game.AdvanceQuestion()
	if err != nil {
		t.Fatal(err)
	}
	if snap.GameState != GameFinished {
		t.Fatalf("GameState = %q, want %q", snap.GameState, GameFinished)
	}
	if snap.Players[0].Score != 1 {
		t.Errorf("final score = %d, want 1", snap.Players[0].Score)
	}
}
