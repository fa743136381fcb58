// Triviabox Quiz Game
//
// Multiplayer trivia rooms with a shared game document, plus a local
// single-player mode.
//
// Features:
// - Rooms keyed by a 6-character code, joinable via code, link, or QR
// - One websocket per room: /trivia/rooms/:roomid/ws
// - Room creator becomes host; host starts the game and advances questions
// - Host role migrates to the next player in join order when the host leaves
// - Rooms are deleted when the last player leaves, and reaped when idle
// - Players identified by cookie (playerID)
// - Every committed room write is fanned out to all subscribers as a
//   full snapshot; clients re-derive their view from each snapshot
// - Questions fetched from the Open Trivia DB, static fallback on failure
// - In-browser QR sharing of the join link, backed by go-qrcode
// - Single-player mode over /trivia/solo/ws with purely local state

package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type   string `json:"type"`             // "join", "start_game", "answer", "next_question", "leave"
	Name   string `json:"name,omitempty"`   // join
	Answer string `json:"answer,omitempty"` // answer
}

// SessionInfoMessage is sent first on connect so the client knows its
// identity and role before the first snapshot arrives.
type SessionInfoMessage struct {
	Type   string `json:"type"` // "session_info"
	UID    string `json:"uid"`
	RoomID string `json:"room_id,omitempty"`
	IsHost bool   `json:"is_host"`
}

// RoomStateMessage carries a full Room snapshot. Clients re-derive all
// rendering state from it; there is no incremental protocol.
type RoomStateMessage struct {
	Type        string `json:"type"` // "room_state"
	Room        *Room  `json:"room"`
	AllAnswered bool   `json:"all_answered"`
	ShareLink   string `json:"share_link,omitempty"`
}

// ErrorMessage is sent only to the client whose action failed.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SimpleMessage is for generic notifications ("room_closed", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func roomState(snap *Room, shareLink string) RoomStateMessage {
	return RoomStateMessage{
		Type:        "room_state",
		Room:        snap,
		AllAnswered: snap.allAnswered(),
		ShareLink:   shareLink,
	}
}

// errorMessage translates an operation error into the user-facing
// taxonomy. Anything unrecognized becomes a generic "try again".
func errorMessage(err error) ErrorMessage {
	msg := ErrorMessage{Type: "error"}

	switch {
	case errors.Is(err, ErrRoomNotFound):
		msg.Code = "room_not_found"
		msg.Message = "Room not found. Check the code and try again."
	case errors.Is(err, ErrNotHost):
		msg.Code = "not_host"
		msg.Message = "Only the host can do that."
	case errors.Is(err, ErrAlreadyAnswered):
		msg.Code = "already_answered"
		msg.Message = "You have already answered this question."
	case errors.Is(err, ErrRoundOpen):
		msg.Code = "round_open"
		msg.Message = "Waiting for all players to answer."
	case errors.Is(err, ErrWrongGameState):
		msg.Code = "wrong_state"
		msg.Message = "That action is not available right now."
	case errors.Is(err, ErrNotInRoom):
		msg.Code = "not_in_room"
		msg.Message = "Join the room before playing."
	default:
		msg.Code = "try_again"
		msg.Message = "Something went wrong. Please try again."
	}

	return msg
}

type Client struct {
	conn     *websocket.Conn
	playerID string

	mu     sync.Mutex
	closed bool
	send   chan any
}

func newClient(conn *websocket.Conn, playerID string) *Client {
	return &Client{
		conn:     conn,
		playerID: playerID,
		send:     make(chan any, 8),
	}
}

// trySend queues a message without blocking. A client that cannot keep
// up is disconnected rather than allowed to stall writers.
func (c *Client) trySend(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		c.closed = true
		close(c.send)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "triviabox_id"

// getOrSetPlayerID returns the anonymous session identifier for this
// browser, minting one on first contact. It is stable for the cookie's
// lifetime and never persisted server-side.
func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

var (
	nameAdjectives = []string{"Clever", "Swift", "Witty", "Curious", "Brave", "Silent", "Daring", "Happy", "Lucky"}
	nameNouns      = []string{"Fox", "Jaguar", "Panda", "Raptor", "Lion", "Owl", "Wolf", "Monkey", "Eagle"}
)

// randomName fills in for players who join without picking one.
func randomName() string {
	return nameAdjectives[cryptoIntn(len(nameAdjectives))] + " " + nameNouns[cryptoIntn(len(nameNouns))]
}

// joinLink builds the shareable URL that pre-fills the join flow,
// respecting TLS and X-Forwarded-Proto for reverse proxies.
func joinLink(cfg *Config, r *http.Request, roomID string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + "/trivia?room=" + roomID
}

// serveTriviaHome renders the menu. A ?room= parameter (from a shared
// join link) pre-fills the join flow and skips the menu proper.
func serveTriviaHome(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		joinCode := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("room")))

		_, _ = w.Write([]byte(homePage(cfg, joinCode)))
	}
}

// serveCreateRoom handles room creation form posts. The creator's
// cookie identity becomes host.
func serveCreateRoom(cfg *Config, m *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" {
			name = randomName()
		}

		roomID, err := m.CreateRoom(r.Context(), playerID, name)
		if err != nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			securityHeaders(cfg, w)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(newPage("Error", "Could not create room. Please try again.")))
			return
		}

		http.Redirect(w, r, cfg.prefix+"/trivia/rooms/"+roomID, http.StatusSeeOther)
	}
}

func serveRoomPage(cfg *Config, store RoomStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := strings.ToUpper(ps.ByName("roomid"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		if _, err := store.Get(r.Context(), roomID); err != nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(newPage("Room not found", "This room no longer exists.")))
			return
		}

		_, _ = w.Write([]byte(roomPage(cfg, roomID)))
	}
}

// serveQR returns a PNG QR code of the room's join link.
func serveQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := strings.ToUpper(ps.ByName("roomid"))
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(joinLink(cfg, r, roomID), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// serveRoomWS is the gameplay websocket for one room. The client is
// subscribed to the room document; every committed write arrives as a
// room_state message. Disconnecting only unsubscribes; an explicit
// "leave" removes the player.
func serveRoomWS(cfg *Config, m *RoomManager, store RoomStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := strings.ToUpper(ps.ByName("roomid"))
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		shareLink := joinLink(cfg, r, roomID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := newClient(conn, playerID)
		go client.writePump()

		snaps, cancel, err := store.Subscribe(roomID)
		if err != nil {
			client.trySend(errorMessage(err))
			client.close()
			return
		}

		snap, ok := <-snaps
		if !ok {
			client.trySend(errorMessage(ErrRoomNotFound))
			client.close()
			return
		}

		client.trySend(SessionInfoMessage{
			Type:   "session_info",
			UID:    playerID,
			RoomID: roomID,
			IsHost: snap.HostID == playerID,
		})
		client.trySend(roomState(snap, shareLink))

		go func() {
			for snap := range snaps {
				client.trySend(roomState(snap, shareLink))
			}

			// Closed subscription means the room was deleted (or this
			// client unsubscribed on its way out).
			client.trySend(SimpleMessage{
				Type:    "room_closed",
				Message: "This room no longer exists.",
			})
			client.close()
		}()

		client.readPump(cfg, m, roomID)
		cancel()
		client.close()
	}
}

func (c *Client) readPump(cfg *Config, m *RoomManager, roomID string) {
	defer c.conn.Close()

	ctx := context.Background()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join":
			name := strings.TrimSpace(msg.Name)
			if name == "" {
				name = randomName()
			}
			if _, err := m.JoinRoom(ctx, roomID, c.playerID, name); err != nil {
				c.trySend(errorMessage(err))
			}

		case "start_game":
			if _, err := m.StartGame(ctx, roomID, c.playerID); err != nil {
				c.trySend(errorMessage(err))
			}

		case "answer":
			if _, err := m.SubmitAnswer(ctx, roomID, c.playerID, msg.Answer); err != nil {
				c.trySend(errorMessage(err))
			}

		case "next_question":
			if _, err := m.AdvanceQuestion(ctx, roomID, c.playerID); err != nil {
				c.trySend(errorMessage(err))
			}

		case "leave":
			if err := m.LeaveRoom(ctx, roomID, c.playerID); err != nil {
				c.trySend(errorMessage(err))
				continue
			}
			return

		default:
			// ignore unknown types
		}
	}
}

// serveSoloWS runs the single-player variant: the same state machine
// applied synchronously to local state, snapshots sent only to this
// one socket.
func serveSoloWS(cfg *Config, m *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := newClient(conn, playerID)
		go client.writePump()

		defer func() {
			client.close()
			conn.Close()
		}()

		var game *SoloGame

		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}

			switch msg.Type {
			case "join":
				if game != nil {
					client.trySend(roomState(game.Snapshot(), ""))
					continue
				}
				name := strings.TrimSpace(msg.Name)
				if name == "" {
					name = randomName()
				}
				questions := m.loader.Load(r.Context(), cfg.questionCount, cfg.questionCategory, cfg.questionDifficulty)
				game = newSoloGame(playerID, name, questions)
				logf(cfg, "GAMES: %q started a solo game", name)

				client.trySend(SessionInfoMessage{
					Type:   "session_info",
					UID:    playerID,
					IsHost: true,
				})
				client.trySend(roomState(game.Snapshot(), ""))

			case "answer":
				if game == nil {
					client.trySend(errorMessage(ErrWrongGameState))
					continue
				}
				snap, err := game.SubmitAnswer(msg.Answer)
				if err != nil {
					client.trySend(errorMessage(err))
					continue
				}
				client.trySend(roomState(snap, ""))

			case "next_question":
				if game == nil {
					client.trySend(errorMessage(ErrWrongGameState))
					continue
				}
				snap, err := game.AdvanceQuestion()
				if err != nil {
					client.trySend(errorMessage(err))
					continue
				}
				client.trySend(roomState(snap, ""))

			case "leave":
				return

			default:
				// ignore unknown types
			}
		}
	}
}

// registerTriviaGame sets up routes so that:
//   - /trivia                    → menu (pre-filled join via ?room=)
//   - /trivia/rooms (POST)       → create a room, redirect to it
//   - /trivia/rooms/:roomid      → HTML client shell
//   - /trivia/rooms/:roomid/ws   → gameplay websocket for that room
//   - /trivia/rooms/:roomid/qr   → PNG QR code of the join link
//   - /trivia/solo/ws            → single-player websocket
func registerTriviaGame(cfg *Config, m *RoomManager, store RoomStore, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/trivia", serveTriviaHome(cfg))
	mux.POST(cfg.prefix+"/trivia/rooms", serveCreateRoom(cfg, m))
	mux.GET(cfg.prefix+"/trivia/rooms/:roomid", serveRoomPage(cfg, store))
	mux.GET(cfg.prefix+"/trivia/rooms/:roomid/ws", serveRoomWS(cfg, m, store))
	mux.GET(cfg.prefix+"/trivia/rooms/:roomid/qr", serveQR(cfg))
	mux.GET(cfg.prefix+"/trivia/solo/ws", serveSoloWS(cfg, m))
}
