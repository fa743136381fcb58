/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func getFavicon() string {
	return `<meta name="theme-color" content="#1e1b4b">`
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}

// homePage is the menu: create a room, or join one by code. A ?room=
// query parameter (the shareable join link) pre-fills the join form.
func homePage(cfg *Config, joinCode string) string {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	b.WriteString(getFavicon())
	b.WriteString(`<title>triviabox</title></head><body>`)
	b.WriteString(`<h1>triviabox</h1>`)
	b.WriteString(`<form method="post" action="` + cfg.prefix + `/trivia/rooms">`)
	b.WriteString(`<input type="text" name="name" placeholder="Enter name (optional)" maxlength="32">`)
	b.WriteString(`<button type="submit">Create Room</button></form>`)
	b.WriteString(`<form method="get" action="` + cfg.prefix + `/trivia">`)
	b.WriteString(fmt.Sprintf(`<input type="text" name="room" placeholder="ROOM CODE" maxlength="%d" value="%s">`,
		roomCodeLength, template.HTMLEscapeString(joinCode)))
	b.WriteString(`<button type="submit">Join Room</button></form>`)
	if joinCode != "" {
		b.WriteString(fmt.Sprintf(`<p><a href="%s/trivia/rooms/%s">Joining room %s...</a></p>`,
			cfg.prefix, template.HTMLEscapeString(joinCode), template.HTMLEscapeString(joinCode)))
	}
	b.WriteString(`</body></html>`)

	return b.String()
}

// roomPage is the static shell for one room; gameplay happens over the
// room's websocket.
func roomPage(cfg *Config, roomID string) string {
	var b strings.Builder

	escaped := template.HTMLEscapeString(roomID)

	b.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	b.WriteString(getFavicon())
	b.WriteString(fmt.Sprintf(`<title>triviabox - room %s</title></head><body>`, escaped))
	b.WriteString(fmt.Sprintf(`<h1>Room %s</h1>`, escaped))
	b.WriteString(fmt.Sprintf(`<img src="%s/trivia/rooms/%s/qr" alt="QR code for this room" width="320" height="320">`,
		cfg.prefix, escaped))
	b.WriteString(`<p>Share the room code or the QR code with your friends!</p>`)
	b.WriteString(`</body></html>`)

	return b.String()
}
