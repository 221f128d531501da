/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package stm

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// LiveFeed broadcasts a line of text to every connected websocket client
// for each commit a Memory applies — a read-only tap for dashboards and
// debugging, not part of the transaction protocol itself.
type LiveFeed struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]struct{}
	upgrader  websocket.Upgrader
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a websocket and keeps the connection
// registered until it's closed by the client.
func (f *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.clients[conn] = struct{}{}
	f.mu.Unlock()

	go func() {
		defer func() {
			f.mu.Lock()
			delete(f.clients, conn)
			f.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends line to every currently connected client, dropping any
// that error on write. Writes have no deadline, so when called from a
// commit (see Attach) a slow client delays that commit.
func (f *LiveFeed) Broadcast(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			conn.Close()
			delete(f.clients, conn)
		}
	}
}

// Attach wires feed to report every successful commit into m, formatted
// as "<memory-name>: committed N cursor(s)".
func Attach(m *Memory, feed *LiveFeed) {
	m.onCommit = func(n int) {
		feed.Broadcast(fmt.Sprintf("%s: committed %d cursor(s)", m.name, n))
	}
}
