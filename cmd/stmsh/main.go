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

/*
stmsh is an interactive shell over a single in-process stm.Memory, for
poking at the transaction engine by hand.
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dc0d/onexit"

	"github.com/launix-de/stm/stm"
)

const (
	newprompt  = "\033[32m>\033[0m "
	resultprompt = "\033[31m=\033[0m "
)

var cursors = map[int]*stm.Cursor{}
var nextHandle = 1

// persistent is non-nil when -data wired mem to a PersistentMemory, so
// "new" can hand out store-backed cursors instead of plain in-memory ones.
var persistent *stm.PersistentMemory

// rootMemory is whatever dispatch/runTxn need from the shell's root,
// satisfied by both *stm.Memory and *stm.PersistentMemory.
type rootMemory interface {
	stm.CurrentJournal
	Diagnostics() string
}

// textSerializer (de)serializes the StringCell values stmsh itself
// creates, so a PersistentMemory has something to encode cursors with.
type textSerializer struct{}

func (textSerializer) Kind(stm.Cell) string { return "str" }

func (textSerializer) Encode(c stm.Cell) ([]byte, error) {
	return []byte(c.(*stm.StringCell).Value), nil
}

func (textSerializer) Decode(kind string, data []byte) (stm.Cell, error) {
	if kind != "str" {
		return nil, fmt.Errorf("stmsh: unknown persisted kind %q", kind)
	}
	return stm.NewStringCell(string(data)), nil
}

func main() {
	dataDir := flag.String("data", "", "directory to persist cursors under (empty = in-memory only)")
	flag.Parse()

	var mem rootMemory
	if *dataDir != "" {
		store, err := stm.NewFileStorage(*dataDir, stm.LZ4Codec{})
		if err != nil {
			panic(err)
		}
		persistent = stm.NewPersistentMemory("*stmsh*", true, true, store, textSerializer{})
		mem = persistent
	} else {
		mem = stm.NewMemory("*stmsh*", true, true)
	}
	onexit.Register(func() { fmt.Println("bye") })

	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".stmsh-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Println("stmsh — commands: new, set <h> <text>, get <h>, del <h>, stat, exit")
	if persistent != nil {
		fmt.Printf("persisting cursors under %s\n", *dataDir)
	}

	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("error:", r)
				}
			}()
			fmt.Print(resultprompt)
			fmt.Println(dispatch(mem, line))
		}()
	}
}

func dispatch(mem rootMemory, line string) string {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "stat":
		return mem.Diagnostics()

	case "new":
		var handle int
		if persistent != nil {
			c, err := persistent.NewPersistentCursor(stm.NewStringCell(""))
			if err != nil {
				panic(err)
			}
			handle = registerCursor(c)
			return fmt.Sprintf("#%d", handle)
		}
		err := stm.Initialize(mem, func() {
			if txErr := stm.Transaction(func() error {
				c := stm.NewCursor()
				if err := stm.Allocate(c, stm.Live(stm.NewStringCell(""))); err != nil {
					return err
				}
				handle = registerCursor(c)
				return nil
			}); txErr != nil {
				panic(txErr)
			}
		})
		if err != nil {
			panic(err)
		}
		return fmt.Sprintf("#%d", handle)

	case "set":
		if len(fields) < 3 {
			return "usage: set <handle> <text>"
		}
		c, err := lookupCursor(fields[1])
		if err != nil {
			return err.Error()
		}
		text := strings.Join(fields[2:], " ")
		return runTxn(mem, func() error {
			return stm.WriteValue(c, stm.NewStringCell(text))
		})

	case "get":
		if len(fields) < 2 {
			return "usage: get <handle>"
		}
		c, err := lookupCursor(fields[1])
		if err != nil {
			return err.Error()
		}
		var out string
		txErr := runTxn(mem, func() error {
			s, err := stm.Readable(c)
			if err != nil {
				return err
			}
			if s.IsMissing() {
				out = "<missing>"
				return nil
			}
			out = fmt.Sprint(s.Value)
			return nil
		})
		if txErr != "ok" {
			return txErr
		}
		return out

	case "del":
		if len(fields) < 2 {
			return "usage: del <handle>"
		}
		c, err := lookupCursor(fields[1])
		if err != nil {
			return err.Error()
		}
		return runTxn(mem, func() error { return stm.Delete(c) })

	default:
		return "unknown command: " + cmd
	}
}

// runTxn wraps body in Initialize+Transaction and normalizes the result
// to "ok" or an error message, for commands that don't need a value back.
func runTxn(mem rootMemory, body func() error) string {
	var bodyErr error
	err := stm.Initialize(mem, func() {
		bodyErr = stm.Transaction(body)
	})
	if err != nil {
		return err.Error()
	}
	if bodyErr != nil {
		return bodyErr.Error()
	}
	return "ok"
}

func registerCursor(c *stm.Cursor) int {
	h := nextHandle
	nextHandle++
	cursors[h] = c
	return h
}

func lookupCursor(s string) (*stm.Cursor, error) {
	h, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil {
		return nil, fmt.Errorf("not a handle: %q", s)
	}
	c, ok := cursors[h]
	if !ok {
		return nil, fmt.Errorf("no such handle: #%d", h)
	}
	return c, nil
}
