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
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileStorage is the local-disk PersistenceEngine: one file per
// persistent cursor id under Dir, run through Codec.
type FileStorage struct {
	Dir   string
	Codec Codec
}

// NewFileStorage creates the directory if it doesn't exist yet.
func NewFileStorage(dir string, codec Codec) (*FileStorage, error) {
	if codec == nil {
		codec = LZ4Codec{}
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	return &FileStorage{Dir: dir, Codec: codec}, nil
}

// idFilename hashes ids long enough to overflow common filesystem
// filename limits, mirroring the teacher's column-name hashing.
func idFilename(id string) string {
	if len(id) < 200 {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return fmt.Sprintf("%x", sum[:16])
}

func (f *FileStorage) path(id string) string {
	return filepath.Join(f.Dir, idFilename(id))
}

func (f *FileStorage) Read(id string) (io.ReadCloser, bool, error) {
	file, err := os.Open(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	rc, err := f.Codec.Decompress(file)
	if err != nil {
		file.Close()
		return nil, false, err
	}
	return &closeBoth{rc, file}, true, nil
}

func (f *FileStorage) Write(id string, data io.Reader) error {
	tmp := f.path(id) + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	wc, err := f.Codec.Compress(file)
	if err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if _, err := io.Copy(wc, data); err != nil {
		wc.Close()
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := wc.Close(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, f.path(id))
}

func (f *FileStorage) Remove(id string) error {
	err := os.Remove(f.path(id))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Watch uses fsnotify to report the file name of every entry created,
// written or removed in Dir, so a PersistentMemory can invalidate its
// cache of them. It does not tell this FileStorage's own Write and Remove
// calls apart from another process's changes, and an id long enough to be
// hashed by idFilename is reported under its hashed name.
func (f *FileStorage) Watch() (<-chan string, func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Add(f.Dir); err != nil {
		watcher.Close()
		return nil, nil, err
	}

	out := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if strings.HasSuffix(ev.Name, ".tmp") {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) {
					select {
					case out <- filepath.Base(ev.Name):
					case <-done:
						return
					}
				}
			case <-watcher.Errors:
				// best-effort: a watch error doesn't tear down the store
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		watcher.Close()
	}
	return out, stop, nil
}

// closeBoth closes a decompressing reader and the underlying file it
// wraps, in that order.
type closeBoth struct {
	io.ReadCloser
	file *os.File
}

func (c *closeBoth) Close() error {
	err1 := c.ReadCloser.Close()
	err2 := c.file.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
