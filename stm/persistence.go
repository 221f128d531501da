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

import "io"

/*

Persistence backend interface for PersistentMemory (§4.8).

A backend stores one blob per persistent cursor id, keyed by that id,
plus the notion of "someone else changed this key" for external-write
detection. stm ships three backends behind this interface: local files
(fsnotify-watched), S3 (aws-sdk-go-v2) and Ceph (go-ceph, cgo-gated).

*/

// PersistenceEngine is the storage backend a PersistentMemory writes
// through. Every method must be safe for concurrent use.
type PersistenceEngine interface {
	// Read opens the stored blob for id, or returns (nil, false, nil) if
	// there is none.
	Read(id string) (io.ReadCloser, bool, error)
	// Write stores data as id's blob, replacing any previous value.
	Write(id string, data io.Reader) error
	// Remove deletes id's blob. Removing an id that doesn't exist is not
	// an error.
	Remove(id string) error
	// Watch reports ids whose blobs changed in the store, until stopped.
	// A backend may also report changes this process made itself.
	// Backends that can't detect changes return a nil channel.
	Watch() (changed <-chan string, stop func(), err error)
}

// Codec compresses blobs written through a PersistenceEngine. Backends
// apply it uniformly; PersistentMemory picks the codec once at
// construction.
type Codec interface {
	Name() string
	Compress(w io.Writer) (io.WriteCloser, error)
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// ErrorReader is an io.ReadCloser that always fails with Err, for a
// backend that reports a lookup error through the returned reader. None
// of the backends in this package uses it; they return the error from
// Read directly.
type ErrorReader struct{ Err error }

func (e ErrorReader) Read([]byte) (int, error) { return 0, e.Err }
func (e ErrorReader) Close() error              { return nil }
