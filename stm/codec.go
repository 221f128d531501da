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
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// LZ4Codec is the hot-path codec: fast enough to use on every write,
// trading ratio for latency. Use it for a store that's written on
// every commit.
type LZ4Codec struct{}

func (LZ4Codec) Name() string { return "lz4" }

func (LZ4Codec) Compress(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (LZ4Codec) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// XZCodec is the cold/archival codec: much better ratio, much slower.
// Use it for a store whose writes are rare (e.g. a nightly export).
type XZCodec struct{}

func (XZCodec) Name() string { return "xz" }

func (XZCodec) Compress(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func (XZCodec) Decompress(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

// NoCodec stores blobs uncompressed.
type NoCodec struct{}

func (NoCodec) Name() string { return "none" }

func (NoCodec) Compress(w io.Writer) (io.WriteCloser, error) { return nopWriteCloser{w}, nil }

func (NoCodec) Decompress(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
