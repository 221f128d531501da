//go:build ceph

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
	"bytes"
	"io"
	"path"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephConfig names the cluster, pool and optional prefix a CephStorage
// connects to. Built only with -tags=ceph (go-ceph cgo-wraps librados).
type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
	Codec       Codec
}

// CephStorage is the go-ceph/rados-backed PersistenceEngine.
type CephStorage struct {
	cfg CephConfig

	mu     sync.Mutex
	conn   *rados.Conn
	ioctx  *rados.IOContext
	opened bool
}

func NewCephStorage(cfg CephConfig) *CephStorage {
	if cfg.Codec == nil {
		cfg.Codec = LZ4Codec{}
	}
	return &CephStorage{cfg: cfg}
}

func (s *CephStorage) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}

	conn, err := rados.NewConnWithClusterAndUser(s.cfg.ClusterName, s.cfg.UserName)
	if err != nil {
		return err
	}
	if s.cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(s.cfg.ConfFile); err != nil {
			return err
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		return err
	}

	ioctx, err := conn.OpenIOContext(s.cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return err
	}

	s.conn, s.ioctx, s.opened = conn, ioctx, true
	return nil
}

func (s *CephStorage) obj(id string) string { return path.Join(s.cfg.Prefix, id) }

func (s *CephStorage) Read(id string) (io.ReadCloser, bool, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, false, err
	}
	obj := s.obj(id)
	stat, err := s.ioctx.Stat(obj)
	if err != nil {
		return nil, false, nil
	}
	data := make([]byte, stat.Size)
	n, err := s.ioctx.Read(obj, data, 0)
	if err != nil {
		return nil, false, err
	}
	rc, err := s.cfg.Codec.Decompress(bytes.NewReader(data[:n]))
	if err != nil {
		return nil, false, err
	}
	return rc, true, nil
}

func (s *CephStorage) Write(id string, data io.Reader) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	var buf bytes.Buffer
	wc, err := s.cfg.Codec.Compress(&buf)
	if err != nil {
		return err
	}
	if _, err := io.Copy(wc, data); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return s.ioctx.WriteFull(s.obj(id), buf.Bytes())
}

func (s *CephStorage) Remove(id string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.ioctx.Delete(s.obj(id))
}

// Watch reports nil: RADOS has no inotify-like primitive either.
func (s *CephStorage) Watch() (<-chan string, func(), error) {
	return nil, func() {}, nil
}
