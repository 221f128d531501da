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
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config names the bucket and credentials an S3Storage connects with.
// S3 does not support append or watch; one object per id, overwritten
// wholesale on every write.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // for S3-compatible stores (MinIO, Ceph RGW, ...)
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
	Codec           Codec
}

// S3Storage is the aws-sdk-go-v2-backed PersistenceEngine.
type S3Storage struct {
	cfg S3Config

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

func NewS3Storage(cfg S3Config) *S3Storage {
	if cfg.Codec == nil {
		cfg.Codec = LZ4Codec{}
	}
	return &S3Storage{cfg: cfg}
}

func (s *S3Storage) ensureOpen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}

	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("stm: loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.cfg.Endpoint) })
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	s.opened = true
	return nil
}

func (s *S3Storage) key(id string) string {
	if s.cfg.Prefix == "" {
		return id
	}
	return s.cfg.Prefix + "/" + id
}

func (s *S3Storage) Read(id string) (io.ReadCloser, bool, error) {
	ctx := context.Background()
	if err := s.ensureOpen(ctx); err != nil {
		return nil, false, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	// buffered: the decompressing reader must outlive this function,
	// but resp.Body does not.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	rc, err := s.cfg.Codec.Decompress(bytes.NewReader(raw))
	if err != nil {
		return nil, false, err
	}
	return rc, true, nil
}

func (s *S3Storage) Write(id string, data io.Reader) error {
	ctx := context.Background()
	if err := s.ensureOpen(ctx); err != nil {
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

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(id)),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	return err
}

func (s *S3Storage) Remove(id string) error {
	ctx := context.Background()
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(id)),
	})
	return err
}

// Watch reports nil: S3 has no inotify-like primitive, so external
// writes to the bucket go undetected until the next Read.
func (s *S3Storage) Watch() (<-chan string, func(), error) {
	return nil, func() {}, nil
}
