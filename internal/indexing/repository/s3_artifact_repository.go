package repository

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3OpTimeout = 30 * time.Second

type s3ArtifactRepo struct {
	client *s3.Client
	bucket string
}

// NewS3ArtifactRepo stores checkpoint artifacts in an object store
// bucket. Same keying scheme as the filesystem backend, so a deployment
// can switch backends without re-deriving checkpoint state.
func NewS3ArtifactRepo(client *s3.Client, bucket string) indexing.ArtifactRepository {
	return &s3ArtifactRepo{
		client: client,
		bucket: bucket,
	}
}

func (r *s3ArtifactRepo) videoPrefix(videoPath string) string {
	sum := sha1.Sum([]byte(videoPath))
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return fmt.Sprintf("%s_%s", stem, hex.EncodeToString(sum[:])[:12])
}

func (r *s3ArtifactRepo) key(videoPath, name string) string {
	return path.Join(r.videoPrefix(videoPath), name)
}

// EnsureDir is a no-op: object stores have no directories.
func (r *s3ArtifactRepo) EnsureDir(videoPath string) error {
	return nil
}

func (r *s3ArtifactRepo) Exists(videoPath, name string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()
	key := r.key(videoPath, name)
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
	})
	return err == nil
}

func (r *s3ArtifactRepo) Load(videoPath, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()
	key := r.key(videoPath, name)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact %s: %w", name, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return data, nil
}

func (r *s3ArtifactRepo) Save(videoPath, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()
	key := r.key(videoPath, name)
	size := int64(len(data))
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &r.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: &size,
	})
	if err != nil {
		return fmt.Errorf("failed to put artifact %s: %w", name, err)
	}
	return nil
}

func (r *s3ArtifactRepo) Path(videoPath, name string) string {
	return fmt.Sprintf("s3://%s/%s", r.bucket, r.key(videoPath, name))
}
