package repository

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amankumarsingh77/video-scene-indexer/internal/indexing"
)

type fsArtifactRepo struct {
	baseDir string
}

// NewFsArtifactRepo stores checkpoint artifacts on the local
// filesystem under baseDir, one directory per video.
func NewFsArtifactRepo(baseDir string) indexing.ArtifactRepository {
	return &fsArtifactRepo{
		baseDir: baseDir,
	}
}

// videoDir derives a stable directory name from the video's identity.
// The basename stem keeps directories inspectable, the hash prefix
// keeps distinct videos with the same basename apart.
func (f *fsArtifactRepo) videoDir(videoPath string) string {
	sum := sha1.Sum([]byte(videoPath))
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(f.baseDir, fmt.Sprintf("%s_%s", stem, hex.EncodeToString(sum[:])[:12]))
}

func (f *fsArtifactRepo) EnsureDir(videoPath string) error {
	if err := os.MkdirAll(f.videoDir(videoPath), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return nil
}

func (f *fsArtifactRepo) Exists(videoPath, name string) bool {
	info, err := os.Stat(f.Path(videoPath, name))
	return err == nil && !info.IsDir()
}

func (f *fsArtifactRepo) Load(videoPath, name string) ([]byte, error) {
	data, err := os.ReadFile(f.Path(videoPath, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return data, nil
}

func (f *fsArtifactRepo) Save(videoPath, name string, data []byte) error {
	if err := f.EnsureDir(videoPath); err != nil {
		return err
	}
	path := f.Path(videoPath, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	// rename so a partially written artifact never reads as a
	// completed checkpoint
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize artifact %s: %w", name, err)
	}
	return nil
}

func (f *fsArtifactRepo) Path(videoPath, name string) string {
	return filepath.Join(f.videoDir(videoPath), name)
}
