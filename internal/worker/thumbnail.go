package worker

import (
	"context"
	"fmt"
	"os/exec"
)

// ThumbnailGenerator extracts a representative still from a video.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, videoPath, outputPath string) error
}

type ffmpegThumbnailer struct{}

func NewFfmpegThumbnailer() ThumbnailGenerator {
	return &ffmpegThumbnailer{}
}

func (g *ffmpegThumbnailer) Generate(ctx context.Context, videoPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", "00:00:01",
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg thumbnail failed: %v output: %s", err, string(output))
	}
	return nil
}
