package video

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Encoder produces one rendition.
type Encoder interface {
	// Available fails when the encoder cannot run at all.
	Available(ctx context.Context) error
	Encode(ctx context.Context, job Job) error
}

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	Binary string
}

func (f FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

func (f FFmpeg) Available(ctx context.Context) error {
	if _, err := exec.LookPath(f.binary()); err != nil {
		return fmt.Errorf("%s not found on PATH, install it first (macOS: brew install ffmpeg, Debian: apt install ffmpeg): %w", f.binary(), err)
	}
	return nil
}

func (f FFmpeg) Encode(ctx context.Context, job Job) error {
	cmd := exec.CommandContext(ctx, f.binary(), Args(job)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", job.Output, err, tail(stderr.String(), 10))
	}
	return nil
}

// Args are the ffmpeg arguments for job.
func Args(job Job) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	switch {
	case job.Kind == JobPoster:
		width := job.Width
		if width <= 0 {
			width = 1280
		}
		args = append(args,
			"-ss", strconv.FormatFloat(job.At.Seconds(), 'f', -1, 64),
			"-i", job.Input,
			"-frames:v", "1",
			"-vf", "scale="+strconv.Itoa(width)+":-2",
			"-q:v", "2",
		)
	case job.Format == "webm":
		args = append(args,
			"-i", job.Input,
			"-c:v", "libvpx-vp9",
			"-c:a", "libopus",
			"-vf", scale(job.Quality.Height),
			"-crf", strconv.Itoa(job.CRF),
			"-b:v", "0",
			"-row-mt", "1",
			"-b:a", "96k",
		)
	default:
		args = append(args,
			"-i", job.Input,
			"-c:v", "libx264",
			"-c:a", "aac",
			"-b:v", "1000k",
			"-b:a", "128k",
			"-vf", scale(job.Quality.Height),
			"-profile:v", "high",
			"-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
			"-crf", strconv.Itoa(job.CRF),
			"-preset", "slow",
		)
	}
	return append(args, job.Output)
}

// scale keeps the aspect ratio with an even width.
func scale(height int) string {
	return "scale=-2:" + strconv.Itoa(height)
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
