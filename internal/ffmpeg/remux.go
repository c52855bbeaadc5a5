// Package ffmpeg writes tagged copies of audio files with the ffmpeg binary.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
)

const maxStderr = 2048

type Remuxer struct {
	Bin string
}

func NewRemuxer(bin string) *Remuxer {
	if bin == "" {
		bin = constants.DefaultFFmpegBin
	}
	return &Remuxer{Bin: bin}
}

// Args builds an argument list that copies the audio stream without
// re-encoding, writes ID3v2.3 tags and, with a cover, attaches it as the
// front cover picture.
func Args(req domain.RemuxRequest) []string {
	args := []string{"-y", "-i", req.Source}
	if req.Cover != "" {
		args = append(args, "-i", req.Cover, "-map", "0:a", "-map", "1:0")
	} else {
		args = append(args, "-map", "0:a")
	}
	args = append(args,
		"-c", "copy",
		"-id3v2_version", "3",
		"-metadata", "title="+req.Meta.Title,
		"-metadata", "artist="+req.Meta.Artist,
		"-metadata", "album="+req.Meta.Album,
	)
	if req.Meta.Track > 0 {
		args = append(args, "-metadata", "track="+strconv.FormatUint(uint64(req.Meta.Track), 10))
	}
	if req.Cover != "" {
		args = append(args,
			"-metadata:s:v", "title="+constants.CoverTitle,
			"-metadata:s:v", "comment="+constants.CoverComment,
		)
	}
	return append(args, req.Output)
}

// Remux runs ffmpeg for req. The error carries the tail of ffmpeg's stderr.
func (r *Remuxer) Remux(ctx context.Context, req domain.RemuxRequest) error {
	cmd := exec.CommandContext(ctx, r.Bin, Args(req)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), maxStderr))
	}
	return nil
}

// Version checks that the binary is usable and returns its banner line.
func (r *Remuxer) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.Bin, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s not usable: %w", r.Bin, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
