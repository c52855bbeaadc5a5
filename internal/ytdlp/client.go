// Package ytdlp runs yt-dlp to find and download audio for a search query.
package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
)

type Client struct {
	Bin         string
	AudioFormat string
}

func NewClient(bin, audioFormat string) *Client {
	if bin == "" {
		bin = constants.DefaultYTDLPBin
	}
	if audioFormat == "" {
		audioFormat = constants.DefaultAudioFormat
	}
	return &Client{Bin: bin, AudioFormat: audioFormat}
}

// Args builds the yt-dlp argument list. Only the first search hit is
// downloaded, and the final file path is printed after post-processing.
func (c *Client) Args(req domain.FetchRequest) []string {
	return []string{
		"-x",
		"--audio-format", c.AudioFormat,
		"--audio-quality", "0",
		"--no-embed-metadata",
		"--no-embed-thumbnail",
		"--no-warnings",
		"--no-playlist",
		"--newline",
		"--progress",
		"--print", constants.YTDLPPrintAfterMove,
		"-o", req.OutputTemplate,
		constants.YTDLPSearchPrefix + req.Query,
	}
}

// Fetch runs yt-dlp for req, passing every output line to onLine.
func (c *Client) Fetch(ctx context.Context, req domain.FetchRequest, onLine func(domain.OutputStream, string)) error {
	cmd := exec.CommandContext(ctx, c.Bin, c.Args(req)...)
	if dir := filepath.Dir(req.OutputTemplate); dir != "" {
		cmd.Dir = dir
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Bin, err)
	}

	var wg sync.WaitGroup
	read := func(stream domain.OutputStream, r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, constants.MaxScannerTokenBytes)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			if onLine != nil {
				onLine(stream, scanner.Text())
			}
		}
		// Drain so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}

	wg.Add(2)
	go read(domain.StreamStdout, stdoutPipe)
	go read(domain.StreamStderr, stderrPipe)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s failed: %w", filepath.Base(c.Bin), err)
	}
	return nil
}

// Version runs "yt-dlp --version" to check that the binary is usable.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, c.Bin, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s not usable: %w", c.Bin, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
