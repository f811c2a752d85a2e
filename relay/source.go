package relay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

type readCloser struct {
	io.Reader
	io.Closer
}

// Open resolves a source name: "-" is standard input, an http or https
// URL is fetched, anything else is a file. WAV headers are skipped.
func Open(ctx context.Context, name string, logger *log.Logger) (io.ReadCloser, error) {
	switch {
	case name == "-":
		return os.Stdin, nil
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"):
		return OpenURL(ctx, http.DefaultClient, name)
	default:
		return OpenFile(name, logger)
	}
}

func OpenFile(path string, logger *log.Logger) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if string(magic) != "RIFF" {
		return readCloser{br, f}, nil
	}

	format, err := SkipWAVHeader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info(
		"wav",
		"path", path,
		"rate", format.SampleRate,
		"channels", format.NumChannels,
		"bits", format.BitsPerSample,
	)
	if format.AudioFormat != 1 || format.BitsPerSample != 16 {
		logger.Warn("audio is not 16-bit PCM", "path", path, "format", format.AudioFormat)
	}
	return readCloser{br, f}, nil
}

func OpenURL(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch audio: unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}
