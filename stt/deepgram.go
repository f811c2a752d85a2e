package stt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	DeepgramURL = "wss://api.deepgram.com/v1/listen"
	PongTimeout = 10 * time.Second
)

type Options struct {
	Model          string
	Language       string
	Encoding       string
	SampleRate     int
	Channels       int
	Diarize        bool
	Utterances     bool
	InterimResults bool
}

// DefaultOptions describes 16 kHz mono linear PCM in Dutch with speaker
// diarization and interim results.
func DefaultOptions() Options {
	return Options{
		Model:          "general",
		Language:       "nl",
		Encoding:       "linear16",
		SampleRate:     16000,
		Channels:       1,
		Diarize:        true,
		Utterances:     true,
		InterimResults: true,
	}
}

func (o Options) Query() url.Values {
	q := url.Values{}
	q.Set("encoding", o.Encoding)
	q.Set("sample_rate", strconv.Itoa(o.SampleRate))
	q.Set("channels", strconv.Itoa(o.Channels))
	q.Set("model", o.Model)
	q.Set("language", o.Language)
	q.Set("diarize", strconv.FormatBool(o.Diarize))
	q.Set("utterances", strconv.FormatBool(o.Utterances))
	q.Set("interim_results", strconv.FormatBool(o.InterimResults))
	return q
}

type DeepgramClient struct {
	token   string
	logger  *log.Logger
	options Options

	BaseURL string
	Dialer  *websocket.Dialer
}

func NewDeepgramClient(
	token string,
	options Options,
	logger *log.Logger,
) *DeepgramClient {
	return &DeepgramClient{
		token:   token,
		logger:  logger,
		options: options,
		BaseURL: DeepgramURL,
		Dialer:  websocket.DefaultDialer,
	}
}

func (c *DeepgramClient) Endpoint() string {
	return c.BaseURL + "?" + c.options.Query().Encode()
}

// Dial opens one live transcription stream. The context bounds the
// handshake only.
func (c *DeepgramClient) Dial(ctx context.Context) (Stream, error) {
	header := http.Header{}
	header.Set("Authorization", fmt.Sprintf("Token %s", c.token))

	conn, resp, err := c.Dialer.DialContext(ctx, c.Endpoint(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf(
				"failed to connect to Deepgram (status %d): %w",
				resp.StatusCode,
				err,
			)
		}
		return nil, fmt.Errorf("failed to connect to Deepgram: %w", err)
	}

	c.logger.Info("open", "kind", "deepgram", "language", c.options.Language)

	return newConnection(conn, c.logger), nil
}
