package relay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrNotWAV = errors.New("not a WAV file")

type riffHeader struct {
	ChunkID   [4]byte // "RIFF"
	ChunkSize uint32
	Format    [4]byte // "WAVE"
}

type chunkHeader struct {
	ID   [4]byte
	Size uint32
}

// WAVFormat is the fmt chunk of a PCM WAV file.
type WAVFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// SkipWAVHeader consumes r up to the first byte of the data chunk and
// returns the format it declared. Chunks other than fmt and data are
// skipped.
func SkipWAVHeader(r io.Reader) (WAVFormat, error) {
	var riff riffHeader
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return WAVFormat{}, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff.ChunkID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return WAVFormat{}, ErrNotWAV
	}

	var format WAVFormat
	var haveFormat bool

	for {
		var ch chunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			return WAVFormat{}, fmt.Errorf("read WAV chunk: %w", err)
		}

		switch string(ch.ID[:]) {
		case "data":
			if !haveFormat {
				return WAVFormat{}, fmt.Errorf("%w: data before fmt chunk", ErrNotWAV)
			}
			return format, nil

		case "fmt ":
			if ch.Size < 16 {
				return WAVFormat{}, fmt.Errorf("%w: fmt chunk of %d bytes", ErrNotWAV, ch.Size)
			}
			if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
				return WAVFormat{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			if err := discard(r, int64(ch.Size)-16+int64(ch.Size%2)); err != nil {
				return WAVFormat{}, err
			}
			haveFormat = true

		default:
			if err := discard(r, int64(ch.Size)+int64(ch.Size%2)); err != nil {
				return WAVFormat{}, err
			}
		}
	}
}

func discard(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("skip WAV chunk: %w", err)
	}
	return nil
}
