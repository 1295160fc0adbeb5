// Package piper synthesizes clips with a Piper server over the Wyoming protocol.
//
// Wyoming frames every event as
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
//
// A synthesize request is answered with audio-start, any number of
// audio-chunk events carrying raw PCM, and audio-stop.
package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/forPelevin/narrate/internal/types"
)

const (
	dialTimeout    = 10 * time.Second
	requestTimeout = 2 * time.Minute
)

type Config struct {
	// Endpoint is the Wyoming TCP address (host:port).
	Endpoint string
	// Voice is the Piper voice model name; empty uses the server default.
	Voice string
}

type Adapter struct {
	endpoint string
	voice    string
}

func New(cfg Config) *Adapter {
	ep := strings.TrimPrefix(cfg.Endpoint, "tcp://")
	return &Adapter{endpoint: ep, voice: cfg.Voice}
}

// RequiresReferenceVoice is false: Piper voices are fixed models.
func (a *Adapter) RequiresReferenceVoice() bool { return false }

func (a *Adapter) Synthesize(ctx context.Context, req types.SynthRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("empty text for synthesis")
	}
	if a.endpoint == "" {
		return fmt.Errorf("no piper endpoint configured")
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", a.endpoint)
	if err != nil {
		return fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(requestTimeout))
	}

	data := map[string]any{"text": req.Text}
	if a.voice != "" {
		data["voice"] = map[string]any{"name": a.voice}
	}
	if err := writeEvent(conn, event{Type: "synthesize", Data: data}, nil); err != nil {
		return fmt.Errorf("sending synthesize event: %w", err)
	}

	pcm, f, err := readAudio(bufio.NewReader(conn))
	if err != nil {
		return err
	}
	log.Debug().
		Str("out", filepath.Base(req.OutPath)).
		Int("rate", f.rate).
		Int("channels", f.channels).
		Int("pcm_bytes", len(pcm)).
		Msg("piper audio received")

	if err := os.MkdirAll(filepath.Dir(req.OutPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(req.OutPath, pcmToWAV(pcm, f), 0o644)
}

type pcmFormat struct {
	rate     int
	channels int
	width    int
}

func readAudio(r *bufio.Reader) ([]byte, pcmFormat, error) {
	var (
		pcm bytes.Buffer
		f   = pcmFormat{rate: 22050, channels: 1, width: 2}
	)
	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return nil, f, fmt.Errorf("reading piper event: %w", err)
		}
		switch evt.Type {
		case "audio-start":
			if v, ok := evt.Data["rate"].(float64); ok {
				f.rate = int(v)
			}
			if v, ok := evt.Data["channels"].(float64); ok {
				f.channels = int(v)
			}
			if v, ok := evt.Data["width"].(float64); ok {
				f.width = int(v)
			}
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			return pcm.Bytes(), f, nil
		case "error":
			msg := "unknown error"
			if s, ok := evt.Data["text"].(string); ok {
				msg = s
			}
			return nil, f, fmt.Errorf("piper error: %s", msg)
		default:
			log.Debug().Str("type", evt.Type).Msg("piper: ignoring event")
		}
	}
}

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeEvent(w io.Writer, evt event, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d %d\n", len(body), len(payload))
	b.Write(body)
	b.WriteByte('\n')
	b.Write(payload)
	_, err = w.Write(b.Bytes())
	return err
}

func readEvent(r *bufio.Reader) (event, []byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return event{}, nil, fmt.Errorf("reading header: %w", err)
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return event{}, nil, fmt.Errorf("invalid wyoming header: %q", header)
	}
	jsonLen, err := strconv.Atoi(parts[0])
	if err != nil {
		return event{}, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(parts[1])
	if err != nil {
		return event{}, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	body := make([]byte, jsonLen+1) // trailing newline
	if _, err := io.ReadFull(r, body); err != nil {
		return event{}, nil, fmt.Errorf("reading json: %w", err)
	}
	var evt event
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return event{}, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return event{}, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return evt, payload, nil
}

// pcmToWAV wraps raw little-endian PCM in a 44-byte RIFF header.
func pcmToWAV(pcm []byte, f pcmFormat) []byte {
	var b bytes.Buffer
	b.Grow(44 + len(pcm))

	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&b, binary.LittleEndian, uint16(f.channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(f.rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(f.rate*f.channels*f.width))
	_ = binary.Write(&b, binary.LittleEndian, uint16(f.channels*f.width))
	_ = binary.Write(&b, binary.LittleEndian, uint16(f.width*8))

	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}
