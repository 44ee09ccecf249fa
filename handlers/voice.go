package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"servicefinder/models"
	"servicefinder/utils"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	MaxDurationSeconds = 60              // 1 minute maximum
	MaxFileSize        = 5 * 1024 * 1024 // 5MB (conservative buffer)
	AllowedExtension   = ".wav"

	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtChunkSize    = 16
	pcmFormat       = 1
)

// AudioClip is validated 16-bit PCM audio ready for recognition.
type AudioClip struct {
	Data       []byte
	SampleRate int32
	Channels   int32
	Language   string
}

// Transcriber turns speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip AudioClip) (string, error)
}

type waveFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// waveFile is a parsed RIFF/WAVE file; samples is the payload of the data chunk.
type waveFile struct {
	waveFormat
	samples []byte
}

// parseWave walks the RIFF chunk list, so files carrying LIST or fact chunks before the
// samples (ffmpeg output, for one) are read correctly.
func parseWave(data []byte) (*waveFile, error) {
	if len(data) < riffHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	var (
		wav     waveFile
		haveFmt bool
	)
	for pos := riffHeaderSize; pos+chunkHeaderSize <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + chunkHeaderSize

		switch id {
		case "fmt ":
			if size < fmtChunkSize || body+fmtChunkSize > len(data) {
				return nil, errors.New("truncated fmt chunk")
			}
			if err := binary.Read(bytes.NewReader(data[body:body+fmtChunkSize]), binary.LittleEndian, &wav.waveFormat); err != nil {
				return nil, err
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			end := body + size
			// streaming encoders leave the size unset or too large
			if size == 0 || end > len(data) {
				end = len(data)
			}
			wav.samples = data[body:end]
			if err := wav.validate(); err != nil {
				return nil, err
			}
			return &wav, nil
		}
		pos = body + size + size%2
	}
	return nil, errors.New("no data chunk")
}

func (w *waveFile) validate() error {
	if w.AudioFormat != pcmFormat || w.BitsPerSample != 16 {
		return fmt.Errorf("expected 16-bit PCM, got format %d with %d bits", w.AudioFormat, w.BitsPerSample)
	}
	if w.NumChannels == 0 || w.SampleRate == 0 || w.ByteRate == 0 {
		return errors.New("WAV header is missing channel or rate information")
	}
	return nil
}

func (w *waveFile) durationSeconds() float64 {
	return float64(len(w.samples)) / float64(w.ByteRate)
}

// Voice transcribes an uploaded WAV clip and processes the transcript as a typed message.
func (h *ChatHandler) Voice(c *gin.Context) {
	if h.Transcriber == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Voice input unavailable", "no speech backend configured")
		return
	}
	language := c.DefaultPostForm("language", "en-US")
	conversationID := c.PostForm("conversation_id")

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "audio file is required", err.Error())
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != AllowedExtension {
		utils.JSONError(c, http.StatusBadRequest, "invalid file type", fmt.Sprintf("expected %s, got %s", AllowedExtension, ext))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to read audio file", err.Error())
		return
	}
	if len(data) > MaxFileSize {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, "audio file too large", fmt.Sprintf("limit is %d bytes", MaxFileSize))
		return
	}

	wav, err := parseWave(data)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid WAV file", err.Error())
		return
	}
	if d := wav.durationSeconds(); d > MaxDurationSeconds {
		utils.JSONError(c, http.StatusBadRequest, "audio too long", fmt.Sprintf("%.0fs exceeds %ds", d, MaxDurationSeconds))
		return
	}

	transcript, err := h.Transcriber.Transcribe(c.Request.Context(), AudioClip{
		Data:       wav.samples,
		SampleRate: int32(wav.SampleRate),
		Channels:   int32(wav.NumChannels),
		Language:   language,
	})
	if err != nil {
		h.Logger.Error("Speech recognition failed", zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "speech recognition failed", err.Error())
		return
	}
	if transcript == "" {
		utils.JSONError(c, http.StatusUnprocessableEntity, "No speech recognised", "try again or type your message")
		return
	}

	resp, err := h.Engine.Process(c.Request.Context(), models.ChatRequest{ConversationID: conversationID, Text: transcript})
	h.respond(c, resp, err)
}

// SpeechTranscriber uses Google Cloud Speech-to-Text.
type SpeechTranscriber struct {
	client *speech.Client
}

func NewSpeechTranscriber(ctx context.Context, credentialsFile string) (*SpeechTranscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize speech client: %w", err)
	}
	return &SpeechTranscriber{client: client}, nil
}

func (t *SpeechTranscriber) Transcribe(ctx context.Context, clip AudioClip) (string, error) {
	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   clip.SampleRate,
			LanguageCode:      clip.Language,
			AudioChannelCount: clip.Channels,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: clip.Data},
		},
	})
	if err != nil {
		return "", err
	}

	// Only the top alternative of each result is kept.
	var transcript strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			transcript.WriteString(result.Alternatives[0].Transcript + " ")
		}
	}
	return strings.TrimSpace(transcript.String()), nil
}

func (t *SpeechTranscriber) Close() error {
	return t.client.Close()
}
