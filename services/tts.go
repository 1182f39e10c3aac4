package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/podwave/podwave-backend/utils"
)

// GoogleSynthesizer renders audio with Google Cloud TTS and hosts the result
// in Supabase storage. Used when no external AI service is configured.
type GoogleSynthesizer struct {
	LanguageCode string
}

func NewGoogleSynthesizer() *GoogleSynthesizer {
	return &GoogleSynthesizer{LanguageCode: "en-US"}
}

func (s *GoogleSynthesizer) Synthesize(ctx context.Context, req TTSRequest) (*TTSResult, error) {
	if len(req.Text) == 0 {
		return nil, errors.New("text is empty")
	}
	voice := req.Voice
	if voice == "" || voice == "default" {
		voice = "en-US-Chirp3-HD-Puck"
	}
	rate := req.Speed
	if rate <= 0 {
		rate = 1.0
	}

	credPath := os.Getenv("GOOGLE_CREDENTIALS_JSON")
	if credPath == "" {
		return nil, errors.New("GOOGLE_CREDENTIALS_JSON environment variable is not set")
	}

	client, err := texttospeech.NewClient(ctx, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	// Stay under the 5000 byte per-request input cap.
	chunks := splitTextToChunksByByte(req.Text, 4500)
	var allAudio []byte

	for _, chunk := range chunks {
		ttsReq := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{
					Text: chunk,
				},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: s.LanguageCode,
				Name:         voice,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
				SpeakingRate:  rate,
			},
		}

		resp, err := client.SynthesizeSpeech(ctx, ttsReq)
		if err != nil {
			return nil, err
		}
		allAudio = append(allAudio, resp.AudioContent...)
	}

	duration, err := MP3DurationFromBytes(allAudio)
	if err != nil {
		return nil, fmt.Errorf("cannot measure audio duration: %w", err)
	}

	filename := fmt.Sprintf("%s.mp3", uuid.New().String())
	audioURL, err := utils.UploadAudioToSupabase(allAudio, filename, "audio/mpeg")
	if err != nil {
		return nil, fmt.Errorf("cannot upload audio: %w", err)
	}

	return &TTSResult{AudioURL: audioURL, Duration: duration}, nil
}

// splitTextToChunksByByte splits text at sentence boundaries while keeping each
// chunk under maxBytes, without cutting through a UTF-8 sequence.
func splitTextToChunksByByte(text string, maxBytes int) []string {
	var chunks []string
	remaining := text

	for len(remaining) > 0 {
		if len(remaining) <= maxBytes {
			chunks = append(chunks, remaining)
			break
		}

		cutPos := maxBytes
		for i := cutPos; i > 0; i-- {
			if remaining[i-1] == '.' || remaining[i-1] == '!' || remaining[i-1] == '?' || remaining[i-1] == '\n' {
				cutPos = i
				break
			}
		}

		for cutPos < len(remaining) && (remaining[cutPos]&0xC0) == 0x80 {
			cutPos++
		}

		chunks = append(chunks, remaining[:cutPos])
		remaining = remaining[cutPos:]
	}

	return chunks
}
