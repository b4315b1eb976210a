package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Credentials identify a Google Cloud service account.
type Credentials struct {
	ClientEmail string
	PrivateKey  string
	ProjectID   string
}

// Validate names the first missing field by its environment variable.
func (c Credentials) Validate() error {
	switch {
	case strings.TrimSpace(c.ClientEmail) == "":
		return fmt.Errorf("%w: GOOGLE_CLIENT_EMAIL not set", ErrMissingCredentials)
	case strings.TrimSpace(c.PrivateKey) == "":
		return fmt.Errorf("%w: GOOGLE_PRIVATE_KEY not set", ErrMissingCredentials)
	case strings.TrimSpace(c.ProjectID) == "":
		return fmt.Errorf("%w: GOOGLE_PROJECT_ID not set", ErrMissingCredentials)
	}
	return nil
}

func (c Credentials) json() ([]byte, error) {
	return json.Marshal(map[string]string{
		"type":         "service_account",
		"client_email": c.ClientEmail,
		"private_key":  strings.ReplaceAll(c.PrivateKey, `\n`, "\n"),
		"project_id":   c.ProjectID,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
}

// GoogleSynthesizer calls Google Cloud Text-to-Speech.
type GoogleSynthesizer struct {
	client *texttospeech.Client
}

// NewGoogleSynthesizer fails fast when any credential is missing.
func NewGoogleSynthesizer(ctx context.Context, creds Credentials) (*GoogleSynthesizer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	data, err := creds.json()
	if err != nil {
		return nil, err
	}
	client, err := texttospeech.NewClient(ctx, option.WithCredentialsJSON(data))
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return &GoogleSynthesizer{client: client}, nil
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, voice Voice) (Audio, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: googleEncoding(voice.Encoding),
		},
	})
	if err != nil {
		return Audio{}, err
	}
	return Audio{Content: resp.GetAudioContent(), ContentType: ContentType(voice.Encoding)}, nil
}

func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}

func googleEncoding(encoding string) texttospeechpb.AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return texttospeechpb.AudioEncoding_LINEAR16
	case "OGG_OPUS":
		return texttospeechpb.AudioEncoding_OGG_OPUS
	default:
		return texttospeechpb.AudioEncoding_MP3
	}
}
