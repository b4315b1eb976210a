package synthesis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loqalabs/bolo/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestClientDecodesAudio(t *testing.T) {
	var got protocol.SynthesisRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(protocol.SynthesisResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("ID3-audio")),
		})
	}))
	t.Cleanup(srv.Close)

	audio, err := NewClient(srv.URL+"/", time.Second).Synthesize(context.Background(), "আপনি ভালো আছেন")
	require.NoError(t, err)
	require.Equal(t, "/api/tts", gotPath)
	require.Equal(t, "আপনি ভালো আছেন", got.Text)
	require.Equal(t, []byte("ID3-audio"), audio.Content)
	require.Equal(t, "audio/mpeg", audio.ContentType)
}

func TestClientSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"Text-to-speech conversion failed: quota"}`)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, time.Second).Synthesize(context.Background(), "hello")
	require.EqualError(t, err, "Text-to-speech conversion failed: quota")
}

func TestClientRejectsEmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"audioContent":""}`)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, time.Second).Synthesize(context.Background(), "hello")
	require.Error(t, err)
}
