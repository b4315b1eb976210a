package protocol

import "time"

// SynthesisRequest is the body of POST /api/tts.
type SynthesisRequest struct {
	Text string `json:"text"`
}

// SynthesisResponse carries base64 audio back to the caller.
type SynthesisResponse struct {
	AudioContent string `json:"audioContent"`
	ContentType  string `json:"contentType,omitempty"`
}

// ErrorResponse is the structured error body for every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Text string `json:"text"`
}

// QueryResponse reports one completed pipeline run.
type QueryResponse struct {
	RunID             string `json:"runId"`
	Source            string `json:"source"`
	Translation       string `json:"translation"`
	AssistantResponse string `json:"assistantResponse"`
	BengaliResponse   string `json:"bengaliResponse"`
	State             string `json:"state"`
}

// PipelineUpdate is broadcast on every pipeline state change.
type PipelineUpdate struct {
	RunID             string    `json:"run_id"`
	Stage             string    `json:"stage"`
	Outcome           string    `json:"outcome,omitempty"`
	Processing        bool      `json:"processing"`
	Source            string    `json:"source,omitempty"`
	Translation       string    `json:"translation,omitempty"`
	AssistantResponse string    `json:"assistant_response,omitempty"`
	BengaliResponse   string    `json:"bengali_response,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// PlaybackUpdate is broadcast on every playback state change.
type PlaybackUpdate struct {
	State     string    `json:"state"`
	Loading   bool      `json:"loading"`
	Playing   bool      `json:"playing"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectPipelineState  = "bolo.pipeline.state"
	SubjectPipelineResult = "bolo.pipeline.result"
	SubjectPlaybackState  = "bolo.playback.state"
)
