package bus

import (
	"log/slog"
	"time"

	"github.com/loqalabs/bolo/internal/pipeline"
	"github.com/loqalabs/bolo/internal/playback"
	"github.com/loqalabs/bolo/internal/protocol"
)

// Publisher mirrors pipeline and playback progress onto the bus. It
// satisfies both pipeline.Observer and playback.Observer.
type Publisher struct {
	client     *Client
	log        *slog.Logger
	clock      func() time.Time
	processing func() bool
}

func NewPublisher(client *Client, log *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		log:    log.With(slog.String("component", "bus")),
		clock:  time.Now,
	}
}

// ReportProcessing sets the source of the processing flag carried by
// pipeline updates.
func (p *Publisher) ReportProcessing(fn func() bool) {
	p.processing = fn
}

func (p *Publisher) busy() bool {
	return p.processing != nil && p.processing()
}

func (p *Publisher) StateChanged(runID string, state pipeline.State) {
	p.publish(protocol.SubjectPipelineState, protocol.PipelineUpdate{
		RunID:      runID,
		Stage:      string(state),
		Processing: p.busy(),
		Timestamp:  p.clock().UTC(),
	})
}

func (p *Publisher) RunFinished(res pipeline.Result) {
	p.publish(protocol.SubjectPipelineResult, protocol.PipelineUpdate{
		RunID:             res.RunID,
		Stage:             string(pipeline.StateIdle),
		Outcome:           string(res.Outcome),
		Source:            res.Source,
		Translation:       res.Translation,
		AssistantResponse: res.AssistantResponse,
		BengaliResponse:   res.BengaliResponse,
		Processing:        p.busy(),
		Timestamp:         p.clock().UTC(),
	})
}

func (p *Publisher) PlaybackChanged(status playback.Status) {
	p.publish(protocol.SubjectPlaybackState, protocol.PlaybackUpdate{
		State:     string(status.State),
		Loading:   status.Loading,
		Playing:   status.Playing,
		Message:   status.Message,
		Timestamp: p.clock().UTC(),
	})
}

func (p *Publisher) publish(subject string, v any) {
	if p == nil || !p.client.Healthy() {
		return
	}
	if err := p.client.PublishJSON(subject, v); err != nil {
		p.log.Warn("failed to publish update", slog.String("subject", subject), slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
