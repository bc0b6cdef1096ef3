package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const ChannelPipelineProgress = "pipeline_progress"

// ProgressMessage is one stage transition of a pipeline run.
type ProgressMessage struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	AnalysisID string `json:"analysis_id,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Pipeline stages.
const (
	StageIdle         = "idle"
	StageResolving    = "resolving"
	StageExtracting   = "extracting"
	StageTranscribing = "transcribing"
	StageTranslating  = "translating"
	StagePersisted    = "persisted"
	StageFailed       = "failed"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

var StageProgress = map[string]int{
	StageIdle:         0,
	StageResolving:    10,
	StageExtracting:   30,
	StageTranscribing: 50,
	StageTranslating:  75,
	StagePersisted:    100,
}

var StageMessages = map[string]string{
	StageResolving:    "Resolving video source",
	StageExtracting:   "Extracting audio segment",
	StageTranscribing: "Transcribing audio",
	StageTranslating:  "Translating transcript",
	StagePersisted:    "Saved to history",
}

// Publisher sends progress to redis when a client is set, otherwise to a local sink.
// A nil Publisher drops every message.
type Publisher struct {
	client *redis.Client
	local  func(*ProgressMessage)
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// NewLocalPublisher delivers in-process, for single-instance deployments without redis.
func NewLocalPublisher(deliver func(*ProgressMessage)) *Publisher {
	return &Publisher{local: deliver}
}

func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	if p == nil || msg.RunID == "" {
		return nil
	}
	msg.Type = "pipeline_progress"

	if msg.Progress == 0 && msg.Stage != "" {
		if progress, ok := StageProgress[msg.Stage]; ok {
			msg.Progress = progress
		}
	}
	if msg.Message == "" && msg.Stage != "" {
		if message, ok := StageMessages[msg.Stage]; ok {
			msg.Message = message
		}
	}

	if p.client == nil {
		if p.local != nil {
			p.local(msg)
		}
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelPipelineProgress, data).Err()
}

type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe blocks, handing every decoded message to handler until ctx ends.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	ps := s.client.Subscribe(ctx, ChannelPipelineProgress)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue
			}

			handler(&progressMsg)
		}
	}
}
