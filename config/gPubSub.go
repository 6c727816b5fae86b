package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PipelineEvent is published after a pipeline call completes so downstream
// consumers (notifications, archival jobs) can react without polling.
type PipelineEvent struct {
	Type          string          `json:"type"`
	CorrelationId string          `json:"correlation_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

const (
	EventImportCompleted = "billing.import.completed"
	EventSplitCompleted  = "billing.split.completed"
)

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return os.Getenv("GCP_PROJECT")
}

// PipelineEventsEnabled reports whether PUBSUB_TOPIC is configured.
func PipelineEventsEnabled() bool {
	return strings.TrimSpace(os.Getenv("PUBSUB_TOPIC")) != ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Application Default Credentials.
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	GetLogger().WithField("project_id", projectID).Info("pubsub client ready")
	return pubsubClient, nil
}

// PublishPipelineEvent publishes payload under eventType and returns the
// server-assigned message ID. It is a no-op returning "" when PUBSUB_TOPIC is unset.
func PublishPipelineEvent(ctx context.Context, eventType string, correlationId string, payload any) (string, error) {
	if !PipelineEventsEnabled() {
		return "", nil
	}
	topicName := strings.TrimSpace(os.Getenv("PUBSUB_TOPIC"))

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	msgJSON, err := json.Marshal(PipelineEvent{
		Type:          eventType,
		CorrelationId: correlationId,
		OccurredAt:    time.Now().UTC(),
		Payload:       body,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := getPubSubClient(ctx)
	if err != nil {
		return "", err
	}
	result := client.Topic(topicName).Publish(ctx, &pubsub.Message{
		Data:       msgJSON,
		Attributes: map[string]string{"type": eventType},
	})
	return result.Get(ctx)
}
