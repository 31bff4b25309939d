package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/logging"
	"github.com/igorvan/qrscan/pkg/scanning"
)

const (
	// AttrEventID - message attribute holding the event id
	AttrEventID = "event_id"
	// AttrDataHash - message attribute holding the murmur3 hash of the payload
	AttrDataHash = "data_hash"
)

// Publisher - pushes new scan events to a Pub/Sub topic
type Publisher struct {
	topic *pubsub.Topic
	log   logging.Logger
}

// NewPublisher - Publisher constructor, creates the topic when it does not exist yet
func NewPublisher(ctx context.Context, client *pubsub.Client, topicID string, log logging.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("no pubsub client provided")
	}
	if topicID == "" {
		return nil, fmt.Errorf("no pubsub topic provided")
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot check topic %s: %w", topicID, err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("cannot create topic %s: %w", topicID, err)
		}
	}
	return &Publisher{topic: topic, log: logging.NullSafe(log)}, nil
}

// Publish - sends the event and waits for the server acknowledgement
func (p *Publisher) Publish(ctx context.Context, event scanning.ScanEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("cannot marshal scan event: %w", err)
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data: b,
		Attributes: map[string]string{
			AttrEventID:  event.ID,
			AttrDataHash: strconv.FormatUint(history.Hash(event.Record.Data), 10),
		},
	})
	serverID, err := res.Get(ctx)
	if err != nil {
		return fmt.Errorf("cannot publish scan event %s: %w", event.ID, err)
	}
	p.log.Info("scan event published", "id", event.ID, "message_id", serverID)
	return nil
}

// Stop - flushes pending messages
func (p *Publisher) Stop() {
	p.topic.Stop()
}
