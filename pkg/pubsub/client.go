package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/gcp"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const pingTimeout = 3 * time.Second

// Client owns the Pub/Sub connection and the one publisher the service needs:
// report events.
type Client struct {
	client *pubsub.Client
	topic  string

	once      sync.Once
	publisher *pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails fast if the report events topic is
// missing, so a typo in config stops the process at boot.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	topic, err := TopicName(gcpCfg.ProjectID, cfg.ReportEventsTopic)
	if err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, gcpCfg.ProjectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, topic: topic}
	if err := c.checkTopic(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client initialized")
	}
	return c, nil
}

// TopicName resolves a topic id or full resource name into
// projects/<project>/topics/<id>.
func TopicName(projectID, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("pubsub report events topic is required")
	}
	if strings.HasPrefix(topic, "projects/") {
		if parts := strings.Split(topic, "/"); len(parts) != 4 || parts[2] != "topics" || parts[1] == "" || parts[3] == "" {
			return "", fmt.Errorf("malformed topic resource name %q", topic)
		}
		return topic, nil
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", errors.New("gcp project id is required")
	}
	return "projects/" + projectID + "/topics/" + topic, nil
}

func (c *Client) checkTopic(ctx context.Context) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", c.topic)
	default:
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	}
}

// ReportEventsPublisher returns the shared publisher for the report events
// topic. It is created on first use and stopped by Close.
func (c *Client) ReportEventsPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	c.once.Do(func() {
		c.publisher = c.client.Publisher(c.topic)
	})
	return c.publisher
}

// Ping is used by readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.checkTopic(ctx)
}

// Close flushes pending messages and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.client.Close()
}
