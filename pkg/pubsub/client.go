package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

// Client wraps the Pub/Sub v2 client with the lease and listing topics.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	checkSubs bool
}

var errProjectIDRequired = errors.New("gcp project id is required")

// Option tunes NewClient.
type Option func(*Client)

// WithSubscriptionCheck makes NewClient and Ping verify the lease
// subscription exists. Consumers want this; the outbox publisher does not.
func WithSubscriptionCheck() Option {
	return func(c *Client) { c.checkSubs = true }
}

// NewClient creates a Pub/Sub v2 client and verifies the configured topics
// (and optionally the lease subscription) exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, projectID: gcp.ProjectID, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"lease_topic":   cfg.LeaseTopic,
			"listing_topic": cfg.ListingTopic,
		}), "pubsub client initialized")
	}
	return c, nil
}

// Ping verifies the topics, and the lease subscription when checked, exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	for _, topic := range []string{c.cfg.LeaseTopic, c.cfg.ListingTopic} {
		if strings.TrimSpace(topic) == "" {
			continue
		}
		err := exists(ctx, "topic", topic, func(ctx context.Context) error {
			_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topicResourceName(topic)})
			return err
		})
		if err != nil {
			return err
		}
	}
	if !c.checkSubs {
		return nil
	}
	sub := c.cfg.LeaseSubscription
	if strings.TrimSpace(sub) == "" {
		return errors.New("pubsub lease subscription name is required")
	}
	return exists(ctx, "subscription", sub, func(ctx context.Context) error {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscriptionResourceName(sub)})
		return err
	})
}

// exists turns a NotFound from an admin lookup into a readable error.
func exists(ctx context.Context, kind, name string, get func(context.Context) error) error {
	err := get(ctx)
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// Subscription returns a subscriber for a subscription ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.subscriptionResourceName(name)
	if fullName == "" {
		return nil
	}
	return c.client.Subscriber(fullName)
}

// LeaseSubscription returns the subscriber for lease lifecycle events.
func (c *Client) LeaseSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.LeaseSubscription)
}

// Publisher returns a publisher for a topic ID or full resource name with
// message ordering enabled, so events for one aggregate arrive in order.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.topicResourceName(name)
	if fullName == "" {
		return nil
	}
	p := c.client.Publisher(fullName)
	p.EnableMessageOrdering = true
	return p
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) subscriptionResourceName(name string) string {
	return resourceName(c.projectID, "subscriptions", name)
}

func (c *Client) topicResourceName(name string) string {
	return resourceName(c.projectID, "topics", name)
}

func resourceName(projectID, kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", p, kind, n)
}
