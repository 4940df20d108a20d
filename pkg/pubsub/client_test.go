package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/henriqueponts/labstore-sub002/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	require.Equal(t, "projects/lab/topics/orders", TopicResourceName("lab", "orders"))
	require.Equal(t, "projects/lab/topics/orders", TopicResourceName("lab", "  orders "))
	require.Equal(t, "projects/other/topics/x", TopicResourceName("lab", "projects/other/topics/x"))
	require.Empty(t, TopicResourceName("", "orders"))
	require.Empty(t, TopicResourceName("lab", " "))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{NotificationTopic: "notify", OrdersTopic: " "})
	require.Equal(t, []string{"notify"}, names)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("orders"))
	require.NoError(t, c.Close())
	require.Error(t, c.Ping(context.Background()))
}
