package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/followben/NextMQTT"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPublishSubscribe(t *testing.T) {
	t.Parallel()
	host, port := broker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := nextmqtt.DialContext(ctx, host, port, nextmqtt.WithClientID("it-basic-pubsub"))
	require.NoError(t, err)
	defer client.Close()

	received := make(chan nextmqtt.Message, 1)
	client.OnReceive(func(m nextmqtt.Message) { received <- m })

	_, err = client.Subscribe("test/topic", nextmqtt.AtLeastOnce).Wait(ctx)
	require.NoError(t, err)

	_, err = client.Publish("test/topic", nextmqtt.AtLeastOnce, []byte("hello world")).Wait(ctx)
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "hello world", string(msg.Payload))
		assert.Equal(t, "test/topic", msg.Topic)
		assert.Equal(t, nextmqtt.AtLeastOnce, msg.QoS)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestQoSLevels(t *testing.T) {
	t.Parallel()
	host, port := broker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := nextmqtt.DialContext(ctx, host, port, nextmqtt.WithClientID("it-qos-levels"))
	require.NoError(t, err)
	defer client.Close()

	received := make(chan nextmqtt.Message, 3)
	client.OnReceive(func(m nextmqtt.Message) { received <- m })

	_, err = client.Subscribe("qos/topic", nextmqtt.ExactlyOnce).Wait(ctx)
	require.NoError(t, err)

	for _, qos := range []nextmqtt.QoS{nextmqtt.AtMostOnce, nextmqtt.AtLeastOnce, nextmqtt.ExactlyOnce} {
		_, err := client.Publish("qos/topic", qos, []byte(qos.String())).Wait(ctx)
		require.NoErrorf(t, err, "publish at %s", qos)
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case msg := <-received:
			seen[string(msg.Payload)] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout: only received %d/3 messages", i)
		}
	}
	assert.True(t, seen[nextmqtt.AtMostOnce.String()])
	assert.True(t, seen[nextmqtt.AtLeastOnce.String()])
	assert.True(t, seen[nextmqtt.ExactlyOnce.String()])
}

func TestPublishBetweenTwoClients(t *testing.T) {
	t.Parallel()
	host, port := broker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subscriber, err := nextmqtt.DialContext(ctx, host, port, nextmqtt.WithClientID("it-reconnect-sub"))
	require.NoError(t, err)
	defer subscriber.Close()

	received := make(chan nextmqtt.Message, 1)
	subscriber.OnReceive(func(m nextmqtt.Message) { received <- m })
	_, err = subscriber.Subscribe("reconnect/topic", nextmqtt.AtLeastOnce).Wait(ctx)
	require.NoError(t, err)

	publisher, err := nextmqtt.DialContext(ctx, host, port, nextmqtt.WithClientID("it-reconnect-pub"))
	require.NoError(t, err)
	defer publisher.Close()

	_, err = publisher.Publish("reconnect/topic", nextmqtt.AtLeastOnce, []byte("still here")).Wait(ctx)
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "still here", string(msg.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestConnectAcceptsValidClientID(t *testing.T) {
	t.Parallel()
	host, port := broker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// An empty, non-auto-generated client ID with CleanStart=false is
	// broker-dependent, but every broker accepts a plain valid client ID,
	// so this exercises the success path of the same handshake the
	// refusal-path unit tests in the core module cover with a fake
	// transport.
	client, err := nextmqtt.DialContext(ctx, host, port, nextmqtt.WithClientID("it-connect-ok"))
	require.NoError(t, err)
	defer client.Close()
	assert.True(t, client.IsConnected())
}
