//go:build integration

package mqtt

import (
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

// publishRaw publishes with a separate paho client, as a sensor would.
func publishRaw(t *testing.T, topic, payload string, retained bool) {
	t.Helper()
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(testConfig())).
		SetClientID("mqtt2influx-int-publisher")
	pub := pahomqtt.NewClient(opts)
	token := pub.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	defer pub.Disconnect(250)

	token = pub.Publish(topic, 1, retained, payload)
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
}

func TestIntegration_ReceivesLiveAndRetained(t *testing.T) {
	const topic = "mqtt2influx/int/retained"

	publishRaw(t, topic, "21.5", true)
	t.Cleanup(func() { publishRaw(t, topic, "", true) })

	client, err := Connect(testConfig())
	require.NoError(t, err)
	defer client.Close()

	received := make(chan Message, 4)
	err = client.Subscribe(topic, 0, func(msg Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)
	assert.True(t, client.HasSubscription(topic))

	select {
	case msg := <-received:
		assert.True(t, msg.Retained, "stored message should arrive flagged as retained")
		assert.Equal(t, "21.5", string(msg.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("retained message not delivered")
	}

	publishRaw(t, topic, "22", false)

	select {
	case msg := <-received:
		assert.False(t, msg.Retained)
		assert.Equal(t, "22", string(msg.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("live message not delivered")
	}
}

func TestIntegration_HealthCheck(t *testing.T) {
	client, err := Connect(testConfig())
	require.NoError(t, err)

	assert.True(t, client.IsConnected())
	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
}
