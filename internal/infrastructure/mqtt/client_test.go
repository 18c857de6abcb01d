package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/schema-locations/internal/infrastructure/config"
)

const testBrokerAddr = "127.0.0.1:1883"

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "schemaloc-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// requireBroker skips the test unless a broker listens on testBrokerAddr.
func requireBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testBrokerAddr, 500*time.Millisecond)
	if err != nil {
		t.Skipf("MQTT broker not available at %s: %v", testBrokerAddr, err)
	}
	conn.Close() //nolint:errcheck // probe only
}

// connectTest connects with a per-test client ID and closes on cleanup.
func connectTest(t *testing.T, clientID string) *Client {
	t.Helper()
	requireBroker(t)

	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

// subscribeRaw subscribes with a plain paho client and returns received payloads.
func subscribeRaw(t *testing.T, topic string) <-chan []byte {
	t.Helper()

	opts := pahomqtt.NewClientOptions().
		AddBroker("tcp://" + testBrokerAddr).
		SetClientID("schemaloc-test-observer-" + t.Name())
	observer := pahomqtt.NewClient(opts)
	if token := observer.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("observer connect failed: %v", token.Error())
	}
	t.Cleanup(func() { observer.Disconnect(100) })

	received := make(chan []byte, 4)
	token := observer.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		received <- msg.Payload()
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("observer subscribe failed: %v", token.Error())
	}
	return received
}

// =============================================================================
// Offline Tests
// =============================================================================

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectInvalidQoS(t *testing.T) {
	cfg := testConfig()
	cfg.QoS = 3

	_, err := Connect(cfg)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Connect() error = %v, want ErrInvalidQoS", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() on nil client = true")
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "schemaloc/test", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "schemaloc/test", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "schemaloc/test", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"SystemStatus", Topics{}.SystemStatus(), "schemaloc/system/status"},
		{"MigrationLocations", Topics{}.MigrationLocations(), "schemaloc/migrations/locations"},
		{"MigrationEvent", Topics{}.MigrationEvent(EventApplied), "schemaloc/migrations/event/applied"},
		{"AllMigrationEvents", Topics{}.AllMigrationEvents(), "schemaloc/migrations/event/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestStatusPayloads(t *testing.T) {
	var online statusPayload
	if err := json.Unmarshal(buildOnlinePayload("schemaloc-1"), &online); err != nil {
		t.Fatalf("online payload is not JSON: %v", err)
	}
	if online.Status != "online" || online.ClientID != "schemaloc-1" || online.Reason != "" {
		t.Errorf("online payload = %+v", online)
	}

	var offline statusPayload
	if err := json.Unmarshal(buildOfflinePayload("schemaloc-1", "unexpected_disconnect"), &offline); err != nil {
		t.Fatalf("offline payload is not JSON: %v", err)
	}
	if offline.Status != "offline" || offline.Reason != "unexpected_disconnect" {
		t.Errorf("offline payload = %+v", offline)
	}
	if _, err := time.Parse(time.RFC3339, offline.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", offline.Timestamp, err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "schemaloc"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	reader := pahomqtt.NewOptionsReader(opts)

	servers := reader.Servers()
	if len(servers) != 1 || servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers() = %v, want [ssl://127.0.0.1:1883]", servers)
	}
	if reader.ClientID() != "schemaloc-test" {
		t.Errorf("ClientID() = %q", reader.ClientID())
	}
	if reader.Username() != "schemaloc" {
		t.Errorf("Username() = %q", reader.Username())
	}
	if reader.TLSConfig() == nil || reader.TLSConfig().MinVersion != tlsMinVersion {
		t.Error("TLS config not applied")
	}
	if reader.MaxReconnectInterval() != 5*time.Second {
		t.Errorf("MaxReconnectInterval() = %v, want 5s", reader.MaxReconnectInterval())
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "schemaloc-test")
	reader := pahomqtt.NewOptionsReader(opts)

	if !reader.WillEnabled() || reader.WillTopic() != (Topics{}).SystemStatus() || !reader.WillRetained() {
		t.Errorf("will = enabled:%v topic:%q retained:%v", reader.WillEnabled(), reader.WillTopic(), reader.WillRetained())
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connectTest(t, "schemaloc-test-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := connectTest(t, "schemaloc-test-health-cancel")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestClose(t *testing.T) {
	client := connectTest(t, "schemaloc-test-close")

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.Publish("schemaloc/test", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() after Close() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishLocations(t *testing.T) {
	client := connectTest(t, "schemaloc-test-locations")
	received := subscribeRaw(t, Topics{}.MigrationLocations())

	want := []string{"classpath:db/migration", "classpath:db/audit/{vendor}"}
	if err := client.PublishLocations(want); err != nil {
		t.Fatalf("PublishLocations() error = %v", err)
	}

	// A retained message from an earlier run may arrive first.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case payload := <-received:
			var got LocationsPayload
			if err := json.Unmarshal(payload, &got); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if len(got.Locations) == len(want) && got.Locations[0] == want[0] && got.Locations[1] == want[1] {
				return
			}
		case <-deadline:
			t.Fatal("locations message not received")
		}
	}
}

func TestPublishRun(t *testing.T) {
	client := connectTest(t, "schemaloc-test-run")
	received := subscribeRaw(t, Topics{}.AllMigrationEvents())

	err := client.PublishRun(EventApplied, RunPayload{
		RunID:      "run-test",
		Vendor:     "sqlite",
		Scripts:    []string{"20260101_000000_create_schemaloc_info.up.sql"},
		DurationMS: 12,
	})
	if err != nil {
		t.Fatalf("PublishRun() error = %v", err)
	}

	select {
	case payload := <-received:
		var got RunPayload
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if got.RunID != "run-test" || len(got.Scripts) != 1 || got.Timestamp == "" {
			t.Errorf("payload = %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run message not received")
	}
}
