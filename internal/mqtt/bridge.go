//go:build !no_mqtt

// Package mqtt publishes compiled catalogs and build state to an MQTT
// broker as retained messages.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zclc/internal/builder"
)

// Config holds MQTT publisher configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

// Bridge mirrors the builder's catalog to MQTT and accepts rebuild
// requests on <prefix>/build/set.
type Bridge struct {
	client  pahomqtt.Client
	builder *builder.Builder
	prefix  string
	logger  *slog.Logger
	unsub   func()
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	published map[string]bool // retained catalog topics of the last publication
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(b *builder.Builder, cfg Config, logger *slog.Logger) (*Bridge, error) {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "zclc"
	}
	ctx, cancel := context.WithCancel(context.Background())
	br := &Bridge{
		builder:   b,
		prefix:    cfg.TopicPrefix,
		logger:    logger.With("component", "mqtt"),
		published: make(map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("zclc").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			br.logger.Info("MQTT connected")
			br.publishBridgeState("online")
			br.publishCurrent()
			br.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			br.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// The connect handler may fire before Connect returns.
	br.client = pahomqtt.NewClient(opts)
	token := br.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return br, nil
}

// Start subscribes to builder events.
func (br *Bridge) Start() {
	br.unsub = br.builder.Events().OnAll(br.handleEvent)
	br.logger.Info("MQTT bridge started", "prefix", br.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (br *Bridge) Stop() {
	br.cancel()
	if br.unsub != nil {
		br.unsub()
	}
	br.publishBridgeState("offline")
	br.client.Disconnect(1000)
	br.logger.Info("MQTT bridge stopped")
}

func (br *Bridge) handleEvent(event builder.Event) {
	res, ok := event.Data.(*builder.BuildResult)
	if !ok {
		return
	}
	switch event.Type {
	case builder.EventBuildSucceeded:
		br.publishBuild(res)
	case builder.EventBuildFailed:
		// The last good catalog stays published.
		msg := buildStateMessage(br.prefix, res)
		br.publish(msg.Topic, msg.Payload, true)
	}
}

func (br *Bridge) publishCurrent() {
	if res := br.builder.Current(); res != nil {
		br.publishBuild(res)
	}
}

func (br *Bridge) publishBuild(res *builder.BuildResult) {
	if res.Catalog == nil {
		return
	}
	br.mu.Lock()
	msgs, current := buildCatalogMessages(br.prefix, res, br.published)
	br.published = current
	br.mu.Unlock()

	for _, msg := range msgs {
		br.publish(msg.Topic, msg.Payload, true)
	}
	state := buildStateMessage(br.prefix, res)
	br.publish(state.Topic, state.Payload, true)
	br.logger.Info("published catalog", "topics", len(msgs))
}

func (br *Bridge) publishBridgeState(state string) {
	br.publish(br.prefix+"/bridge/state", []byte(state), true)
}

func (br *Bridge) subscribeCommands() {
	topic := buildTopic(br.prefix) + "/set"
	br.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		br.handleCommand(msg.Payload())
	})
}

func (br *Bridge) handleCommand(payload []byte) {
	if !strings.EqualFold(strings.TrimSpace(string(payload)), "rebuild") {
		br.logger.Warn("unknown build command", "payload", string(payload))
		return
	}
	// Paho handlers must not block the client.
	go func() {
		if _, err := br.builder.Build(br.ctx); err != nil {
			br.logger.Warn("requested rebuild failed", "err", err)
		}
	}()
}

func (br *Bridge) publish(topic string, payload []byte, retained bool) {
	token := br.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			br.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			br.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}
