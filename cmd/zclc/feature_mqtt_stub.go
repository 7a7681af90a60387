//go:build no_mqtt

package main

import (
	"log/slog"

	"zclc/internal/builder"
)

type mqttStopper struct{}

func (m *mqttStopper) Stop() {}

func initMQTT(_ *builder.Builder, _ *Config, _ *slog.Logger) *mqttStopper {
	return &mqttStopper{}
}
