package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvKafkaTopics(t *testing.T) {
	t.Run("defaults keep relay and renewal on separate topics", func(t *testing.T) {
		t.Setenv("DOMOPASS_KAFKA_TOPIC", "")
		t.Setenv("DOMOPASS_KAFKA_RENEWAL_TOPIC", "")

		cfg := FromEnv()
		assert.Equal(t, "domopass.propagation", cfg.Kafka.Topic)
		assert.Equal(t, "domopass.key-renewal", cfg.Kafka.RenewalTopic)
		assert.NotEqual(t, cfg.Kafka.Topic, cfg.Kafka.RenewalTopic)
	})

	t.Run("env overrides both topics independently", func(t *testing.T) {
		t.Setenv("DOMOPASS_KAFKA_TOPIC", "events.v2")
		t.Setenv("DOMOPASS_KAFKA_RENEWAL_TOPIC", "renewals.v2")

		cfg := FromEnv()
		assert.Equal(t, "events.v2", cfg.Kafka.Topic)
		assert.Equal(t, "renewals.v2", cfg.Kafka.RenewalTopic)
	})

	t.Run("brokers parse from a comma separated list", func(t *testing.T) {
		t.Setenv("DOMOPASS_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

		cfg := FromEnv()
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	})
}
