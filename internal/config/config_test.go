package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Minute, cfg.OrderTTL)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, "000", cfg.DeclineSentinel)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("STORE_TIMEOUT", "2")
	t.Setenv("ORDER_TTL", "0")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("PAY_RATE_LIMIT", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, time.Duration(0), cfg.OrderTTL)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0.5, cfg.PayRateLimit)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":   {"STORE_DRIVER": "mongo"},
		"bad duration":     {"STORE_DRIVER": "memory", "STORE_TIMEOUT": "soon"},
		"negative ttl":     {"STORE_DRIVER": "memory", "ORDER_TTL": "-1m"},
		"bad currency":     {"STORE_DRIVER": "memory", "CURRENCY": "RUPEE"},
		"zero rate burst":  {"STORE_DRIVER": "memory", "PAY_RATE_BURST": "0"},
		"bad rate limit":   {"STORE_DRIVER": "memory", "PAY_RATE_LIMIT": "fast"},
		"zero store limit": {"STORE_DRIVER": "memory", "STORE_TIMEOUT": "0"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
