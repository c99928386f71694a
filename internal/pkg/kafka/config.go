package kafka

import (
	"os"
	"strings"
	"time"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	brokers := []string{"localhost:9092"}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	return &Config{
		Brokers:  brokers,
		ClientID: "marketplace-hub",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

// Topics contains all Kafka topic names
var Topics = struct {
	OrderEvents      string
	StockEvents      string
	CredentialEvents string
	SyncEvents       string
}{
	OrderEvents:      "sellerhub.orders.events",
	StockEvents:      "sellerhub.stock.events",
	CredentialEvents: "sellerhub.credentials.events",
	SyncEvents:       "sellerhub.sync.events",
}
