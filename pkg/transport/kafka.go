package transport

import (
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// KafkaAuthConfig configures SASL authentication.
type KafkaAuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Mechanism string `yaml:"mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
}

// KafkaConfig is shared by ingress and egress.
type KafkaConfig struct {
	Brokers       []string        `yaml:"brokers"`
	ConsumerGroup string          `yaml:"consumerGroup"`
	InputStreams  []string        `yaml:"inputStreams"`
	RequiredAcks  int             `yaml:"requiredAcks"`
	Compression   string          `yaml:"compression"` // codec applied by the producer
	QueueSize     int             `yaml:"queueSize"`
	RetryMax      int             `yaml:"retryMax"`
	Timeout       time.Duration   `yaml:"timeout"`
	TLSEnabled    bool            `yaml:"tlsEnabled"`
	Auth          KafkaAuthConfig `yaml:"auth"`
}

// newSaramaConfig builds the sarama configuration both sides share.
func newSaramaConfig(cfg KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	sc.Producer.Partitioner = sarama.NewHashPartitioner

	switch strings.ToLower(cfg.Compression) {
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}

	if cfg.RetryMax > 0 {
		sc.Producer.Retry.Max = cfg.RetryMax
	}
	if cfg.Timeout > 0 {
		sc.Net.DialTimeout = cfg.Timeout
		sc.Net.ReadTimeout = cfg.Timeout
		sc.Net.WriteTimeout = cfg.Timeout
	}

	if cfg.Auth.Enabled {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User = cfg.Auth.Username
		sc.Net.SASL.Password = cfg.Auth.Password
		switch strings.ToUpper(cfg.Auth.Mechanism) {
		case "SCRAM-SHA-256":
			sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: SHA256}
			}
		case "SCRAM-SHA-512":
			sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: SHA512}
			}
		default:
			sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}
	if cfg.TLSEnabled {
		sc.Net.TLS.Enable = true
	}

	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Return.Errors = true
	return sc
}
