package transport

import (
	"sync"
	"sync/atomic"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"streamteam/internal/metrics"
	"streamteam/pkg/backpressure"
	"streamteam/pkg/circuit"
	"streamteam/pkg/compression"
	"streamteam/pkg/dlq"
	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/types"
)

// KafkaEgress publishes output envelopes through an async producer. The
// topic is the element's stream name, the record key its partition key.
// A circuit breaker guards enqueueing, queue pressure is graded by the
// backpressure manager, and envelopes that cannot be queued or fail to
// produce land in the dead-letter sink.
type KafkaEgress struct {
	config KafkaConfig
	logger *logrus.Logger

	producer   sarama.AsyncProducer
	breaker    *circuit.Breaker
	compressor *compression.Compressor
	deadLetter *dlq.DeadLetterQueue
	pressure   *backpressure.Manager

	queue chan types.OutputEnvelope

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}

	sentCount  int64
	errorCount int64
}

// NewKafkaEgress connects the producer and starts the send and response
// loops.
func NewKafkaEgress(config KafkaConfig, logger *logrus.Logger,
	compressor *compression.Compressor, deadLetter *dlq.DeadLetterQueue) (*KafkaEgress, error) {
	if len(config.Brokers) == 0 {
		return nil, streamerrors.Transport("kafka_egress", "New", "no brokers configured", nil)
	}
	producer, err := sarama.NewAsyncProducer(config.Brokers, newSaramaConfig(config))
	if err != nil {
		return nil, streamerrors.Transport("kafka_egress", "New", "failed to create producer", err)
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 25_000
	}
	ke := &KafkaEgress{
		config:     config,
		logger:     logger,
		producer:   producer,
		compressor: compressor,
		deadLetter: deadLetter,
		breaker: circuit.NewBreaker(circuit.BreakerConfig{
			Name:             "kafka_egress",
			FailureThreshold: 10,
			SuccessThreshold: 2,
		}, logger),
		pressure: backpressure.NewManager(backpressure.Config{}, logger),
		queue:    make(chan types.OutputEnvelope, queueSize),
		closed:   make(chan struct{}),
	}

	ke.wg.Add(1)
	go ke.sendLoop()
	ke.wg.Add(1)
	go ke.responseLoop()

	logger.WithFields(logrus.Fields{
		"brokers":     config.Brokers,
		"compression": config.Compression,
		"queue_size":  queueSize,
	}).Info("Kafka egress started")
	return ke, nil
}

func (ke *KafkaEgress) Publish(env types.OutputEnvelope) error {
	utilization := float64(len(ke.queue)) / float64(cap(ke.queue))
	metrics.EgressQueueUtilization.Set(utilization)
	if ke.pressure.Observe(utilization) == backpressure.LevelCritical {
		ke.deadLetterEnvelope(env, "queue_critical", nil)
		return streamerrors.Egress("kafka_egress", "Publish", "queue at critical utilization", nil)
	}

	err := ke.breaker.Execute(func() error {
		select {
		case ke.queue <- env:
			return nil
		case <-ke.closed:
			return streamerrors.Egress("kafka_egress", "Publish", "egress closed", nil)
		}
	})
	if err != nil {
		ke.deadLetterEnvelope(env, "enqueue_failed", err)
	}
	return err
}

func (ke *KafkaEgress) sendLoop() {
	defer ke.wg.Done()
	for {
		select {
		case env := <-ke.queue:
			payload := env.Bytes
			if ke.compressor != nil {
				payload = ke.compressor.Compress(payload).Data
			}
			msg := &sarama.ProducerMessage{
				Topic:    env.StreamName,
				Key:      sarama.StringEncoder(env.Key),
				Value:    sarama.ByteEncoder(payload),
				Metadata: env,
			}
			select {
			case ke.producer.Input() <- msg:
			case <-ke.closed:
				ke.deadLetterEnvelope(env, "shutdown", nil)
				return
			}
		case <-ke.closed:
			// Drain whatever is still queued.
			for {
				select {
				case env := <-ke.queue:
					ke.deadLetterEnvelope(env, "shutdown", nil)
				default:
					return
				}
			}
		}
	}
}

func (ke *KafkaEgress) responseLoop() {
	defer ke.wg.Done()
	successes := ke.producer.Successes()
	errors := ke.producer.Errors()
	for successes != nil || errors != nil {
		select {
		case msg, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			atomic.AddInt64(&ke.sentCount, 1)
			metrics.ElementsPublishedTotal.WithLabelValues(msg.Topic).Inc()
		case perr, ok := <-errors:
			if !ok {
				errors = nil
				continue
			}
			atomic.AddInt64(&ke.errorCount, 1)
			metrics.EgressErrorsTotal.WithLabelValues(perr.Msg.Topic, "produce").Inc()
			ke.logger.WithError(perr.Err).WithField("topic", perr.Msg.Topic).Warn("Kafka produce failed")
			if env, ok := perr.Msg.Metadata.(types.OutputEnvelope); ok {
				ke.deadLetterEnvelope(env, "produce_error", perr.Err)
			}
		}
	}
}

func (ke *KafkaEgress) deadLetterEnvelope(env types.OutputEnvelope, reason string, cause error) {
	if ke.deadLetter != nil {
		ke.deadLetter.Add(env.StreamName, env.Key, env.Bytes, reason, cause)
	}
}

func (ke *KafkaEgress) Close() error {
	var err error
	ke.closeOnce.Do(func() {
		close(ke.closed)
		err = ke.producer.Close()
		ke.wg.Wait()
		ke.logger.WithFields(logrus.Fields{
			"sent":   atomic.LoadInt64(&ke.sentCount),
			"errors": atomic.LoadInt64(&ke.errorCount),
		}).Info("Kafka egress stopped")
	})
	return err
}

var _ Egress = (*KafkaEgress)(nil)
