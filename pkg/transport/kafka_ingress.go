package transport

import (
	"context"
	"sync"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/types"
)

// KafkaIngress consumes the configured input streams through a consumer
// group and surfaces each record as an envelope. Per-partition order is
// preserved by the broker; the group session feeds a single channel the
// scheduler drains.
type KafkaIngress struct {
	config KafkaConfig
	logger *logrus.Logger

	group     sarama.ConsumerGroup
	envelopes chan *types.Envelope

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKafkaIngress connects the consumer group and starts consuming.
func NewKafkaIngress(config KafkaConfig, logger *logrus.Logger) (*KafkaIngress, error) {
	if len(config.Brokers) == 0 {
		return nil, streamerrors.Transport("kafka_ingress", "New", "no brokers configured", nil)
	}
	if len(config.InputStreams) == 0 {
		return nil, streamerrors.Transport("kafka_ingress", "New", "no input streams configured", nil)
	}
	groupID := config.ConsumerGroup
	if groupID == "" {
		groupID = "streamteam-worker"
	}

	group, err := sarama.NewConsumerGroup(config.Brokers, groupID, newSaramaConfig(config))
	if err != nil {
		return nil, streamerrors.Transport("kafka_ingress", "New", "failed to create consumer group", err)
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 10_000
	}
	ctx, cancel := context.WithCancel(context.Background())
	ki := &KafkaIngress{
		config:    config,
		logger:    logger,
		group:     group,
		envelopes: make(chan *types.Envelope, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	ki.wg.Add(1)
	go ki.consumeLoop()
	ki.wg.Add(1)
	go ki.errorLoop()

	logger.WithFields(logrus.Fields{
		"brokers": config.Brokers,
		"group":   groupID,
		"streams": config.InputStreams,
	}).Info("Kafka ingress started")
	return ki, nil
}

func (ki *KafkaIngress) consumeLoop() {
	defer ki.wg.Done()
	handler := &groupHandler{ingress: ki}
	for {
		if err := ki.group.Consume(ki.ctx, ki.config.InputStreams, handler); err != nil {
			ki.logger.WithError(err).Error("Kafka consume error, retrying")
		}
		if ki.ctx.Err() != nil {
			return
		}
	}
}

func (ki *KafkaIngress) errorLoop() {
	defer ki.wg.Done()
	for {
		select {
		case err, ok := <-ki.group.Errors():
			if !ok {
				return
			}
			ki.logger.WithError(err).Warn("Kafka consumer group error")
		case <-ki.ctx.Done():
			return
		}
	}
}

func (ki *KafkaIngress) Next(ctx context.Context) (*types.Envelope, error) {
	select {
	case env := <-ki.envelopes:
		return env, nil
	case <-ki.ctx.Done():
		select {
		case env := <-ki.envelopes:
			return env, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ki *KafkaIngress) Close() error {
	ki.cancel()
	err := ki.group.Close()
	ki.wg.Wait()
	return err
}

// groupHandler adapts the consumer group callbacks to the envelope
// channel.
type groupHandler struct {
	ingress *KafkaIngress
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			env := &types.Envelope{
				Key:          string(msg.Key),
				Offset:       msg.Offset,
				PayloadBytes: msg.Value,
				SourceStream: msg.Topic,
			}
			if !msg.Timestamp.IsZero() {
				ts := msg.Timestamp.UnixMilli()
				env.AppendTimestamp = &ts
			}
			select {
			case h.ingress.envelopes <- env:
				session.MarkMessage(msg, "")
			case <-h.ingress.ctx.Done():
				return nil
			}
		case <-h.ingress.ctx.Done():
			return nil
		}
	}
}

var _ Ingress = (*KafkaIngress)(nil)
