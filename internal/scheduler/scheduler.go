// Package scheduler drives the cooperative worker loop: pull one
// envelope, decode it, run it to completion through the single-element
// graph, publish its outputs, and fire window ticks strictly between
// envelopes on the configured cadence.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"streamteam/internal/metrics"
	"streamteam/pkg/clock"
	"streamteam/pkg/deduplication"
	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/graph"
	"streamteam/pkg/tracing"
	"streamteam/pkg/transport"
	"streamteam/pkg/types"
)

// Worker owns one task instance's loop.
type Worker struct {
	Ingress transport.Ingress
	Egress  transport.Egress
	Graph   *graph.Graph
	Window  *graph.WindowGraph
	Dedup   *deduplication.Deduplicator
	Clock   clock.Clock
	Logger  *logrus.Logger
	Tracing *tracing.Manager

	TickInterval            time.Duration
	LogProcessingTimestamps bool
}

// Run consumes envelopes until the context is cancelled or the ingress
// closes. The in-flight envelope always finishes before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if w.TickInterval <= 0 {
		w.TickInterval = time.Second
	}
	w.Graph.OnOutput = w.publish
	if w.Window != nil {
		w.Window.OnOutput = w.publish
	}

	nextTick := w.Clock.Now().Add(w.TickInterval)
	for {
		if w.Window != nil && !w.Clock.Now().Before(nextTick) {
			w.Window.Tick()
			metrics.TicksTotal.Inc()
			nextTick = w.Clock.Now().Add(w.TickInterval)
		}

		waitCtx, cancel := context.WithDeadline(ctx, nextTick)
		env, err := w.Ingress.Next(waitCtx)
		cancel()
		switch {
		case err == nil:
			w.processEnvelope(ctx, env)
		case err == transport.ErrClosed:
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case waitCtx.Err() == context.DeadlineExceeded:
			continue // tick is due
		default:
			// Upstream read failure: surface to the supervisor, which
			// restarts the partition from its last committed offset.
			return streamerrors.Transport("scheduler", "Run", "ingress read failed", err)
		}
	}
}

func (w *Worker) processEnvelope(ctx context.Context, env *types.Envelope) {
	if w.Dedup != nil && w.Dedup.IsDuplicate(env.Key, env.Offset, env.PayloadBytes) {
		metrics.DuplicateEnvelopesTotal.WithLabelValues(env.SourceStream).Inc()
		return
	}

	element, err := types.Decode(env.PayloadBytes)
	if err != nil {
		metrics.DecodeErrorsTotal.WithLabelValues(env.SourceStream, "parse").Inc()
		w.Logger.WithError(err).WithFields(logrus.Fields{
			"key": env.Key, "offset": env.Offset, "stream": env.SourceStream,
		}).Warn("envelope decode failed, dropping")
		return
	}
	if env.SourceStream != "" && element.StreamName != env.SourceStream {
		metrics.DecodeErrorsTotal.WithLabelValues(env.SourceStream, "stream_mismatch").Inc()
		w.Logger.WithFields(logrus.Fields{
			"key": env.Key, "declared": element.StreamName, "stream": env.SourceStream,
		}).Warn("decoded stream name mismatches envelope stream, dropping")
		return
	}

	now := w.Clock.Now()
	element.ProcessingTimestamp = now.UnixMilli()
	element.SequenceNumber = &env.Offset
	element.IngestTimestamp = env.AppendTimestamp
	element.Category = types.RawInput

	if w.Tracing != nil {
		_, span := w.Tracing.StartEnvelopeSpan(ctx, element.StreamName, element.Key, env.Offset)
		defer span.End()
	}

	if w.LogProcessingTimestamps && env.AppendTimestamp != nil {
		latency := float64(now.UnixMilli()-*env.AppendTimestamp) / 1000
		metrics.BallSampleLatency.Observe(latency)
	}

	metrics.ElementsIngestedTotal.WithLabelValues(element.StreamName).Inc()
	metrics.GraphElementsTotal.WithLabelValues("element").Inc()

	started := time.Now()
	w.Graph.Process(element)
	metrics.ProcessingDuration.WithLabelValues("element").Observe(time.Since(started).Seconds())
}

// publish serialises one output element onto its named stream. Internal
// and raw elements reaching this point are a programming error: logged
// and skipped.
func (w *Worker) publish(e *types.Element) {
	if e.Category == types.Internal || e.Category == types.RawInput {
		metrics.EgressErrorsTotal.WithLabelValues(e.StreamName, "category").Inc()
		w.Logger.WithFields(logrus.Fields{
			"stream": e.StreamName, "key": e.Key, "category": e.Category.String(),
		}).Error("refusing to publish non-output element")
		return
	}
	data, err := types.Encode(e)
	if err != nil {
		metrics.EgressErrorsTotal.WithLabelValues(e.StreamName, "encode").Inc()
		w.Logger.WithError(err).WithField("stream", e.StreamName).Error("output element encode failed")
		return
	}
	metrics.DetectorEventsTotal.WithLabelValues(e.StreamName).Inc()
	if err := w.Egress.Publish(types.OutputEnvelope{StreamName: e.StreamName, Key: e.Key, Bytes: data}); err != nil {
		metrics.EgressErrorsTotal.WithLabelValues(e.StreamName, "publish").Inc()
		w.Logger.WithError(err).WithField("stream", e.StreamName).Warn("publish failed, element discarded")
	}
}
