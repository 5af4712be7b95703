package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"streamteam/pkg/clock"
	"streamteam/pkg/deduplication"
	"streamteam/pkg/graph"
	"streamteam/pkg/transport"
	"streamteam/pkg/types"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func encodeElement(t *testing.T, e *types.Element) []byte {
	t.Helper()
	data, err := types.Encode(e)
	require.NoError(t, err)
	return data
}

// passThrough republishes every input as an output element on a derived
// stream.
func passThrough() graph.Operator {
	return graph.OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
		out := e.Clone()
		out.StreamName = "derivedEvent"
		out.Category = types.Output
		out.IngestTimestamp = nil
		out.SequenceNumber = nil
		return []*types.Element{out}, nil
	})
}

func TestWorkerProcessesAndPublishes(t *testing.T) {
	ingress := transport.NewMemoryIngress(10)
	egress := transport.NewMemoryEgress()

	g := graph.NewGraph(quietLogger())
	g.AddStart(graph.NewNode("derive", passThrough()))

	w := &Worker{
		Ingress:      ingress,
		Egress:       egress,
		Graph:        g,
		Clock:        clock.Real{},
		Logger:       quietLogger(),
		TickInterval: time.Hour,
	}

	payload := encodeElement(t, &types.Element{
		StreamName:          "fieldObjectState",
		Key:                 "m1",
		GenerationTimestamp: 1000,
		Category:            types.RawInput,
	})
	ingress.Offer(&types.Envelope{Key: "m1", Offset: 7, PayloadBytes: payload, SourceStream: "fieldObjectState"})
	ingress.Close()

	require.NoError(t, w.Run(context.Background()))

	published := egress.Published()
	require.Len(t, published, 1)
	require.Equal(t, "derivedEvent", published[0].StreamName)
	require.Equal(t, "m1", published[0].Key)

	decoded, err := types.Decode(published[0].Bytes)
	require.NoError(t, err)
	require.EqualValues(t, 1000, decoded.GenerationTimestamp)
}

func TestWorkerDropsStreamMismatch(t *testing.T) {
	ingress := transport.NewMemoryIngress(10)
	egress := transport.NewMemoryEgress()

	g := graph.NewGraph(quietLogger())
	g.AddStart(graph.NewNode("derive", passThrough()))

	w := &Worker{
		Ingress: ingress, Egress: egress, Graph: g,
		Clock: clock.Real{}, Logger: quietLogger(), TickInterval: time.Hour,
	}

	payload := encodeElement(t, &types.Element{StreamName: "somethingElse", Key: "m1"})
	ingress.Offer(&types.Envelope{Key: "m1", Offset: 1, PayloadBytes: payload, SourceStream: "fieldObjectState"})
	ingress.Close()

	require.NoError(t, w.Run(context.Background()))
	require.Empty(t, egress.Published())
}

func TestWorkerRefusesInternalOutput(t *testing.T) {
	ingress := transport.NewMemoryIngress(10)
	egress := transport.NewMemoryEgress()

	leakInternal := graph.OperatorFunc(func(e *types.Element) ([]*types.Element, error) {
		out := e.Clone()
		out.Category = types.Internal
		return []*types.Element{out}, nil
	})
	g := graph.NewGraph(quietLogger())
	g.AddStart(graph.NewNode("leak", leakInternal))

	w := &Worker{
		Ingress: ingress, Egress: egress, Graph: g,
		Clock: clock.Real{}, Logger: quietLogger(), TickInterval: time.Hour,
	}

	payload := encodeElement(t, &types.Element{StreamName: "fieldObjectState", Key: "m1"})
	ingress.Offer(&types.Envelope{Key: "m1", Offset: 1, PayloadBytes: payload, SourceStream: "fieldObjectState"})
	ingress.Close()

	require.NoError(t, w.Run(context.Background()))
	// Internal elements stay inside the worker: graph children may see
	// them, the egress never does.
	require.Empty(t, egress.Published())
}

func TestWorkerSkipsDuplicates(t *testing.T) {
	ingress := transport.NewMemoryIngress(10)
	egress := transport.NewMemoryEgress()

	g := graph.NewGraph(quietLogger())
	g.AddStart(graph.NewNode("derive", passThrough()))

	w := &Worker{
		Ingress: ingress, Egress: egress, Graph: g,
		Dedup:  deduplication.New(deduplication.Config{Enabled: true}, quietLogger()),
		Clock:  clock.Real{},
		Logger: quietLogger(), TickInterval: time.Hour,
	}

	payload := encodeElement(t, &types.Element{StreamName: "fieldObjectState", Key: "m1"})
	env := &types.Envelope{Key: "m1", Offset: 1, PayloadBytes: payload, SourceStream: "fieldObjectState"}
	ingress.Offer(env)
	dup := *env
	ingress.Offer(&dup)
	ingress.Close()

	require.NoError(t, w.Run(context.Background()))
	require.Len(t, egress.Published(), 1)
}

func TestWindowTickFiresBetweenEnvelopes(t *testing.T) {
	ingress := transport.NewMemoryIngress(10)
	egress := transport.NewMemoryEgress()

	g := graph.NewGraph(quietLogger())
	g.AddStart(graph.NewNode("derive", passThrough()))

	ticked := make(chan struct{}, 100)
	window := graph.NewWindowGraph(quietLogger())
	window.AddRoot(graph.NewWindowRoot("tick", graph.SourceFunc(func() ([]*types.Element, error) {
		select {
		case ticked <- struct{}{}:
		default:
		}
		return nil, nil
	})))

	w := &Worker{
		Ingress: ingress, Egress: egress, Graph: g, Window: window,
		Clock: clock.Real{}, Logger: quietLogger(), TickInterval: 10 * time.Millisecond,
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("window tick never fired")
	}
	ingress.Close()
	require.NoError(t, <-done)
}
