package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	}, testLogger())

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		require.Error(t, b.Execute(func() error { return boom }))
	}
	require.Equal(t, StateOpen, b.GetState())

	err := b.Execute(func() error { return nil })
	require.Error(t, err) // rejected while open
}

func TestBreakerClosesAfterProbeSuccesses(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	}, testLogger())

	require.Error(t, b.Execute(func() error { return errors.New("boom") }))
	require.Equal(t, StateOpen, b.GetState())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Execute(func() error { return nil }))
	require.Equal(t, StateHalfOpen, b.GetState())
	require.NoError(t, b.Execute(func() error { return nil }))
	require.Equal(t, StateClosed, b.GetState())
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	}, testLogger())

	require.Error(t, b.Execute(func() error { return errors.New("boom") }))
	time.Sleep(5 * time.Millisecond)
	require.Error(t, b.Execute(func() error { return errors.New("still broken") }))
	require.Equal(t, StateOpen, b.GetState())
}
