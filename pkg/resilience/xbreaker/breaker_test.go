package xbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBackend = errors.New("backend down")

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var transitions []State
	b := NewBreaker("orders",
		WithTripPolicy(NewConsecutiveFailures(3)),
		WithTimeout(time.Hour),
		WithOnStateChange(func(name string, from, to State) {
			assert.Equal(t, "orders", name)
			transitions = append(transitions, to)
		}),
	)
	ctx := context.Background()

	for range 3 {
		assert.ErrorIs(t, b.Do(ctx, func() error { return errBackend }), errBackend)
	}
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, []State{StateOpen}, transitions)

	var called bool
	err := b.Do(ctx, func() error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrOpenState)
	assert.True(t, IsBreakerError(err))

	var be *BreakerError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "orders", be.Name)
	assert.Equal(t, StateOpen, be.State)
	assert.False(t, be.Retryable())
	assert.Contains(t, be.Error(), "breaker orders")
}

func TestBreaker_SuccessPolicy(t *testing.T) {
	errNotFound := errors.New("not found")
	b := NewBreaker("orders",
		WithTripPolicy(NewConsecutiveFailures(1)),
		WithSuccessPolicy(SuccessFunc(func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		})),
	)

	for range 5 {
		assert.ErrorIs(t, b.Do(context.Background(), func() error { return errNotFound }), errNotFound)
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(5), b.Counts().TotalSuccesses)
}

func TestExecute(t *testing.T) {
	b := NewBreaker("orders", WithTripPolicy(NewConsecutiveFailures(2)))
	ctx := context.Background()

	got, err := Execute(ctx, b, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = Execute(ctx, b, func() (int, error) { return 7, errBackend })
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 7, got)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Execute(canceled, b, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, b.Do(canceled, func() error { return nil }), context.Canceled)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := NewBreaker("orders",
		WithTripPolicy(NewConsecutiveFailures(1)),
		WithTimeout(10*time.Millisecond),
		WithMaxRequests(1),
		WithInterval(0),
	)
	ctx := context.Background()

	require.Error(t, b.Do(ctx, func() error { return errBackend }))
	assert.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Do(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "orders", b.Name())
}

func TestFailureRatioPolicy(t *testing.T) {
	p := NewFailureRatio(1.5, 4)
	assert.False(t, p.ReadyToTrip(Counts{}))
	assert.False(t, p.ReadyToTrip(Counts{Requests: 3, TotalFailures: 3}))
	assert.True(t, p.ReadyToTrip(Counts{Requests: 4, TotalFailures: 4}))

	half := NewFailureRatio(0.5, 2)
	assert.True(t, half.ReadyToTrip(Counts{Requests: 4, TotalFailures: 2}))
	assert.False(t, half.ReadyToTrip(Counts{Requests: 4, TotalFailures: 1}))

	assert.Equal(t, uint32(1), NewConsecutiveFailures(0).Threshold())
}
