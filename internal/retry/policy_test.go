package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, Linear, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestNewPolicyClampsInitial(t *testing.T) {
	p := NewPolicy(Fixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, Fixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	assert.Equal(t, Linear, NewPolicy("bogus", 0, 0, -1).Mode)
}

func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		p    Policy
		want []time.Duration
	}{
		{NewPolicy(Fixed, 100*ms, 500*ms, 3), []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{NewPolicy(Linear, 100*ms, 250*ms, 5), []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{NewPolicy(Exponential, 50*ms, 160*ms, 5), []time.Duration{50 * ms, 100 * ms, 160 * ms, 160 * ms}},
	}
	for _, tt := range tests {
		t.Run(string(tt.p.Mode), func(t *testing.T) {
			for i, want := range tt.want {
				assert.Equal(t, want, tt.p.Delay(i+1), "retry %d", i+1)
			}
			assert.Zero(t, tt.p.Delay(0))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func TestDo(t *testing.T) {
	p := NewPolicy(Fixed, time.Millisecond, time.Millisecond, 2)
	transient := errors.New("transient")
	permanent := errors.New("permanent")

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = p.Do(context.Background(), func() error { calls++; return transient }, nil)
	require.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)

	calls = 0
	err = p.Do(context.Background(), func() error { calls++; return permanent },
		func(err error) bool { return !errors.Is(err, permanent) })
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	slow := NewPolicy(Fixed, time.Hour, time.Hour, 3)
	err = slow.Do(ctx, func() error { calls++; return transient }, nil)
	require.ErrorIs(t, err, transient)
	assert.Equal(t, 1, calls)
}
