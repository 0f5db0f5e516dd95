package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"bistro/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantTimer records requested delays and fires immediately.
type instantTimer struct {
	delays *[]time.Duration
	c      chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	*t.delays = append(*t.delays, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time {
	return t.c
}

func withInstantTimer(u *Uploader) *[]time.Duration {
	delays := &[]time.Duration{}
	u.timer = func() backoff.Timer { return &instantTimer{delays: delays} }
	return delays
}

func TestUploader_UploadWithRetry(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		retries      int
		wantErr      bool
		wantAttempts int
		wantDelays   []time.Duration
	}{
		{
			name:         "First attempt succeeds",
			failures:     0,
			retries:      2,
			wantAttempts: 1,
			wantDelays:   []time.Duration{},
		},
		{
			name:         "Fails twice then succeeds",
			failures:     2,
			retries:      2,
			wantAttempts: 3,
			wantDelays:   []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:         "Gives up after retries",
			failures:     5,
			retries:      2,
			wantErr:      true,
			wantAttempts: 3,
			wantDelays:   []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:         "Zero retries",
			failures:     1,
			retries:      0,
			wantErr:      true,
			wantAttempts: 1,
			wantDelays:   []time.Duration{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore("food-images")
			failures := tt.failures
			store.putFunc = func(string) error {
				if failures > 0 {
					failures--
					return errors.New("connection reset")
				}
				return nil
			}

			u := newTestUploader(store, 0)
			delays := withInstantTimer(u)

			url, err := u.UploadWithRetry(context.Background(), dataURL([]byte("x")), "dishes", tt.retries)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrUpload)
				assert.Empty(t, url)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, url)
			}
			assert.Equal(t, tt.wantAttempts, store.callCount("put"))
			assert.Equal(t, tt.wantDelays, *delays)
		})
	}
}

func TestUploader_UploadWithRetry_InvalidInputNotRetried(t *testing.T) {
	store := newFakeStore("food-images")
	u := newTestUploader(store, 0)
	delays := withInstantTimer(u)

	_, err := u.UploadWithRetry(context.Background(), "not-a-data-url", "dishes", 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidImageData)
	assert.Empty(t, store.calls)
	assert.Empty(t, *delays)
}

func TestUploader_UploadWithRetry_ContextCancelled(t *testing.T) {
	store := newFakeStore("food-images")
	store.putFunc = func(string) error { return errors.New("connection reset") }
	u := newTestUploader(store, 0)
	withInstantTimer(u)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.UploadWithRetry(ctx, dataURL([]byte("x")), "dishes", 2)
	require.Error(t, err)
	assert.LessOrEqual(t, store.callCount("put"), 1)
}

func TestLinearBackOff(t *testing.T) {
	b := &linearBackOff{step: 100 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 300*time.Millisecond, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
}
