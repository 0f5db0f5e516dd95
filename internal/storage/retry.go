package storage

import (
	"context"
	"errors"
	"time"

	"bistro/internal/model"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultRetries is the number of extra attempts after the first failure.
	DefaultRetries = 2

	// RetryStep is the delay unit; attempt n waits n steps.
	RetryStep = time.Second
)

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// UploadWithRetry runs Upload up to retries+1 times. Malformed or oversized
// input fails immediately. The error of the last attempt is returned.
func (u *Uploader) UploadWithRetry(ctx context.Context, dataURL, pathPrefix string, retries int) (string, error) {
	if retries < 0 {
		retries = DefaultRetries
	}

	attempt := 0
	operation := func() (string, error) {
		attempt++
		url, err := u.Upload(ctx, dataURL, pathPrefix)
		if err != nil && isPermanent(err) {
			return "", backoff.Permanent(err)
		}
		return url, err
	}

	notify := func(err error, wait time.Duration) {
		u.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("image upload failed, retrying")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: u.step}, uint64(retries)),
		ctx,
	)

	url, err := backoff.RetryNotifyWithTimerAndData(operation, policy, notify, u.newTimer())
	if err != nil {
		u.logger.Error().Err(err).Int("attempts", attempt).Msg("image upload failed")
		return "", err
	}

	return url, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, model.ErrInvalidImageData) || errors.Is(err, model.ErrImageTooLarge)
}

// newTimer returns nil outside tests, which selects the library's real timer.
func (u *Uploader) newTimer() backoff.Timer {
	if u.timer == nil {
		return nil
	}
	return u.timer()
}
