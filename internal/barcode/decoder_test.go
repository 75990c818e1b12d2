package barcode_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeclock/internal/barcode"
	"timeclock/internal/clock"
	"timeclock/internal/logging"
)

type harness struct {
	fake    *clock.Fake
	decoder *barcode.Decoder
	codes   []string
}

func newHarness(t *testing.T, opts barcode.Options) *harness {
	t.Helper()
	h := &harness{fake: clock.NewFake(time.Date(2025, 1, 16, 8, 0, 0, 0, time.UTC))}
	if opts.Timeout == 0 {
		opts.Timeout = 50 * time.Millisecond
	}
	opts.OnCode = func(code string) { h.codes = append(h.codes, code) }
	h.decoder = barcode.NewDecoder(h.fake, opts, logging.NewNop())
	return h
}

func (h *harness) key(k string, gap time.Duration) {
	h.fake.Advance(gap)
	h.decoder.OnKeystroke(k, h.fake.Now())
}

func TestDecoderFramesBurstIntoOneCode(t *testing.T) {
	h := newHarness(t, barcode.Options{})
	h.key("A", 0)
	h.key("B", 10*time.Millisecond)
	h.key("C", 10*time.Millisecond)
	assert.Empty(t, h.codes)
	assert.True(t, h.decoder.Accumulating())

	h.fake.Advance(60 * time.Millisecond)
	assert.Equal(t, []string{"ABC"}, h.codes)
	assert.False(t, h.decoder.Accumulating())
	assert.Empty(t, h.decoder.Buffered())
	assert.Zero(t, h.fake.Pending())
}

func TestDecoderSplitsOnSilence(t *testing.T) {
	h := newHarness(t, barcode.Options{})
	h.key("A", 0)
	h.fake.Advance(80 * time.Millisecond)
	h.key("B", 0)
	h.fake.Advance(80 * time.Millisecond)
	assert.Equal(t, []string{"A", "B"}, h.codes)
}

func TestDecoderRearmKeepsSingleTimer(t *testing.T) {
	h := newHarness(t, barcode.Options{})
	for _, k := range []string{"1", "2", "3", "4"} {
		h.key(k, 40*time.Millisecond)
		assert.Equal(t, 1, h.fake.Pending())
	}
	h.fake.Advance(time.Second)
	assert.Equal(t, []string{"1234"}, h.codes)
}

func TestDecoderPrefixAndSuffix(t *testing.T) {
	h := newHarness(t, barcode.Options{Prefix: "%", Suffix: "\n"})

	for _, k := range []string{"%", "4", "2", "\n"} {
		h.key(k, 5*time.Millisecond)
	}
	h.fake.Advance(time.Second)

	for _, k := range []string{"4", "2", "\n"} {
		h.key(k, 5*time.Millisecond)
	}
	h.fake.Advance(time.Second)

	for _, k := range []string{"%", "4", "2"} {
		h.key(k, 5*time.Millisecond)
	}
	h.fake.Advance(time.Second)

	assert.Equal(t, []string{"%42\n"}, h.codes)
}

func TestDecoderShouldCaptureSuppresses(t *testing.T) {
	capture := false
	h := newHarness(t, barcode.Options{ShouldCapture: func() bool { return capture }})

	h.key("X", 0)
	assert.Empty(t, h.decoder.Buffered())
	assert.Zero(t, h.fake.Pending())

	capture = true
	h.key("Y", 5*time.Millisecond)
	h.fake.Advance(time.Second)
	assert.Equal(t, []string{"Y"}, h.codes)
}

type fakeSource struct {
	fn           func(barcode.Keystroke)
	unsubscribed bool
	err          error
}

func (s *fakeSource) Subscribe(fn func(barcode.Keystroke)) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.fn = fn
	return func() { s.unsubscribed = true; s.fn = nil }, nil
}

func (s *fakeSource) press(k string) {
	if s.fn != nil {
		s.fn(barcode.Keystroke{Key: k})
	}
}

func TestDecoderAttachAndDetach(t *testing.T) {
	h := newHarness(t, barcode.Options{})
	src := &fakeSource{}
	require.NoError(t, h.decoder.Attach(src))
	require.Error(t, h.decoder.Attach(src))

	src.press("7")
	src.press("7")
	assert.Equal(t, "77", h.decoder.Buffered())

	h.decoder.Detach()
	assert.True(t, src.unsubscribed)
	assert.Zero(t, h.fake.Pending())

	h.fake.Advance(time.Second)
	h.decoder.OnKeystroke("9", h.fake.Now())
	h.fake.Advance(time.Second)
	assert.Empty(t, h.codes)
}

func TestDecoderAttachPropagatesSubscribeError(t *testing.T) {
	h := newHarness(t, barcode.Options{})
	err := h.decoder.Attach(&fakeSource{err: errors.New("no device")})
	require.Error(t, err)
	require.NoError(t, h.decoder.Attach(&fakeSource{}))
}

func TestDecoderDispatchesThroughDispatcher(t *testing.T) {
	var queued []func()
	h := newHarness(t, barcode.Options{Dispatch: dispatchFunc(func(fn func()) bool {
		queued = append(queued, fn)
		return true
	})})
	src := &fakeSource{}
	require.NoError(t, h.decoder.Attach(src))

	src.press("Q")
	assert.Empty(t, h.decoder.Buffered())
	require.Len(t, queued, 1)
	queued[0]()
	assert.Equal(t, "Q", h.decoder.Buffered())
}

type dispatchFunc func(func()) bool

func (f dispatchFunc) Post(fn func()) bool { return f(fn) }
