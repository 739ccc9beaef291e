package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/autofill/internal/common"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoReceiver = errors.New("could not establish connection")

type call struct {
	frame int
	msg   messages.Message
}

type fakeMessenger struct {
	mu       sync.Mutex
	calls    []call
	answer   map[int]messages.Response
	failures map[int]int // remaining transport failures per frame
	onCall   func(frame int)
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{answer: map[int]messages.Response{}, failures: map[int]int{}}
}

func (f *fakeMessenger) SendToFrame(_ context.Context, _ int, frameID int, msg messages.Message) (messages.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{frame: frameID, msg: msg})
	fail := f.failures[frameID]
	if fail != 0 {
		if fail > 0 {
			f.failures[frameID] = fail - 1
		}
	}
	resp := f.answer[frameID]
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(frameID)
	}
	if fail != 0 {
		return messages.Response{}, errNoReceiver
	}
	return resp, nil
}

func (f *fakeMessenger) framesCalled() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.frame
	}
	return out
}

type fakeFrames struct {
	ids   []int
	err   error
	calls int
}

func (f *fakeFrames) Frames(context.Context, int) ([]int, error) {
	f.calls++
	return f.ids, f.err
}

func fastPolicy() Policy { return Policy{MaxAttempts: 5, Delay: 0} }

func TestAutofill_MainFrameExhaustsRetries(t *testing.T) {
	m := newFakeMessenger()
	m.failures[MainFrame] = -1
	frames := &fakeFrames{ids: []int{0, 3, 7}}
	d := New(m, frames, lifecycle.New(), fastPolicy(), nil)

	_, err := d.Autofill(context.Background(), 1, "home", "")

	require.ErrorIs(t, err, ErrConnectivity)
	assert.ErrorIs(t, err, errNoReceiver)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, m.framesCalled())
	assert.Zero(t, frames.calls)
	assert.Equal(t, TextConnectivity, ErrorText(err))
}

func TestAutofill_RecoversWithinPolicy(t *testing.T) {
	m := newFakeMessenger()
	m.failures[MainFrame] = 2
	m.answer[MainFrame] = messages.Response{Status: messages.StatusSuccess}
	d := New(m, &fakeFrames{ids: []int{0}}, lifecycle.New(), fastPolicy(), nil)

	out, err := d.Autofill(context.Background(), 1, "home", "")

	require.NoError(t, err)
	assert.Equal(t, TextFilled, out.Text())
	assert.Equal(t, []int{0, 0, 0}, m.framesCalled())
}

func TestAutofill_OtherFramesAttemptedOnceEach(t *testing.T) {
	m := newFakeMessenger()
	m.answer[MainFrame] = messages.Response{Status: messages.StatusSuccess}
	m.failures[3] = -1
	m.answer[7] = messages.Response{Status: messages.StatusSuccess}
	frames := &fakeFrames{ids: []int{0, 3, 7}}
	d := New(m, frames, lifecycle.New(), fastPolicy(), nil)

	out, err := d.Autofill(context.Background(), 1, "home", "k")

	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 7}, m.framesCalled())
	require.Len(t, out.Frames, 2)
	assert.ErrorIs(t, out.Frames[0].Err, errNoReceiver)
	assert.Equal(t, messages.StatusSuccess, out.Frames[1].Response.Status)
	assert.True(t, out.IframeFilled())
	assert.Equal(t, messages.StatusSuccess, out.Main.Status)

	for _, c := range m.calls {
		assert.Equal(t, messages.Autofill{ProfileKey: "home", EncryptionKey: "k"}, c.msg)
	}
}

func TestAutofill_OtherFramesAfterAnyStatus(t *testing.T) {
	for _, st := range []messages.Status{messages.StatusNoProfile, messages.StatusInvalidKey, messages.StatusNoFields} {
		t.Run(string(st), func(t *testing.T) {
			m := newFakeMessenger()
			m.answer[MainFrame] = messages.Response{Status: st}
			d := New(m, &fakeFrames{ids: []int{0, 2}}, lifecycle.New(), fastPolicy(), nil)

			out, err := d.Autofill(context.Background(), 1, "home", "")
			require.NoError(t, err)
			assert.Equal(t, st, out.Main.Status)
			assert.Equal(t, []int{0, 2}, m.framesCalled())
		})
	}
}

func TestAutofill_FrameEnumerationFailureIsBestEffort(t *testing.T) {
	m := newFakeMessenger()
	m.answer[MainFrame] = messages.Response{Status: messages.StatusSuccess}
	d := New(m, &fakeFrames{err: errors.New("tab closed")}, lifecycle.New(), fastPolicy(), nil)

	out, err := d.Autofill(context.Background(), 1, "home", "")
	require.NoError(t, err)
	assert.Empty(t, out.Frames)
	assert.Equal(t, TextFilled, out.Text())
}

func TestAutofill_InvalidatedRuntime(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		rt := lifecycle.New()
		rt.Invalidate()
		m := newFakeMessenger()
		d := New(m, &fakeFrames{ids: []int{0, 1}}, rt, fastPolicy(), nil)

		_, err := d.Autofill(context.Background(), 1, "home", "")
		assert.ErrorIs(t, err, common.ErrContextInvalidated)
		assert.Empty(t, m.framesCalled())
		assert.Equal(t, TextContextInvalid, ErrorText(err))
	})

	t.Run("during retries", func(t *testing.T) {
		rt := lifecycle.New()
		m := newFakeMessenger()
		m.failures[MainFrame] = -1
		m.onCall = func(int) { rt.Invalidate() }
		d := New(m, &fakeFrames{ids: []int{0, 1}}, rt, fastPolicy(), nil)

		_, err := d.Autofill(context.Background(), 1, "home", "")
		assert.ErrorIs(t, err, common.ErrContextInvalidated)
		assert.NotErrorIs(t, err, ErrConnectivity)
		assert.Equal(t, []int{0}, m.framesCalled())
	})

	t.Run("between frames", func(t *testing.T) {
		rt := lifecycle.New()
		m := newFakeMessenger()
		m.answer[MainFrame] = messages.Response{Status: messages.StatusSuccess}
		m.onCall = func(frame int) {
			if frame == 1 {
				rt.Invalidate()
			}
		}
		d := New(m, &fakeFrames{ids: []int{0, 1, 2}}, rt, fastPolicy(), nil)

		_, err := d.Autofill(context.Background(), 1, "home", "")
		assert.ErrorIs(t, err, common.ErrContextInvalidated)
		assert.Equal(t, []int{0, 1}, m.framesCalled())
	})
}

func TestAutofill_DelayBetweenAttempts(t *testing.T) {
	m := newFakeMessenger()
	m.failures[MainFrame] = -1
	d := New(m, &fakeFrames{}, lifecycle.New(), Policy{MaxAttempts: 3, Delay: 20 * time.Millisecond}, nil)

	start := time.Now()
	_, err := d.Autofill(context.Background(), 1, "home", "")
	require.ErrorIs(t, err, ErrConnectivity)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Len(t, m.framesCalled(), 3)
}

func TestOutcome_Text(t *testing.T) {
	tests := map[messages.Status]string{
		messages.StatusSuccess:            TextFilled,
		messages.StatusNoProfile:          TextNoProfile,
		messages.StatusInvalidKey:         TextInvalidKey,
		messages.StatusNoFields:           TextNoFields,
		messages.StatusContextInvalidated: TextContextInvalid,
		messages.StatusError:              TextFailed,
		"":                                TextFailed,
	}
	for st, want := range tests {
		assert.Equal(t, want, Outcome{Main: messages.Response{Status: st}}.Text(), st)
	}
}

func TestCheckForms(t *testing.T) {
	t.Run("main frame", func(t *testing.T) {
		m := newFakeMessenger()
		m.answer[MainFrame] = messages.Forms(true)
		frames := &fakeFrames{ids: []int{0, 1}}
		d := New(m, frames, lifecycle.New(), fastPolicy(), nil)

		text, err := d.CheckForms(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, TextFormOnPage, text)
		assert.Zero(t, frames.calls)
	})

	t.Run("iframe", func(t *testing.T) {
		m := newFakeMessenger()
		m.answer[MainFrame] = messages.Forms(false)
		m.failures[1] = -1
		m.answer[2] = messages.Forms(true)
		d := New(m, &fakeFrames{ids: []int{0, 1, 2}}, lifecycle.New(), fastPolicy(), nil)

		text, err := d.CheckForms(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, TextFormInIframe, text)
	})

	t.Run("none", func(t *testing.T) {
		m := newFakeMessenger()
		d := New(m, &fakeFrames{ids: []int{0}}, lifecycle.New(), fastPolicy(), nil)

		text, err := d.CheckForms(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, TextNoFormsDetected, text)
	})

	t.Run("unreachable", func(t *testing.T) {
		m := newFakeMessenger()
		m.failures[MainFrame] = -1
		d := New(m, &fakeFrames{ids: []int{0}}, lifecycle.New(), fastPolicy(), nil)

		_, err := d.CheckForms(context.Background(), 1)
		assert.ErrorIs(t, err, ErrConnectivity)
	})
}

func TestBroadcast_NoRetry(t *testing.T) {
	m := newFakeMessenger()
	m.failures[MainFrame] = -1
	d := New(m, &fakeFrames{ids: []int{0, 4}}, lifecycle.New(), fastPolicy(), nil)

	err := d.Broadcast(context.Background(), 1, messages.ToggleRecordMode{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, m.framesCalled())
}
