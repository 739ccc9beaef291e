// Package dispatch delivers runtime messages to the frames of a tab.
//
// Frame 0 is always resolved first, with a bounded retry on transport
// errors. Other frames are attempted once each, in the order the host lists
// them, and their failures never change the reported outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/autofill/internal/common"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/sethvargo/go-retry"
)

// MainFrame is the id of a tab's top frame.
const MainFrame = 0

// ErrConnectivity reports that frame 0 never answered within the retry policy.
var ErrConnectivity = errors.New("failed to connect to page")

// Messenger sends a runtime message to one frame and waits for its answer.
// Any error is a transport failure.
type Messenger interface {
	SendToFrame(ctx context.Context, tabID, frameID int, msg messages.Message) (messages.Response, error)
}

// FrameLister enumerates the frame ids of a tab.
type FrameLister interface {
	Frames(ctx context.Context, tabID int) ([]int, error)
}

// Policy bounds delivery retries to frame 0.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Delay: time.Second}
}

func (p Policy) backoff() retry.Backoff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	constant := retry.BackoffFunc(func() (time.Duration, bool) { return delay, false })
	return retry.WithMaxRetries(uint64(attempts-1), constant)
}

// FrameResult is the answer of one non-top frame.
type FrameResult struct {
	FrameID  int
	Response messages.Response
	Err      error
}

// Dispatcher sends fill, check and broadcast instructions to tabs.
type Dispatcher struct {
	messenger Messenger
	frames    FrameLister
	runtime   lifecycle.Checker
	policy    Policy
	log       logging.Logger
}

func New(m Messenger, f FrameLister, rt lifecycle.Checker, p Policy, log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Dispatcher{messenger: m, frames: f, runtime: rt, policy: p, log: log}
}

// sendMain delivers msg to frame 0, retrying transport errors. Lifecycle
// invalidation stops the loop at once.
func (d *Dispatcher) sendMain(ctx context.Context, tabID int, msg messages.Message) (messages.Response, error) {
	attempt := 0
	resp, err := retry.DoValue(ctx, d.policy.backoff(), func(ctx context.Context) (messages.Response, error) {
		if err := lifecycle.Check(d.runtime); err != nil {
			return messages.Response{}, err
		}
		attempt++
		deliveryAttempts.WithLabelValues(string(msg.Action())).Inc()

		resp, err := d.messenger.SendToFrame(ctx, tabID, MainFrame, msg)
		if err != nil {
			d.log.Warn(ctx, "main frame delivery failed", "tab", tabID, "action", msg.Action(), "attempt", attempt, "error", err)
			return messages.Response{}, retry.RetryableError(err)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, common.ErrContextInvalidated) {
			return messages.Response{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return messages.Response{}, err
		}
		return messages.Response{}, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	return resp, nil
}

// sendOthers delivers msg once to every frame but 0, sequentially.
func (d *Dispatcher) sendOthers(ctx context.Context, tabID int, msg messages.Message) ([]FrameResult, error) {
	if err := lifecycle.Check(d.runtime); err != nil {
		return nil, err
	}
	ids, err := d.frames.Frames(ctx, tabID)
	if err != nil {
		d.log.Warn(ctx, "frame enumeration failed", "tab", tabID, "error", err)
		return nil, nil
	}

	var out []FrameResult
	for _, id := range ids {
		if id == MainFrame {
			continue
		}
		if err := lifecycle.Check(d.runtime); err != nil {
			return out, err
		}
		deliveryAttempts.WithLabelValues(string(msg.Action())).Inc()
		resp, err := d.messenger.SendToFrame(ctx, tabID, id, msg)
		if err != nil {
			d.log.Info(ctx, "iframe delivery failed", "tab", tabID, "frame", id, "action", msg.Action(), "error", err)
		}
		out = append(out, FrameResult{FrameID: id, Response: resp, Err: err})
	}
	return out, nil
}
