package tcloud

import (
	"context"

	"go.uber.org/zap"
)

// Call represents an in-flight asynchronous API call.
type Call struct {
	// Action and Payload echo the arguments of the call.
	Action  string
	Payload any
	// Result and Error hold the outcome once Done receives the call.
	Result *Result
	Error  error
	Done   chan *Call
}

// Go performs the call asynchronously. It returns the Call structure
// representing the invocation, the same structure is delivered on Done when
// the call completes. If done is nil a buffered channel is allocated, if
// non-nil it must be buffered or Go deliberately panics.
//
// Signing still happens per call on the sending goroutine's clock read, the
// asynchrony lives entirely in the transport.
func (c *Client) Go(ctx context.Context, action string, payload any, done chan *Call) *Call {
	call := &Call{
		Action:  action,
		Payload: payload,
	}
	if done == nil {
		done = make(chan *Call, 1)
	} else if cap(done) == 0 {
		panic("tcloud: done channel is unbuffered")
	}
	call.Done = done

	go func() {
		call.Result, call.Error = c.DoAction(ctx, action, payload)
		select {
		case call.Done <- call:
		default:
			// The channel ran out of capacity, the caller only sized it for
			// fewer outstanding calls. Drop rather than block forever.
			c.logger.Warn("discarding reply, done channel is full", zap.String("action", action))
		}
	}()
	return call
}

// Wait blocks until the call completes and returns its outcome. Only valid
// when the call owns its done channel, calls sharing one channel must be
// drained from that channel directly.
func (call *Call) Wait() (*Result, error) {
	<-call.Done
	return call.Result, call.Error
}
