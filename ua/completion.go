package ua

import "github.com/sipagent/core/sip"

// Completion is the per-request future-like handle of spec.md §4.I:
// resolved exactly once with either the final response or a transaction
// error. There is no blocking wait — register a callback with OnDone, or
// poll Done/Response/Err once the loop has advanced.
type Completion struct {
	done      bool
	response  *sip.Response
	err       error
	callbacks []func(*sip.Response, error)
}

func newCompletion() *Completion { return &Completion{} }

func (c *Completion) resolve(res *sip.Response, err error) {
	if c.done {
		return
	}
	c.done = true
	c.response = res
	c.err = err
	for _, fn := range c.callbacks {
		fn(res, err)
	}
}

// OnDone registers fn to run when the completion resolves; if it has
// already resolved, fn runs immediately. Callbacks run in the order they
// were registered.
func (c *Completion) OnDone(fn func(*sip.Response, error)) {
	if c.done {
		fn(c.response, c.err)
		return
	}
	c.callbacks = append(c.callbacks, fn)
}

// Done reports whether the completion has resolved.
func (c *Completion) Done() bool { return c.done }

// Response returns the resolved final response, or nil if not done or if
// it failed with an error.
func (c *Completion) Response() *sip.Response { return c.response }

// Err returns the resolved transaction error, or nil if not done or if it
// succeeded.
func (c *Completion) Err() error { return c.err }
