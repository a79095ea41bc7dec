package core

// An Elevation is a scoped capability that switches off authorization
// checks on its Context until it is released. Tokens nest: checks resume
// once every outstanding token has been released.
//
//	e := c.Elevate()
//	defer e.Release()
type Elevation struct {
	c        *Context
	released bool
}

// Elevate acquires a new elevation token.
func (c *Context) Elevate() *Elevation {
	c.elevated++
	return &Elevation{c: c}
}

// Release gives up the token. Calling it more than once is harmless.
func (e *Elevation) Release() {
	if e == nil || e.released {
		return
	}
	e.released = true
	e.c.elevated--
}

// Elevated reports whether any elevation token is currently held.
func (c *Context) Elevated() bool {
	return c.elevated > 0
}
