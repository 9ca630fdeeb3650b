// Package notifications pushes run outcomes to ntfy.
//
// A configured topic URL receives one message when a run finishes and one
// when it fails. Without a topic the service is a no-op, so the pipeline can
// call it unconditionally.
package notifications
