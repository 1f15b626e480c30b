// Package logging gates verbose protocol-engine tracing behind a single
// runtime switch, so option-negotiation tracing can be left in the code
// year-round without spamming production logs.
package logging

import "log"

// DebugEnabled controls whether Debug() produces output. cmd/telnetd sets
// this from its -debug flag.
var DebugEnabled bool

// Debug logs a message only when DebugEnabled is true.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}
