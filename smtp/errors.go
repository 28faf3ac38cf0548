package smtp

import "fmt"

// ErrorKind classifies a parse-time failure the way
// original_source/src/commands.rs's `parsing::Error` enum does, so the
// session can map a failure to the right reply code without string
// matching on the message.
type ErrorKind int

const (
	// ErrInvalidCommand is the catch-all: no verb matched the line at all.
	ErrInvalidCommand ErrorKind = iota
	// ErrCommandName means a verb prefix was recognised but did not match
	// exactly (e.g. missing the required trailing space).
	ErrCommandName
	// ErrInvalidDomain means a domain production failed.
	ErrInvalidDomain
	// ErrInvalidIpv4Address means an IPv4 address-literal production failed.
	ErrInvalidIpv4Address
	// ErrInvalidIdentity means neither the domain nor the IPv4-literal
	// production matched where a ServerIdentity was required.
	ErrInvalidIdentity
	// ErrExpectedCrlf means the line's terminating CRLF was missing.
	ErrExpectedCrlf
	// ErrExpectedEndOfInput means trailing bytes remained after what
	// should have been the end of the command.
	ErrExpectedEndOfInput
	// ErrKnown is a contextual failure inside a string/path/param grammar
	// production, carrying a specific human-readable reason.
	ErrKnown
)

// ParseError is returned by every grammar recogniser and by ParseCommand.
type ParseError struct {
	Kind    ErrorKind
	Message string
}

func (e *ParseError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case ErrInvalidCommand:
		return "unrecognized command"
	case ErrCommandName:
		return "unrecognized command name"
	case ErrInvalidDomain:
		return "invalid domain"
	case ErrInvalidIpv4Address:
		return "invalid IPv4 address literal"
	case ErrInvalidIdentity:
		return "invalid identity"
	case ErrExpectedCrlf:
		return "expected CRLF"
	case ErrExpectedEndOfInput:
		return "expected end of input"
	default:
		return fmt.Sprintf("parse error (kind %d)", e.Kind)
	}
}
