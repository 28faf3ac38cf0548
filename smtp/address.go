package smtp

import "strings"

// ServerIdentity is either a registered domain name or a bracketed IPv4
// address literal, carrying over original_source/src/commands.rs'
// ServerIdentity enum.
type ServerIdentity struct {
	IsIPv4 bool
	Domain string // valid when !IsIPv4
	IPv4   string // valid when IsIPv4, without the surrounding brackets
}

func (s ServerIdentity) String() string {
	if s.IsIPv4 {
		return "[" + s.IPv4 + "]"
	}
	return s.Domain
}

func (s ServerIdentity) Equal(o ServerIdentity) bool {
	return s.IsIPv4 == o.IsIPv4 && s.Domain == o.Domain && s.IPv4 == o.IPv4
}

// LocalPartKind discriminates the two lexical forms a LocalPart can take.
type LocalPartKind int

const (
	LocalPartDotString LocalPartKind = iota
	LocalPartQuotedString
)

// LocalPart is either a dot-string or a quoted-string local part of a
// mailbox, carrying over commands.rs' LocalPart enum.
type LocalPart struct {
	Kind  LocalPartKind
	Value string
}

func (l LocalPart) String() string {
	if l.Kind == LocalPartQuotedString {
		return quoteLocalPart(l.Value)
	}
	return l.Value
}

func (l LocalPart) Equal(o LocalPart) bool {
	return l.Kind == o.Kind && l.Value == o.Value
}

func quoteLocalPart(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// Mailbox is a (LocalPart, ServerIdentity) pair.
type Mailbox struct {
	LocalPart LocalPart
	Domain    ServerIdentity
}

func (m Mailbox) String() string {
	return m.LocalPart.String() + "@" + m.Domain.String()
}

func (m Mailbox) Equal(o Mailbox) bool {
	return m.LocalPart.Equal(o.LocalPart) && m.Domain.Equal(o.Domain)
}

// Path is a source-routed mailbox: an ordered (possibly empty) list of
// relay domains, syntactically accepted but semantically ignored when
// routing per spec.md §3, plus the terminal mailbox.
type Path struct {
	SourceRoute []string
	Mailbox     Mailbox
}

func (p Path) String() string {
	var b strings.Builder
	for _, d := range p.SourceRoute {
		b.WriteByte('@')
		b.WriteString(d)
		b.WriteByte(',')
	}
	b.WriteString(p.Mailbox.String())
	return b.String()
}

func (p Path) Equal(o Path) bool {
	if len(p.SourceRoute) != len(o.SourceRoute) {
		return false
	}
	for i := range p.SourceRoute {
		if p.SourceRoute[i] != o.SourceRoute[i] {
			return false
		}
	}
	return p.Mailbox.Equal(o.Mailbox)
}

// RecipientKind discriminates the three forms a RCPT TO target can take.
type RecipientKind int

const (
	RecipientLocalPostmaster RecipientKind = iota
	RecipientPostmasterAtDomain
	RecipientPath
)

// Recipient is the RCPT TO target: the local postmaster alias, postmaster
// at an explicit domain, or any other bracketed path.
type Recipient struct {
	Kind           RecipientKind
	PostmasterHost string // valid when Kind == RecipientPostmasterAtDomain
	Path           Path   // valid when Kind == RecipientPath
}

func (r Recipient) String() string {
	switch r.Kind {
	case RecipientLocalPostmaster:
		return "postmaster"
	case RecipientPostmasterAtDomain:
		return "postmaster@" + r.PostmasterHost
	default:
		return r.Path.String()
	}
}

// Equal implements the structural comparison I1 requires for recipient
// deduplication: two recipients are equal iff their owned forms match,
// except that postmaster hosts are compared case-insensitively.
func (r Recipient) Equal(o Recipient) bool {
	if r.Kind != o.Kind {
		return false
	}
	switch r.Kind {
	case RecipientLocalPostmaster:
		return true
	case RecipientPostmasterAtDomain:
		return strings.EqualFold(r.PostmasterHost, o.PostmasterHost)
	default:
		return r.Path.Equal(o.Path)
	}
}

// SmtpStringKind discriminates the two lexical forms SmtpString can take.
type SmtpStringKind int

const (
	SmtpStringAtom SmtpStringKind = iota
	SmtpStringQuoted
)

// SmtpString is either an atom or a quoted-string, used for VRFY/EXPN/
// HELP/NOOP arguments.
type SmtpString struct {
	Kind  SmtpStringKind
	Value string
}

func (s SmtpString) String() string {
	if s.Kind == SmtpStringQuoted {
		return quoteLocalPart(s.Value)
	}
	return s.Value
}

// EsmtpParam is a single "KEY" or "KEY=VALUE" token appended to a MAIL
// FROM / RCPT TO line.
type EsmtpParam struct {
	Keyword string
	Value   string
	HasValue bool
}
