package smtp

import "strings"

// parseIdentity parses a ServerIdentity: an IPv4 address literal or a domain
// name, trying the literal first the way commands.rs' `identity` does.
func parseIdentity(input string) (rest string, value ServerIdentity, err error) {
	if r, addr, e := ipv4Literal(input); e == nil {
		return r, ServerIdentity{IsIPv4: true, IPv4: addr}, nil
	}
	if r, domain, e := domainName(input); e == nil {
		return r, ServerIdentity{Domain: domain}, nil
	}
	return input, ServerIdentity{}, &ParseError{Kind: ErrInvalidIdentity, Message: "invalid identity (neither a domain nor an IPv4 address literal)"}
}

// parseLocalPart parses a LocalPart: a dot-string or, failing that, a
// quoted-string.
func parseLocalPart(input string) (rest string, value LocalPart, err error) {
	if r, s, e := dotString(input); e == nil {
		return r, LocalPart{Kind: LocalPartDotString, Value: s}, nil
	}
	if r, s, e := quotedString(input); e == nil {
		return r, LocalPart{Kind: LocalPartQuotedString, Value: s}, nil
	}
	return input, LocalPart{}, &ParseError{Kind: ErrKnown, Message: "invalid local part (neither a dot-string nor a quoted-string)"}
}

// parseMailbox parses Local-part "@" (Domain / address-literal).
func parseMailbox(input string) (rest string, value Mailbox, err error) {
	input, local, err := parseLocalPart(input)
	if err != nil {
		return input, Mailbox{}, err
	}
	if len(input) == 0 || input[0] != '@' {
		return input, Mailbox{}, &ParseError{Kind: ErrKnown, Message: "expecting a '@' in an email address"}
	}
	input = input[1:]
	input, identity, err := parseIdentity(input)
	if err != nil {
		return input, Mailbox{}, err
	}
	return input, Mailbox{LocalPart: local, Domain: identity}, nil
}

// parseSourceRoute parses "@" domain ("," "@" domain)* ":".
func parseSourceRoute(input string) (rest string, value []string, err error) {
	if len(input) == 0 || input[0] != '@' {
		return input, nil, &ParseError{Kind: ErrKnown, Message: "expected '@' at the beginning of a source route"}
	}
	input = input[1:]

	input, first, err := domainName(input)
	if err != nil {
		return input, nil, err
	}
	domains := []string{first}

	for len(input) > 0 && input[0] == ',' {
		next := input[1:]
		if len(next) == 0 || next[0] != '@' {
			break
		}
		next = next[1:]
		r, d, e := domainName(next)
		if e != nil {
			return input, nil, e
		}
		input = r
		domains = append(domains, d)
	}

	if len(input) == 0 || input[0] != ':' {
		return input, nil, &ParseError{Kind: ErrKnown, Message: "expected ':' at the end of a source route"}
	}
	input = input[1:]

	return input, domains, nil
}

// parsePath parses "<" [source-route] mailbox ">".
func parsePath(input string) (rest string, value Path, err error) {
	if len(input) == 0 || input[0] != '<' {
		return input, Path{}, &ParseError{Kind: ErrKnown, Message: "expected '<' at the beginning of a path"}
	}
	input = input[1:]

	var sourceRoute []string
	if r, sr, e := parseSourceRoute(input); e == nil {
		input = r
		sourceRoute = sr
	}

	input, mbox, err := parseMailbox(input)
	if err != nil {
		return input, Path{}, err
	}

	if len(input) == 0 || input[0] != '>' {
		return input, Path{}, &ParseError{Kind: ErrKnown, Message: "expected '>' at the end of a path"}
	}
	input = input[1:]

	return input, Path{SourceRoute: sourceRoute, Mailbox: mbox}, nil
}

// parseReversePath parses the MAIL FROM target: "<>" (null reverse path) or a
// path.
func parseReversePath(input string) (rest string, value *Path, err error) {
	if strings.HasPrefix(input, "<>") {
		return input[2:], nil, nil
	}
	r, p, e := parsePath(input)
	if e != nil {
		return input, nil, e
	}
	return r, &p, nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// parseRecipient parses the RCPT TO target: <postmaster@domain>, any other
// bracketed path, or <postmaster>, in that trial order to resolve the
// prefix overlap between "<postmaster@" and a general path starting with
// "<postmaster" as a local part.
func parseRecipient(input string) (rest string, value Recipient, err error) {
	if hasPrefixFold(input, "<postmaster@") {
		after := input[len("<postmaster@"):]
		if r, domain, e := domainName(after); e == nil {
			if len(r) > 0 && r[0] == '>' {
				return r[1:], Recipient{Kind: RecipientPostmasterAtDomain, PostmasterHost: domain}, nil
			}
		}
	}

	if r, p, e := parsePath(input); e == nil {
		return r, Recipient{Kind: RecipientPath, Path: p}, nil
	}

	if hasPrefixFold(input, "<postmaster>") {
		return input[len("<postmaster>"):], Recipient{Kind: RecipientLocalPostmaster}, nil
	}

	return input, Recipient{}, &ParseError{Kind: ErrKnown, Message: "the recipient does not match anything"}
}

// parseSmtpString parses an atom or, failing that, a quoted-string.
func parseSmtpString(input string) (rest string, value SmtpString, err error) {
	if r, s, e := atom(input); e == nil {
		return r, SmtpString{Kind: SmtpStringAtom, Value: s}, nil
	}
	if r, s, e := quotedString(input); e == nil {
		return r, SmtpString{Kind: SmtpStringQuoted, Value: s}, nil
	}
	return input, SmtpString{}, &ParseError{Kind: ErrKnown, Message: "expected a string"}
}

// parseEsmtpParam parses esmtp-keyword ["=" esmtp-value].
func parseEsmtpParam(input string) (rest string, value EsmtpParam, err error) {
	input, keyword, err := esmtpKeyword(input)
	if err != nil {
		return input, EsmtpParam{}, err
	}
	if len(input) > 0 && input[0] == '=' {
		r, v, e := esmtpValue(input[1:])
		if e != nil {
			return input, EsmtpParam{}, e
		}
		return r, EsmtpParam{Keyword: keyword, Value: v, HasValue: true}, nil
	}
	return input, EsmtpParam{Keyword: keyword}, nil
}

// parseEsmtpParams parses esmtp-param (SP esmtp-param)*.
func parseEsmtpParams(input string) (rest string, value []EsmtpParam, err error) {
	input, first, err := parseEsmtpParam(input)
	if err != nil {
		return input, nil, err
	}
	params := []EsmtpParam{first}

	for len(input) > 0 {
		if input[0] != ' ' {
			break
		}
		r, p, e := parseEsmtpParam(input[1:])
		if e != nil {
			break
		}
		input = r
		params = append(params, p)
	}

	return input, params, nil
}
