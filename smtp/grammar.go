package smtp

import "strings"

// Pure RFC 5321 lexical recognisers. None of these perform I/O; each takes
// the remaining input and returns what it consumed plus whatever is left
// over. The returned strings are substrings of the input (Go string slicing
// shares the backing array, so this is the natural analogue of the Rust
// parser's borrowed &str values from the original design).

// isAtext reports whether c is part of the RFC 5321/5322 atext character
// class: alphanumerics plus !#$%&'*+-/=?^_`{|}~
func isAtext(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '!' || c == '#' || c == '$' || c == '%' || c == '&' || c == '\'' ||
		c == '*' || c == '+' || c == '-' || c == '/' || c == '=' || c == '?' ||
		c == '^' || c == '_' || c == '`' || c == '{' || c == '|' || c == '}' || c == '~':
		return true
	}
	return false
}

// isQtextSMTP reports whether c may appear unescaped inside a quoted-string:
// any printable ASCII or space except the backslash and the double quote.
func isQtextSMTP(c byte) bool {
	return (c >= 32 && c <= 33) || (c >= 35 && c <= 91) || (c >= 93 && c <= 126)
}

func isAlphanumeric(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// dotString consumes the longest prefix matching atext ("." atext)*. It
// fails if the input does not start with atext, and it stops (without
// error) before a stray trailing dot that is not followed by another atext
// run. Consecutive dots are rejected.
func dotString(input string) (rest string, value string, err error) {
	if len(input) == 0 || !isAtext(input[0]) {
		return input, "", &ParseError{Kind: ErrKnown, Message: "invalid character in the local part of a mailbox at the first position or after a dot"}
	}

	idx := 0
	for idx < len(input) && isAtext(input[idx]) {
		idx++
	}

	for idx < len(input) && input[idx] == '.' {
		if idx+1 >= len(input) || !isAtext(input[idx+1]) {
			// Dot not followed by atext: a second consecutive dot is an
			// error; otherwise (end of input or another character) stop
			// before the stray dot.
			if idx+1 < len(input) && input[idx+1] == '.' {
				return input, "", &ParseError{Kind: ErrKnown, Message: "consecutive dots in a dot-string"}
			}
			break
		}
		idx++ // consume the dot
		for idx < len(input) && isAtext(input[idx]) {
			idx++
		}
	}

	return input[idx:], input[:idx], nil
}

// quotedString requires a leading double quote, accepts qtext bytes and
// backslash-escaped printable-ASCII bytes, and terminates on an unescaped
// double quote. It returns the unescaped content as an owned string (it
// must be owned: escaping removes bytes, so it can no longer be a plain
// substring of input).
func quotedString(input string) (rest string, value string, err error) {
	if len(input) == 0 || input[0] != '"' {
		return input, "", &ParseError{Kind: ErrKnown, Message: "expected double quote at the beginning of a quoted string"}
	}

	var b strings.Builder
	i := 1
	for i < len(input) {
		c := input[i]
		switch {
		case isQtextSMTP(c):
			b.WriteByte(c)
			i++
		case c == '\\':
			if i+1 >= len(input) {
				return input, "", &ParseError{Kind: ErrKnown, Message: "incomplete quoted string: expected a character after backslash"}
			}
			escaped := input[i+1]
			if escaped < 32 || escaped > 126 {
				return input, "", &ParseError{Kind: ErrKnown, Message: "invalid backslashed character in a quoted string"}
			}
			b.WriteByte(escaped)
			i += 2
		case c == '"':
			return input[i+1:], b.String(), nil
		default:
			return input, "", &ParseError{Kind: ErrKnown, Message: "invalid character in a quoted string"}
		}
	}

	return input, "", &ParseError{Kind: ErrKnown, Message: "incomplete quoted string: expected closing double quote"}
}

// domainName recognises a registered domain name: begins and ends on an
// alphanumeric, with single dots and hyphens allowed only between
// alphanumerics (never adjacent to each other or to a boundary).
//
// Implemented as a flag-based state machine (dot-allowed, hyphen-allowed):
// a character either keeps the run going and updates what is allowed next,
// or ends the run; the end-on-alphanumeric rule is checked after the loop.
func domainName(input string) (rest string, value string, err error) {
	dotAllowed := false
	hyphenAllowed := false

	i := 0
loop:
	for i < len(input) {
		c := input[i]
		switch {
		case isAlphanumeric(c):
			dotAllowed = true
			hyphenAllowed = true
		case c == '.' && dotAllowed:
			dotAllowed = false
			hyphenAllowed = false
		case c == '-' && hyphenAllowed:
			dotAllowed = false
			hyphenAllowed = false
		default:
			break loop
		}
		i++
	}

	if i == 0 {
		return input, "", &ParseError{Kind: ErrInvalidDomain, Message: "empty domain"}
	}
	if !isAlphanumeric(input[i-1]) {
		return input, "", &ParseError{Kind: ErrInvalidDomain, Message: "domain does not end on an alphanumeric"}
	}

	return input[i:], input[:i], nil
}

// ipv4Literal recognises a bracketed IPv4 address literal: "[" then four
// decimal octets (1-3 digits, no superfluous leading zeros, each 0-255)
// separated by ".", then "]". Octet bounds are enforced inline via a
// digit-position cursor rather than via a post-parse numeric conversion,
// so strings like "299" or "380" are rejected while still inside the
// character loop.
func ipv4Literal(input string) (rest string, value string, err error) {
	if len(input) == 0 || input[0] != '[' {
		return input, "", &ParseError{Kind: ErrInvalidIpv4Address, Message: "expected '[' to start an IPv4 address literal"}
	}

	i := 1
	octets := 0
	digitsInOctet := 0
	allowThreeDigits := true
	allowHighSecondDigit := true
	allowHighThirdDigit := true

	start := i
	for i < len(input) {
		c := input[i]
		if isDigit(c) {
			if digitsInOctet >= 3 || (digitsInOctet == 2 && !allowThreeDigits) {
				return input, "", &ParseError{Kind: ErrInvalidIpv4Address, Message: "octet has too many digits"}
			}
			switch digitsInOctet {
			case 0:
				allowHighThirdDigit = true
				allowThreeDigits = true
				allowHighSecondDigit = true
				switch c {
				case '2':
					allowHighSecondDigit = false
				case '0', '1':
				default:
					allowThreeDigits = false
				}
			case 1:
				if input[i-1] == '0' {
					return input, "", &ParseError{Kind: ErrInvalidIpv4Address, Message: "octet has a superfluous leading zero"}
				}
				if !allowHighSecondDigit {
					switch c {
					case '6', '7', '8', '9':
						allowThreeDigits = false
					case '5':
						allowHighThirdDigit = false
					}
				}
			case 2:
				if !allowHighThirdDigit {
					if c == '6' || c == '7' || c == '8' || c == '9' {
						return input, "", &ParseError{Kind: ErrInvalidIpv4Address, Message: "octet out of range"}
					}
				}
			}
			digitsInOctet++
			i++
		} else if c == '.' && digitsInOctet > 0 {
			if octets >= 3 {
				return input, "", &ParseError{Kind: ErrInvalidIpv4Address, Message: "too many octets"}
			}
			octets++
			digitsInOctet = 0
			allowThreeDigits = true
			allowHighSecondDigit = true
			allowHighThirdDigit = true
			i++
		} else {
			break
		}
	}

	if octets != 3 || digitsInOctet == 0 {
		return input, "", &ParseError{Kind: ErrInvalidIpv4Address, Message: "expected four dotted decimal octets"}
	}

	addr := input[start:i]

	if i >= len(input) || input[i] != ']' {
		return input, "", &ParseError{Kind: ErrInvalidIpv4Address, Message: "expected ']' to end an IPv4 address literal"}
	}
	i++

	return input[i:], addr, nil
}

// atom recognises the longest non-empty run of atext characters.
func atom(input string) (rest string, value string, err error) {
	i := 0
	for i < len(input) && isAtext(input[i]) {
		i++
	}
	if i == 0 {
		return input, "", &ParseError{Kind: ErrKnown, Message: "expected an atom"}
	}
	return input[i:], input[:i], nil
}

func isEsmtpKeywordChar(c byte) bool {
	return isAlphanumeric(c) || c == '-'
}

// esmtpKeyword recognises one or more letters, digits or hyphens, and must
// not start with a hyphen.
func esmtpKeyword(input string) (rest string, value string, err error) {
	i := 0
	for i < len(input) && isEsmtpKeywordChar(input[i]) {
		i++
	}
	if i == 0 {
		return input, "", &ParseError{Kind: ErrKnown, Message: "empty esmtp-keyword"}
	}
	if input[0] == '-' {
		return input, "", &ParseError{Kind: ErrKnown, Message: "esmtp-keyword cannot start with '-'"}
	}
	return input[i:], input[:i], nil
}

func isEsmtpValueChar(c byte) bool {
	return c >= 33 && c <= 128 && c != '='
}

// esmtpValue recognises one or more printable-ASCII bytes in 33-128,
// excluding '='.
func esmtpValue(input string) (rest string, value string, err error) {
	i := 0
	for i < len(input) && isEsmtpValueChar(input[i]) {
		i++
	}
	if i == 0 {
		return input, "", &ParseError{Kind: ErrKnown, Message: "empty esmtp-value"}
	}
	return input[i:], input[:i], nil
}
