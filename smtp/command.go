package smtp

import "strings"

// CommandVerb discriminates the SMTP commands named in spec.md §3.
type CommandVerb int

const (
	CmdHelo CommandVerb = iota
	CmdEhlo
	CmdMail
	CmdRcpt
	CmdData
	CmdRset
	CmdVrfy
	CmdExpn
	CmdHelp
	CmdNoop
	CmdQuit
	CmdStartTLS
	CmdAuth
)

// Command is the parser's output: a typed value carrying, where
// applicable, slices that are substrings of the original command line.
// Go strings are immutable, so the session keeps these substrings across
// later reads without copying them (see SPEC_FULL.md §3).
type Command struct {
	Verb CommandVerb

	Domain   string         // HELO
	Identity ServerIdentity // EHLO

	ReversePath *Path        // MAIL FROM; nil means "<>"
	Recipient   Recipient    // RCPT TO
	Params      []EsmtpParam // MAIL FROM / RCPT TO

	VerifyTarget SmtpString // VRFY
	ExpandTarget SmtpString // EXPN

	Argument    string // HELP / NOOP optional trailing string
	HasArgument bool

	AuthMechanism string // AUTH (parsed, never authenticated; see session.go)
}

// ParseCommand dispatches on a case-insensitive command prefix and parses
// the verb's argument grammar. A parse failure inside a matched verb's
// arguments is a hard failure for the whole line: the parser never
// backtracks to try another verb (spec.md §4.2 "Dispatch ordering").
func ParseCommand(line string) (Command, error) {
	switch {
	case hasPrefixFold(line, "HELO "):
		return parseHelo(line)
	case hasPrefixFold(line, "EHLO "):
		return parseEhlo(line)
	case hasPrefixFold(line, "MAIL FROM:"):
		return parseMailFrom(line)
	case hasPrefixFold(line, "RCPT TO:"):
		return parseRcptTo(line)
	case hasPrefixFold(line, "DATA"):
		return parseNoArgCommand(line, "DATA", CmdData)
	case hasPrefixFold(line, "RSET"):
		return parseNoArgCommand(line, "RSET", CmdRset)
	case hasPrefixFold(line, "VRFY "):
		return parseVrfy(line)
	case hasPrefixFold(line, "EXPN "):
		return parseExpn(line)
	case hasPrefixFold(line, "HELP"):
		return parseOptionalArgCommand(line, "HELP", CmdHelp)
	case hasPrefixFold(line, "NOOP"):
		return parseOptionalArgCommand(line, "NOOP", CmdNoop)
	case hasPrefixFold(line, "QUIT"):
		return parseNoArgCommand(line, "QUIT", CmdQuit)
	case hasPrefixFold(line, "STARTTLS"):
		return parseNoArgCommand(line, "STARTTLS", CmdStartTLS)
	case hasPrefixFold(line, "AUTH "):
		return parseAuth(line)
	default:
		return Command{}, &ParseError{Kind: ErrInvalidCommand, Message: "unrecognized command"}
	}
}

func expectCrlfAndEnd(input string) error {
	if !strings.HasPrefix(input, "\r\n") {
		return &ParseError{Kind: ErrExpectedCrlf, Message: "expected CRLF"}
	}
	input = input[2:]
	if len(input) != 0 {
		return &ParseError{Kind: ErrExpectedEndOfInput, Message: "unexpected trailing data after command"}
	}
	return nil
}

func parseHelo(line string) (Command, error) {
	input := line[len("HELO "):]
	input, domain, err := domainName(input)
	if err != nil {
		return Command{}, err
	}
	if err := expectCrlfAndEnd(input); err != nil {
		return Command{}, err
	}
	return Command{Verb: CmdHelo, Domain: domain}, nil
}

func parseEhlo(line string) (Command, error) {
	input := line[len("EHLO "):]
	input, identity, err := parseIdentity(input)
	if err != nil {
		return Command{}, err
	}
	if err := expectCrlfAndEnd(input); err != nil {
		return Command{}, err
	}
	return Command{Verb: CmdEhlo, Identity: identity}, nil
}

func parseMailFrom(line string) (Command, error) {
	input := line[len("MAIL FROM:"):]
	input, path, err := parseReversePath(input)
	if err != nil {
		return Command{}, err
	}

	var params []EsmtpParam
	if len(input) > 0 && input[0] == ' ' {
		input, params, err = parseEsmtpParams(input[1:])
		if err != nil {
			return Command{}, err
		}
	}

	if err := expectCrlfAndEnd(input); err != nil {
		return Command{}, err
	}

	return Command{Verb: CmdMail, ReversePath: path, Params: params}, nil
}

func parseRcptTo(line string) (Command, error) {
	input := line[len("RCPT TO:"):]
	input, recipient, err := parseRecipient(input)
	if err != nil {
		return Command{}, err
	}

	var params []EsmtpParam
	if len(input) > 0 && input[0] == ' ' {
		input, params, err = parseEsmtpParams(input[1:])
		if err != nil {
			return Command{}, err
		}
	}

	if err := expectCrlfAndEnd(input); err != nil {
		return Command{}, err
	}

	return Command{Verb: CmdRcpt, Recipient: recipient, Params: params}, nil
}

func parseVrfy(line string) (Command, error) {
	input := line[len("VRFY "):]
	input, target, err := parseSmtpString(input)
	if err != nil {
		return Command{}, err
	}
	if err := expectCrlfAndEnd(input); err != nil {
		return Command{}, err
	}
	return Command{Verb: CmdVrfy, VerifyTarget: target}, nil
}

func parseExpn(line string) (Command, error) {
	input := line[len("EXPN "):]
	input, target, err := parseSmtpString(input)
	if err != nil {
		return Command{}, err
	}
	if err := expectCrlfAndEnd(input); err != nil {
		return Command{}, err
	}
	return Command{Verb: CmdExpn, ExpandTarget: target}, nil
}

func parseAuth(line string) (Command, error) {
	input := line[len("AUTH "):]
	if !strings.HasSuffix(input, "\r\n") {
		return Command{}, &ParseError{Kind: ErrExpectedCrlf, Message: "expected CRLF"}
	}
	mechanism := strings.TrimSuffix(input, "\r\n")
	return Command{Verb: CmdAuth, AuthMechanism: mechanism}, nil
}

func parseNoArgCommand(line, verb string, cmd CommandVerb) (Command, error) {
	if !hasPrefixFold(line, verb) {
		return Command{}, &ParseError{Kind: ErrCommandName, Message: "unrecognized command"}
	}
	rest := line[len(verb):]
	if err := expectCrlfAndEnd(rest); err != nil {
		return Command{}, err
	}
	return Command{Verb: cmd}, nil
}

func parseOptionalArgCommand(line, verb string, cmd CommandVerb) (Command, error) {
	if !hasPrefixFold(line, verb) {
		return Command{}, &ParseError{Kind: ErrCommandName, Message: "unrecognized command"}
	}
	rest := line[len(verb):]

	if strings.HasPrefix(rest, "\r\n") {
		if err := expectCrlfAndEnd(rest); err != nil {
			return Command{}, err
		}
		return Command{Verb: cmd}, nil
	}

	if !strings.HasPrefix(rest, " ") {
		return Command{}, &ParseError{Kind: ErrCommandName, Message: "unrecognized command"}
	}
	rest = rest[1:]

	if !strings.HasSuffix(rest, "\r\n") {
		return Command{}, &ParseError{Kind: ErrExpectedCrlf, Message: "expected CRLF"}
	}
	arg := strings.TrimSuffix(rest, "\r\n")
	return Command{Verb: cmd, Argument: arg, HasArgument: true}, nil
}
