package smtp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/sirupsen/logrus"
)

// SessionPhase is one of the states in the RFC 5321 state diagram spec.md
// §4.5 names.
type SessionPhase int

const (
	PhaseGreeting SessionPhase = iota
	PhaseIdle
	PhaseRcpt
	PhaseDataRx
	PhaseClosed
)

// SessionState is the per-connection transaction state spec.md §3 names.
// Invariants I1-I5 are maintained by Session's handlers.
type SessionState struct {
	Phase SessionPhase

	ReversePath *Mailbox // nil until MAIL FROM accepted, and nil for an accepted null sender
	ForwardPath []Recipient

	Encrypted bool
	Greeted   bool
}

func (s *SessionState) reset() {
	s.ReversePath = nil
	s.ForwardPath = nil
}

// containsRecipient implements I1's structural-comparison dedup check.
func containsRecipient(list []Recipient, r Recipient) bool {
	for _, existing := range list {
		if existing.Equal(r) {
			return true
		}
	}
	return false
}

// Session drives one accepted connection through the SMTP conversation:
// it reads command lines, feeds them to ParseCommand, applies the
// transition table, and invokes the Sink. Grounded on the teacher's
// smtp/smtp.go `conn` type and its handleXXX methods, generalized to run
// on the real grammar parser and a Sink instead of regex parsing and
// log.Printf stand-ins.
type Session struct {
	stream Stream
	reader *bufio.Reader

	config *Config
	sink   Sink
	log    logrus.FieldLogger

	state SessionState
}

// NewSession wraps an accepted Stream in a Session ready to run.
func NewSession(stream Stream, config *Config, sink Sink, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		stream: stream,
		reader: bufio.NewReader(&streamReader{stream}),
		config: config,
		sink:   sink,
		log:    log.WithField("remote", stream.RemoteAddr()),
	}
}

// streamReader adapts Stream's ReadInto to io.Reader so bufio.Reader can
// sit on top of it.
type streamReader struct{ s Stream }

func (r *streamReader) Read(p []byte) (int, error) { return r.s.ReadInto(p) }

func (sess *Session) writeReply(code int, message string) error {
	reply := Reply{Code: code, Message: message}
	wire := reply.Encode()
	sess.log.WithField("reply", wire).Trace("writing reply")
	return sess.stream.WriteAll([]byte(wire))
}

// tlsGateAllowed reports whether cmd may proceed before a required TLS
// upgrade has happened, per spec.md I5.
func tlsGateAllowed(cmd CommandVerb) bool {
	switch cmd {
	case CmdEhlo, CmdHelo, CmdStartTLS, CmdNoop, CmdQuit:
		return true
	default:
		return false
	}
}

// Run drives the session loop until the peer quits, disconnects, or a
// transport error ends the connection. Errors are not propagated to the
// caller: per spec.md §7, transport errors terminate the session
// silently after attempting a graceful shutdown.
func (sess *Session) Run(ctx context.Context) {
	defer sess.stream.Shutdown()

	sess.state.Phase = PhaseGreeting
	greeting := fmt.Sprintf("%s %s: Service ready", sess.config.Domain, sess.config.ServerAgent)
	if err := sess.writeReply(ReplyServiceReady, greeting); err != nil {
		sess.log.WithError(err).Debug("failed to write greeting")
		return
	}

	for sess.state.Phase != PhaseClosed {
		line, err := sess.readLine()
		if err != nil {
			if err == io.EOF {
				sess.log.Debug("peer disconnected")
			} else {
				sess.log.WithError(err).Debug("read error")
			}
			return
		}
		if line == "" {
			// Empty read: treated as EOF per spec.md §4.5.
			return
		}

		cmd, perr := ParseCommand(line)
		if perr != nil {
			// Any parse failure gets the same reply, whether the verb itself
			// was unrecognised or its arguments were malformed (e.g. a bad
			// address inside MAIL FROM), matching
			// original_source/src/smtp.rs's single "Unrecognized command"
			// bucket.
			sess.log.WithError(perr).WithField("line", strings.TrimRight(line, "\r\n")).Debug("parse failure")
			if err := sess.writeReply(ReplySyntaxError, "Unrecognized command"); err != nil {
				return
			}
			continue
		}

		if sess.config.TLSRequired && !sess.state.Encrypted && !tlsGateAllowed(cmd.Verb) {
			if err := sess.writeReply(ReplyTlsNotAvailable, "Must issue a STARTTLS command first"); err != nil {
				return
			}
			continue
		}

		if sess.dispatch(ctx, cmd) {
			return
		}
	}
}

// readLine reads one CRLF-terminated command line. A zero-byte read (EOF)
// is surfaced as io.EOF.
func (sess *Session) readLine() (string, error) {
	line, err := sess.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	return line, nil
}

// dispatch applies one command's transition. It returns true when the
// session loop should stop (QUIT or an unrecoverable transport error).
func (sess *Session) dispatch(ctx context.Context, cmd Command) bool {
	switch cmd.Verb {
	case CmdHelo:
		return sess.handleHelo(cmd)
	case CmdEhlo:
		return sess.handleEhlo(cmd)
	case CmdMail:
		return sess.handleMailFrom(cmd)
	case CmdRcpt:
		return sess.handleRcptTo(cmd)
	case CmdData:
		return sess.handleData(ctx)
	case CmdRset:
		return sess.handleRset()
	case CmdVrfy:
		return sess.handleVrfy(ctx, cmd)
	case CmdExpn:
		return sess.handleExpn(ctx, cmd)
	case CmdHelp:
		return sess.handleHelp(cmd)
	case CmdNoop:
		return sess.handleNoop(cmd)
	case CmdQuit:
		return sess.handleQuit()
	case CmdStartTLS:
		return sess.handleStartTLS()
	case CmdAuth:
		return sess.handleAuth()
	default:
		err := sess.writeReply(ReplySyntaxError, "Unrecognized command")
		return err != nil
	}
}

func (sess *Session) handleHelo(cmd Command) bool {
	sess.state.reset()
	sess.state.Phase = PhaseIdle
	sess.state.Greeted = true
	msg := fmt.Sprintf("%s greets %s", sess.config.Domain, cmd.Domain)
	return sess.writeReply(ReplyOk, msg) != nil
}

func (sess *Session) handleEhlo(cmd Command) bool {
	sess.state.reset()
	sess.state.Phase = PhaseIdle
	sess.state.Greeted = true

	msg := fmt.Sprintf("%s greets %s", sess.config.Domain, cmd.Identity.String())
	if sess.config.TLSConfig != nil || sess.config.TLSRequired {
		msg += "\nSTARTTLS"
	}
	return sess.writeReply(ReplyOk, msg) != nil
}

func (sess *Session) handleMailFrom(cmd Command) bool {
	if sess.state.Phase != PhaseIdle && sess.state.Phase != PhaseRcpt {
		return sess.writeReply(ReplyBadSequence, "Need HELO/EHLO first") != nil
	}

	if cmd.ReversePath == nil {
		if !sess.config.AllowNullSender {
			return sess.writeReply(ReplyUserNotLocal, "null sender not accepted") != nil
		}
		sess.state.ReversePath = nil
		sess.state.ForwardPath = nil // I3: MAIL FROM always clears forward_path
		sess.state.Phase = PhaseRcpt
		return sess.writeReply(ReplyOk, "user recognized") != nil
	}

	from := cmd.ReversePath.Mailbox

	if sess.config.SenderPolicy != nil {
		remoteIP := remoteIPOf(sess.stream.RemoteAddr())
		if ok, reason := sess.config.SenderPolicy(remoteIP, "", from); !ok {
			return sess.writeReply(ReplyUserNotLocal, reason) != nil
		}
	}

	sess.state.ReversePath = &from
	sess.state.ForwardPath = nil // I3
	sess.state.Phase = PhaseRcpt
	return sess.writeReply(ReplyOk, "user recognized") != nil
}

func remoteIPOf(addr net.Addr) net.IP {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP
	}
	return nil
}

func (sess *Session) handleRcptTo(cmd Command) bool {
	if sess.state.Phase != PhaseRcpt {
		return sess.writeReply(ReplyBadSequence, "Need MAIL before RCPT") != nil
	}

	if containsRecipient(sess.state.ForwardPath, cmd.Recipient) {
		msg := fmt.Sprintf("recipient already added, %d recipients in total", len(sess.state.ForwardPath))
		return sess.writeReply(ReplyOk, msg) != nil
	}

	sess.state.ForwardPath = append(sess.state.ForwardPath, cmd.Recipient) // I1
	msg := fmt.Sprintf("1 recipient added, %d recipients in total", len(sess.state.ForwardPath))
	return sess.writeReply(ReplyOk, msg) != nil
}

func (sess *Session) handleData(ctx context.Context) bool {
	if !sess.state.Greeted || sess.state.Phase != PhaseRcpt || len(sess.state.ForwardPath) == 0 {
		return sess.writeReply(ReplyBadSequence, "Need MAIL and RCPT before DATA") != nil
	}

	sess.state.Phase = PhaseDataRx
	if sess.writeReply(ReplyStartMailInput, "Go ahead") != nil {
		return true
	}

	body, err := sess.readDataBody()
	if err != nil {
		sess.log.WithError(err).Debug("failed reading DATA body")
		return true
	}
	if body == nil {
		// Oversized message: 552 already written by readDataBody.
		sess.state.Phase = PhaseRcpt
		return false
	}

	env := Envelope{From: sess.state.ReversePath, Recipients: sess.state.ForwardPath}
	sinkErr := sess.sink.OnMail(ctx, env, body)

	sess.state.reset()
	sess.state.Phase = PhaseIdle

	if sinkErr != nil {
		return sess.writeReply(ReplyTransactionFailed, sinkErr.Error()) != nil
	}
	return sess.writeReply(ReplyOk, "Status confirmed, all bytes are down and the mail is secure.") != nil
}

// dataTerminatorLine is the bare terminator line: "." CRLF. Per RFC 5321's
// data grammar the terminating dot is itself a whole line (the CRLF
// preceding it belongs to the prior line, or to the 354 reply line when
// the message body is empty), so detection is line-oriented rather than a
// whole-buffer suffix match.
const dataTerminatorLine = ".\r\n"

// readDataBody reads lines until one is exactly the terminator line,
// returning everything before it with dot-stuffing left untouched (see
// Sink.OnMail). It enforces Config.MaxMessageSize, replying 552 and
// returning (nil, nil) on overflow rather than an error (the session
// stays alive).
func (sess *Session) readDataBody() ([]byte, error) {
	buf := []byte{} // non-nil: distinguishes a genuinely empty body from the nil overflow sentinel
	limit := sess.config.MaxMessageSize
	if limit <= 0 {
		limit = defaultMaxMessageSize
	}
	overflowed := false

	for {
		line, err := sess.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return nil, err
		}

		if string(line) == dataTerminatorLine {
			if overflowed {
				return nil, nil
			}
			return buf, nil
		}

		if !overflowed {
			buf = append(buf, line...)
			if len(buf) > limit {
				overflowed = true
				buf = nil
				if werr := sess.writeReply(ReplyMailActionAborted, "Message size exceeds limit"); werr != nil {
					return nil, werr
				}
			}
		}

		if err != nil {
			return nil, err
		}
	}
}

const defaultMaxMessageSize = 10 * 1024 * 1024 // 10 MiB, per spec.md §5

func (sess *Session) handleRset() bool {
	sess.state.reset()
	if sess.state.Phase != PhaseGreeting {
		sess.state.Phase = PhaseIdle
	}
	return sess.writeReply(ReplyOk, "OK") != nil
}

func (sess *Session) handleVrfy(ctx context.Context, cmd Command) bool {
	if sess.sink.VerifyUser(ctx, cmd.VerifyTarget.String()) {
		return sess.writeReply(ReplyOk, "User recognized") != nil
	}
	return sess.writeReply(ReplyMailboxNameError, "User Ambiguous") != nil
}

func (sess *Session) handleExpn(ctx context.Context, cmd Command) bool {
	list := sess.sink.ExpandMailingList(ctx, cmd.ExpandTarget.String())
	if list == nil {
		return sess.writeReply(ReplyActionNotTaken, "There is no mailing list with this name") != nil
	}
	return sess.writeReply(ReplyOk, strings.Join(list, "\n")) != nil
}

func (sess *Session) handleHelp(cmd Command) bool {
	if cmd.HasArgument {
		msg := fmt.Sprintf("Thanks for using this SMTP server! You asked help about %q", cmd.Argument)
		return sess.writeReply(ReplyOk, msg) != nil
	}
	return sess.writeReply(ReplyOk, "Thanks for using this SMTP server!") != nil
}

func (sess *Session) handleNoop(cmd Command) bool {
	if cmd.HasArgument {
		msg := fmt.Sprintf("It is a very sad thing that nowadays there is so little useless information.\nThank you for your %d useless bytes.", len(cmd.Argument))
		return sess.writeReply(ReplyOk, msg) != nil
	}
	return sess.writeReply(ReplyOk, "It is better of course to do useless things than to do nothing.") != nil
}

func (sess *Session) handleQuit() bool {
	sess.writeReply(ReplyClosing, "Bye!")
	sess.state.Phase = PhaseClosed
	return true
}

func (sess *Session) handleStartTLS() bool {
	if sess.state.Encrypted {
		return sess.writeReply(ReplyCommandNotImplemented, "Already in TLS") != nil
	}
	if sess.config.TLSConfig == nil {
		if sess.config.TLSRequired {
			return sess.writeReply(ReplyServiceUnavailable, "TLS required, but unavailable due to temporary reason") != nil
		}
		return sess.writeReply(ReplySyntaxError, "Unrecognized command") != nil
	}

	if sess.writeReply(ReplyServiceReady, "Let's encrypt!") != nil {
		return true
	}

	upgraded, err := UpgradeToTLS(sess.stream, sess.config.TLSConfig)
	if err != nil {
		sess.log.WithError(err).Debug("TLS handshake failed")
		return true
	}

	sess.stream = upgraded
	sess.reader = bufio.NewReader(&streamReader{upgraded})
	sess.state.Encrypted = true
	sess.state.reset()
	sess.state.Phase = PhaseIdle
	return false
}

func (sess *Session) handleAuth() bool {
	// AUTH is parsed but never authenticates.
	return sess.writeReply(ReplyCommandNotImplemented, "Command not implemented") != nil
}
