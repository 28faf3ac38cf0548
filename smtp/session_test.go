package smtp

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// memStream is an in-memory Stream double: ReadInto plays back a fixed
// script, WriteAll accumulates everything the session sends back.
type memStream struct {
	in        *bytes.Reader
	out       bytes.Buffer
	encrypted bool
}

func newMemStream(script string) *memStream {
	return &memStream{in: bytes.NewReader([]byte(script))}
}

func (m *memStream) ReadInto(buf []byte) (int, error) { return m.in.Read(buf) }
func (m *memStream) WriteAll(b []byte) error          { m.out.Write(b); return nil }
func (m *memStream) Shutdown() error                  { return nil }
func (m *memStream) IsEncrypted() bool                { return m.encrypted }
func (m *memStream) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1025}
}

// recordingSink captures every accepted message for assertions.
type recordingSink struct {
	envelopes []Envelope
	bodies    [][]byte
	fail      error
}

func (s *recordingSink) OnMail(ctx context.Context, env Envelope, body []byte) error {
	if s.fail != nil {
		return s.fail
	}
	s.envelopes = append(s.envelopes, env)
	s.bodies = append(s.bodies, append([]byte(nil), body...))
	return nil
}
func (s *recordingSink) VerifyUser(ctx context.Context, localPart string) bool {
	return localPart == "john"
}
func (s *recordingSink) ExpandMailingList(ctx context.Context, name string) []string {
	if name == "staff" {
		return []string{"john@example.com", "jane@example.com"}
	}
	return nil
}

func testConfig(sink Sink) *Config {
	return &Config{
		Domain:         "mx.example.com",
		ServerAgent:    "test smtp server",
		MaxMessageSize: defaultMaxMessageSize,
		Sink:           sink,
	}
}

func TestSessionFullTransaction(t *testing.T) {
	Convey("Given a full EHLO/MAIL/RCPT/DATA/QUIT transaction", t, func() {
		sink := &recordingSink{}
		script := "EHLO client.example.com\r\n" +
			"MAIL FROM:<john@example.com>\r\n" +
			"RCPT TO:<jane@example.com>\r\n" +
			"DATA\r\n" +
			"Subject: hi\r\n\r\nhello there\r\n.\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		out := stream.out.String()

		Convey("It greets, accepts the transaction, and closes", func() {
			So(strings.HasPrefix(out, "220 "), ShouldBeTrue)
			So(strings.Contains(out, "250"), ShouldBeTrue)
			So(strings.Contains(out, "354"), ShouldBeTrue)
			So(strings.Contains(out, "221"), ShouldBeTrue)
		})

		Convey("The sink receives exactly one message with the dot-stuffing terminator stripped", func() {
			So(len(sink.envelopes), ShouldEqual, 1)
			So(sink.envelopes[0].From.String(), ShouldEqual, "john@example.com")
			So(len(sink.envelopes[0].Recipients), ShouldEqual, 1)
			So(string(sink.bodies[0]), ShouldEqual, "Subject: hi\r\n\r\nhello there\r\n")
		})
	})
}

func TestSessionEmptyBody(t *testing.T) {
	Convey("Given a DATA body with no content lines", t, func() {
		sink := &recordingSink{}
		script := "EHLO client.example.com\r\n" +
			"MAIL FROM:<john@example.com>\r\n" +
			"RCPT TO:<jane@example.com>\r\n" +
			"DATA\r\n" +
			".\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		So(len(sink.envelopes), ShouldEqual, 1)
		So(sink.bodies[0], ShouldResemble, []byte{})
	})
}

func TestSessionOversizedMessageIsRejected(t *testing.T) {
	Convey("Given a message larger than MaxMessageSize", t, func() {
		sink := &recordingSink{}
		config := testConfig(sink)
		config.MaxMessageSize = 8

		script := "EHLO client.example.com\r\n" +
			"MAIL FROM:<john@example.com>\r\n" +
			"RCPT TO:<jane@example.com>\r\n" +
			"DATA\r\n" +
			"this line is far too long to fit\r\n" +
			".\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, config, sink, nil)
		sess.Run(context.Background())

		So(strings.Contains(stream.out.String(), "552"), ShouldBeTrue)
		So(len(sink.envelopes), ShouldEqual, 0)
	})
}

func TestSessionRcptWithoutMailIsRejected(t *testing.T) {
	Convey("Given RCPT before MAIL", t, func() {
		sink := &recordingSink{}
		script := "EHLO client.example.com\r\n" +
			"RCPT TO:<jane@example.com>\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		So(strings.Contains(stream.out.String(), "503"), ShouldBeTrue)
	})
}

func TestSessionDuplicateRecipientIsDeduped(t *testing.T) {
	Convey("Given the same recipient added twice", t, func() {
		sink := &recordingSink{}
		script := "EHLO client.example.com\r\n" +
			"MAIL FROM:<john@example.com>\r\n" +
			"RCPT TO:<jane@example.com>\r\n" +
			"RCPT TO:<jane@example.com>\r\n" +
			"DATA\r\n.\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		So(len(sink.envelopes), ShouldEqual, 1)
		So(len(sink.envelopes[0].Recipients), ShouldEqual, 1)
	})
}

func TestSessionRsetClearsState(t *testing.T) {
	Convey("Given RSET after MAIL/RCPT", t, func() {
		sink := &recordingSink{}
		script := "EHLO client.example.com\r\n" +
			"MAIL FROM:<john@example.com>\r\n" +
			"RCPT TO:<jane@example.com>\r\n" +
			"RSET\r\n" +
			"DATA\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		// DATA after RSET has no reverse path: must be rejected 503, and no
		// message should reach the sink.
		So(strings.Contains(stream.out.String(), "503"), ShouldBeTrue)
		So(len(sink.envelopes), ShouldEqual, 0)
	})
}

func TestSessionQuitRepliesExactlyOnce221(t *testing.T) {
	Convey("Given a bare QUIT", t, func() {
		sink := &recordingSink{}
		stream := newMemStream("QUIT\r\n")
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		So(strings.Count(stream.out.String(), "221"), ShouldEqual, 1)
	})
}

func TestSessionVrfyAndExpn(t *testing.T) {
	Convey("Given VRFY and EXPN commands", t, func() {
		sink := &recordingSink{}
		script := "EHLO client.example.com\r\n" +
			"VRFY john\r\n" +
			"VRFY nobody\r\n" +
			"EXPN staff\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		out := stream.out.String()
		So(strings.Contains(out, "250 User recognized"), ShouldBeTrue)
		So(strings.Contains(out, "553"), ShouldBeTrue)
		So(strings.Contains(out, "john@example.com"), ShouldBeTrue)
	})
}

func TestSessionTlsRequiredGatesCommands(t *testing.T) {
	Convey("Given TLSRequired with no STARTTLS yet", t, func() {
		sink := &recordingSink{}
		config := testConfig(sink)
		config.TLSRequired = true

		script := "EHLO client.example.com\r\n" +
			"MAIL FROM:<john@example.com>\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, config, sink, nil)
		sess.Run(context.Background())

		So(strings.Contains(stream.out.String(), "530"), ShouldBeTrue)
	})
}

func TestSessionParseFailuresAllReply500(t *testing.T) {
	Convey("Given an unrecognized verb and a malformed argument", t, func() {
		sink := &recordingSink{}
		script := "BOGUS\r\n" +
			"HELO \r\n" +
			"MAIL FROM:<not-an-address\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		out := stream.out.String()
		So(strings.Count(out, "500 Unrecognized command"), ShouldEqual, 3)
	})
}

func TestSessionNullSenderRejectedByDefault(t *testing.T) {
	Convey("Given MAIL FROM:<> with AllowNullSender unset", t, func() {
		sink := &recordingSink{}
		script := "EHLO client.example.com\r\n" +
			"MAIL FROM:<>\r\n" +
			"QUIT\r\n"

		stream := newMemStream(script)
		sess := NewSession(stream, testConfig(sink), sink, nil)
		sess.Run(context.Background())

		So(strings.Contains(stream.out.String(), "551"), ShouldBeTrue)
	})
}
