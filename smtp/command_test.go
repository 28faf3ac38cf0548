package smtp

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseCommandHelo(t *testing.T) {
	Convey("Testing ParseCommand() HELO/EHLO", t, func() {

		cmd, err := ParseCommand("HELO example.com\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdHelo)
		So(cmd.Domain, ShouldEqual, "example.com")

		cmd, err = ParseCommand("EHLO [192.168.1.1]\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdEhlo)
		So(cmd.Identity.IsIPv4, ShouldBeTrue)
		So(cmd.Identity.IPv4, ShouldEqual, "192.168.1.1")

		_, err = ParseCommand("HELO \r\n")
		So(err, ShouldNotBeNil)

		_, err = ParseCommand("HELO example.com trailing\r\n")
		So(err, ShouldNotBeNil)
	})
}

func TestParseCommandMailRcpt(t *testing.T) {
	Convey("Testing ParseCommand() MAIL FROM / RCPT TO", t, func() {

		cmd, err := ParseCommand("MAIL FROM:<john@example.com>\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdMail)
		So(cmd.ReversePath.Mailbox.LocalPart.Value, ShouldEqual, "john")

		cmd, err = ParseCommand("MAIL FROM:<>\r\n")
		So(err, ShouldBeNil)
		So(cmd.ReversePath, ShouldBeNil)

		cmd, err = ParseCommand("MAIL FROM:<john@example.com> SIZE=1000\r\n")
		So(err, ShouldBeNil)
		So(len(cmd.Params), ShouldEqual, 1)
		So(cmd.Params[0].Keyword, ShouldEqual, "SIZE")
		So(cmd.Params[0].Value, ShouldEqual, "1000")

		cmd, err = ParseCommand("RCPT TO:<postmaster>\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdRcpt)
		So(cmd.Recipient.Kind, ShouldEqual, RecipientLocalPostmaster)
	})
}

func TestParseCommandSimpleVerbs(t *testing.T) {
	Convey("Testing ParseCommand() no-argument and optional-argument verbs", t, func() {

		cmd, err := ParseCommand("QUIT\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdQuit)

		cmd, err = ParseCommand("NOOP\r\n")
		So(err, ShouldBeNil)
		So(cmd.HasArgument, ShouldBeFalse)

		cmd, err = ParseCommand("NOOP with args\r\n")
		So(err, ShouldBeNil)
		So(cmd.HasArgument, ShouldBeTrue)
		So(cmd.Argument, ShouldEqual, "with args")

		cmd, err = ParseCommand("RSET\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdRset)

		cmd, err = ParseCommand("STARTTLS\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdStartTLS)
	})
}

func TestParseCommandUnrecognized(t *testing.T) {
	Convey("Testing ParseCommand() rejects unknown verbs", t, func() {

		_, err := ParseCommand("BOGUS\r\n")
		So(err, ShouldNotBeNil)
	})
}

func TestParseCommandVrfyExpn(t *testing.T) {
	Convey("Testing ParseCommand() VRFY/EXPN", t, func() {

		cmd, err := ParseCommand("VRFY john\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdVrfy)
		So(cmd.VerifyTarget.Value, ShouldEqual, "john")

		cmd, err = ParseCommand(`EXPN "mailing list"` + "\r\n")
		So(err, ShouldBeNil)
		So(cmd.Verb, ShouldEqual, CmdExpn)
		So(cmd.ExpandTarget.Value, ShouldEqual, "mailing list")
	})
}
