package smtp

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReplyEncode(t *testing.T) {
	Convey("Testing Reply.Encode()", t, func() {

		r := Reply{Code: ReplyOk, Message: "OK"}
		So(r.Encode(), ShouldEqual, "250 OK\r\n")

		r = Reply{Code: ReplyOk, Message: "line one\nline two"}
		So(r.Encode(), ShouldEqual, "250-line one\r\n250 line two\r\n")

		r = Reply{Code: ReplyServiceReady, Message: ""}
		So(r.Encode(), ShouldEqual, "220 undefined\r\n")
	})
}

func TestDecodeReply(t *testing.T) {
	Convey("Testing DecodeReply()", t, func() {

		r, err := DecodeReply("250 OK\r\n")
		So(err, ShouldBeNil)
		So(r.Code, ShouldEqual, 250)
		So(r.Message, ShouldEqual, "OK")

		r, err = DecodeReply("250-line one\r\n250 line two\r\n")
		So(err, ShouldBeNil)
		So(r.Code, ShouldEqual, 250)
		So(r.Message, ShouldEqual, "line one\nline two")

		_, err = DecodeReply("xx")
		So(err, ShouldNotBeNil)
	})
}

func TestReplyRoundTrip(t *testing.T) {
	Convey("Testing Encode/Decode round-trip", t, func() {

		original := Reply{Code: ReplyOk, Message: "first\nsecond\nthird"}
		decoded, err := DecodeReply(original.Encode())
		So(err, ShouldBeNil)
		So(decoded.Code, ShouldEqual, original.Code)
		So(decoded.Message, ShouldEqual, original.Message)
	})
}
