package smtp

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDotString(t *testing.T) {
	Convey("Testing dotString()", t, func() {

		_, value, err := dotString("mubelotix@mubelotix.dev")
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "mubelotix")

		_, value, err = dotString("john.")
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "john")

		_, _, err = dotString("john..snow@example.com")
		So(err, ShouldNotBeNil)

		_, _, err = dotString("@example.com")
		So(err, ShouldNotBeNil)

		rest, value, err := dotString("a.b.c rest")
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "a.b.c")
		So(rest, ShouldEqual, " rest")
	})
}

func TestQuotedString(t *testing.T) {
	Convey("Testing quotedString()", t, func() {

		_, value, err := quotedString(`"john smith"`)
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "john smith")

		_, value, err = quotedString(`"john\"smith"`)
		So(err, ShouldBeNil)
		So(value, ShouldEqual, `john"smith`)

		_, _, err = quotedString(`"unterminated`)
		So(err, ShouldNotBeNil)

		_, _, err = quotedString("not quoted")
		So(err, ShouldNotBeNil)
	})
}

func TestDomainName(t *testing.T) {
	Convey("Testing domainName()", t, func() {

		_, value, err := domainName("example.com rest")
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "example.com")

		_, _, err = domainName("-example.com")
		So(err, ShouldNotBeNil)

		_, _, err = domainName("www.-example.com")
		So(err, ShouldNotBeNil)

		_, _, err = domainName("www..example.com")
		So(err, ShouldNotBeNil)

		_, _, err = domainName("www.example.com-")
		So(err, ShouldNotBeNil)

		rest, value, err := domainName("www.example.com rest")
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "www.example.com")
		So(rest, ShouldEqual, " rest")
	})
}

func TestIpv4Literal(t *testing.T) {
	Convey("Testing ipv4Literal()", t, func() {

		_, value, err := ipv4Literal("[192.168.1.1]")
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "192.168.1.1")

		_, _, err = ipv4Literal("[299.1.1.1]")
		So(err, ShouldNotBeNil)

		_, _, err = ipv4Literal("[256.1.1.1]")
		So(err, ShouldNotBeNil)

		_, value, err = ipv4Literal("[0.0.0.0]")
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "0.0.0.0")

		_, _, err = ipv4Literal("192.168.1.1")
		So(err, ShouldNotBeNil)

		_, _, err = ipv4Literal("[1.2.3]")
		So(err, ShouldNotBeNil)
	})
}

func TestAtom(t *testing.T) {
	Convey("Testing atom()", t, func() {

		_, value, err := atom("foo-bar baz")
		So(err, ShouldBeNil)
		So(value, ShouldEqual, "foo-bar")

		_, _, err = atom(" nope")
		So(err, ShouldNotBeNil)
	})
}

func TestEsmtpKeywordAndValue(t *testing.T) {
	Convey("Testing esmtpKeyword() and esmtpValue()", t, func() {

		_, kw, err := esmtpKeyword("SIZE=1000")
		So(err, ShouldBeNil)
		So(kw, ShouldEqual, "SIZE")

		_, _, err = esmtpKeyword("-bad")
		So(err, ShouldNotBeNil)

		_, val, err := esmtpValue("1000 SIZE2=2000")
		So(err, ShouldBeNil)
		So(val, ShouldEqual, "1000")
	})
}
