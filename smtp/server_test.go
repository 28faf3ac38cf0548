package smtp

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewServerDefaults(t *testing.T) {
	Convey("Testing NewServer() fills in documented defaults", t, func() {

		srv := NewServer(Config{})
		So(srv.config.Domain, ShouldEqual, "localhost")
		So(srv.config.ServerAgent, ShouldEqual, "gopistolet smtpd")
		So(srv.config.Host, ShouldEqual, "0.0.0.0")
		So(srv.config.Port, ShouldEqual, 25)
		So(srv.config.MaxMessageSize, ShouldEqual, defaultMaxMessageSize)
		So(srv.config.Sink, ShouldNotBeNil)
	})

	Convey("Testing NewServer() preserves explicit configuration", t, func() {

		srv := NewServer(Config{Domain: "mail.example.com", Port: 2525})
		So(srv.config.Domain, ShouldEqual, "mail.example.com")
		So(srv.config.Port, ShouldEqual, 2525)
	})
}
