package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// Config collects a Server's tunables, generalized from the teacher's
// smtp.Config (Port/Hostname/Key/Cert) with the fields SPEC_FULL.md's
// DOMAIN STACK and AMBIENT STACK sections add: the advertised identity,
// TLS material, policy hooks, and size limits.
type Config struct {
	// Domain is the name this server advertises in its greeting and EHLO
	// response.
	Domain string
	// ServerAgent is appended to the greeting line, mirroring
	// original_source/src/config.rs' server_agent field (default
	// "Rust SMTP server" there; this server defaults to its own name).
	ServerAgent string

	Host string
	Port int

	// TLSConfig, when non-nil, is offered via STARTTLS. Built from Cert/Key
	// the way the teacher's NewMSAServer does, or supplied directly.
	TLSConfig *tls.Config
	// TLSRequired enforces spec.md's I5: every command but EHLO/HELO/
	// STARTTLS/NOOP/QUIT is rejected with 530 until STARTTLS succeeds.
	TLSRequired bool

	// AllowNullSender permits "MAIL FROM:<>", per spec.md §3's reverse-path
	// null-sender case (bounce messages).
	AllowNullSender bool

	// MaxMessageSize caps the DATA payload in bytes; zero uses
	// defaultMaxMessageSize.
	MaxMessageSize int

	// SenderPolicy, when non-nil, is consulted on every MAIL FROM. See
	// policy.go's SPFSenderPolicy for the SPF-backed implementation.
	SenderPolicy SenderPolicy

	// Sink receives accepted mail and backs VRFY/EXPN. Defaults to NopSink.
	Sink Sink

	Log logrus.FieldLogger
}

// Server listens for SMTP connections and drives each accepted
// connection through a Session. Grounded on the teacher's Server/
// NewMSAServer/ListenAndServe/Serve/newConn, stripped of the MTA/MSA
// smtper split (spec.md has one conversation shape, not two roles) and
// wired to the new Session/Stream/Sink/SenderPolicy types.
type Server struct {
	config Config
	log    logrus.FieldLogger
}

// NewServer builds a Server from config, filling in documented defaults
// the way the teacher's NewMSAServer fills in its tlsConfig.
func NewServer(config Config) *Server {
	if config.Domain == "" {
		config.Domain = "localhost"
	}
	if config.ServerAgent == "" {
		config.ServerAgent = "gopistolet smtpd"
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == 0 {
		config.Port = 25
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = defaultMaxMessageSize
	}
	if config.Sink == nil {
		config.Sink = NopSink{}
	}
	log := config.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{config: config, log: log}
}

// ListenAndServe opens a TCP listener on the configured host/port and
// calls Serve.
func (srv *Server) ListenAndServe() error {
	if srv.config.TLSConfig != nil {
		srv.log.Info("starting server with STARTTLS support")
	} else {
		srv.log.Warn("starting server WITHOUT TLS support")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", srv.config.Host, srv.config.Port))
	if err != nil {
		return err
	}
	return srv.Serve(ln)
}

// Serve accepts connections from ln until it returns a non-temporary
// error, spawning one goroutine per connection, matching the teacher's
// accept loop.
func (srv *Server) Serve(ln net.Listener) error {
	defer ln.Close()
	ctx := context.Background()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				srv.log.WithError(err).Warn("temporary accept error")
				continue
			}
			return err
		}

		stream := NewPlainStream(c)
		sess := NewSession(stream, &srv.config, srv.config.Sink, srv.log)
		go sess.Run(ctx)
	}
}
