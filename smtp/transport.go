package smtp

import (
	"crypto/tls"
	"net"
)

// Stream is a uniform read/write/close contract over either a plain TCP
// socket or a TLS-wrapped socket, generalised from the teacher's inline
// STARTTLS handling in smtp/smtp.go (msa.handleSTARTTLS swapping conn.c
// for a *tls.Conn) into a standalone, reusable value per spec.md §4.4.
type Stream interface {
	// ReadInto reads into buffer, returning the number of bytes read. A
	// zero-length read with a nil error signals EOF to the session.
	ReadInto(buffer []byte) (int, error)
	// WriteAll writes the entirety of bytes, blocking until done or an
	// error occurs.
	WriteAll(bytes []byte) error
	// Shutdown closes the underlying connection.
	Shutdown() error
	// IsEncrypted reports whether this stream is TLS-wrapped.
	IsEncrypted() bool
	// RemoteAddr returns the peer's network address, for logging.
	RemoteAddr() net.Addr
}

// plainStream wraps a raw net.Conn.
type plainStream struct {
	conn net.Conn
}

// NewPlainStream wraps an accepted net.Conn as an unencrypted Stream.
func NewPlainStream(conn net.Conn) Stream {
	return &plainStream{conn: conn}
}

func (p *plainStream) ReadInto(buffer []byte) (int, error) { return p.conn.Read(buffer) }
func (p *plainStream) WriteAll(bytes []byte) error {
	for len(bytes) > 0 {
		n, err := p.conn.Write(bytes)
		if err != nil {
			return err
		}
		bytes = bytes[n:]
	}
	return nil
}
func (p *plainStream) Shutdown() error       { return p.conn.Close() }
func (p *plainStream) IsEncrypted() bool     { return false }
func (p *plainStream) RemoteAddr() net.Addr  { return p.conn.RemoteAddr() }

// tlsStream wraps a *tls.Conn obtained from a successful STARTTLS
// handshake.
type tlsStream struct {
	conn *tls.Conn
}

func (t *tlsStream) ReadInto(buffer []byte) (int, error) { return t.conn.Read(buffer) }
func (t *tlsStream) WriteAll(bytes []byte) error {
	for len(bytes) > 0 {
		n, err := t.conn.Write(bytes)
		if err != nil {
			return err
		}
		bytes = bytes[n:]
	}
	return nil
}
func (t *tlsStream) Shutdown() error      { return t.conn.Close() }
func (t *tlsStream) IsEncrypted() bool    { return true }
func (t *tlsStream) RemoteAddr() net.Addr { return t.conn.RemoteAddr() }

// UpgradeToTLS consumes a Stream and performs a TLS handshake using the
// supplied configuration, per spec.md §4.4: on success it returns a new
// Stream that is Encrypted; on failure, a TLS error. Calling it on an
// already-encrypted stream is a no-op, since the old variant is no longer
// reachable once a session has upgraded.
func UpgradeToTLS(s Stream, config *tls.Config) (Stream, error) {
	if s.IsEncrypted() {
		return s, nil
	}
	plain, ok := s.(*plainStream)
	if !ok {
		return s, nil
	}

	tlsConn := tls.Server(plain.conn, config)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}

	return &tlsStream{conn: tlsConn}, nil
}
