// Package maildirsink is a concrete smtp.Sink that delivers accepted
// mail to per-user Maildir directories and backs VRFY against a
// user.UserDB. It is the example sink SPEC_FULL.md's EXTERNAL
// INTERFACES section names, grounded on the teacher's go-maildir
// dependency (otherwise unused by smtp/smtp.go itself) and its
// user.UserDB lookup.
package maildirsink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	maildir "github.com/sloonz/go-maildir"
	"github.com/sirupsen/logrus"

	"github.com/gopistolet/smtpd/smtp"
	"github.com/gopistolet/smtpd/user"
)

// Sink delivers mail for recipients found in a user.UserDB into one
// Maildir per local part, rooted at Base.
type Sink struct {
	Base string
	DB   *user.UserDB
	Log  logrus.FieldLogger
}

// New builds a Sink rooted at base, backed by db.
func New(base string, db *user.UserDB, log logrus.FieldLogger) *Sink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sink{Base: base, DB: db, Log: log}
}

var _ smtp.Sink = (*Sink)(nil)

// OnMail delivers body into every known recipient's Maildir. Unknown
// local parts are skipped with a logged warning rather than failing the
// whole transaction, since the envelope may legitimately carry a mix of
// local and (in a relay deployment) non-local recipients.
func (s *Sink) OnMail(ctx context.Context, env smtp.Envelope, body []byte) error {
	delivered := 0
	for _, recipient := range env.Recipients {
		local, ok := localPartOf(recipient)
		if !ok {
			s.Log.WithField("recipient", recipient.String()).Warn("skipping non-mailbox recipient")
			continue
		}
		if !s.DB.UserExists(local) {
			s.Log.WithField("recipient", local).Warn("no such local mailbox")
			continue
		}
		if err := s.deliverTo(local, body); err != nil {
			return fmt.Errorf("delivering to %s: %w", local, err)
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("no recipient accepted for local delivery")
	}
	return nil
}

func (s *Sink) deliverTo(localPart string, body []byte) error {
	dir := maildir.Maildir(filepath.Join(s.Base, localPart))
	delivery, err := dir.NewDelivery()
	if err != nil {
		return err
	}
	if _, err := delivery.Write(body); err != nil {
		delivery.Abort()
		return err
	}
	return delivery.Close()
}

// VerifyUser backs VRFY by local part existence in the UserDB.
func (s *Sink) VerifyUser(ctx context.Context, localPart string) bool {
	return s.DB.UserExists(localPart)
}

// ExpandMailingList is not backed by any list source: this sink only
// knows individual mailboxes.
func (s *Sink) ExpandMailingList(ctx context.Context, name string) []string {
	return nil
}

// localPartOf extracts the deliverable local part from a Recipient,
// rejecting the postmaster aliases (out of this sink's scope: spec.md
// leaves postmaster routing to the host).
func localPartOf(r smtp.Recipient) (string, bool) {
	if r.Kind != smtp.RecipientPath {
		return "", false
	}
	local := r.Path.Mailbox.LocalPart.String()
	return strings.ToLower(local), true
}
