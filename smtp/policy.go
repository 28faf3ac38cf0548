package smtp

import (
	"net"

	"github.com/gopistolet/gospf"
)

// SenderPolicy is invoked by a Session right after a MAIL FROM has been
// syntactically accepted and before the 250 reply is written. Returning
// false rejects the transaction with a 551 naming reason.
//
// This is a policy add-on layered on top of the core state machine, not a
// spec.md requirement (see SPEC_FULL.md §2 DOMAIN STACK) — it gives the
// teacher's mailaddress.go ValidateDomainAddress/HasReverseDns sender
// provenance checks, and its gospf dependency, a concrete home.
type SenderPolicy func(remote net.IP, heloDomain string, from Mailbox) (ok bool, reason string)

// SPFSenderPolicy builds a SenderPolicy backed by gospf's SPF evaluation
// of the connecting IP against the reverse path's domain.
func SPFSenderPolicy() SenderPolicy {
	return func(remote net.IP, heloDomain string, from Mailbox) (bool, string) {
		result, err := gospf.CheckHost(remote, from.Domain.String(), from.String())
		if err != nil {
			// Temporary DNS/lookup failures should not hard-fail a
			// transaction; treat them as a pass and let downstream
			// filtering catch anything suspicious.
			return true, ""
		}
		switch result {
		case gospf.Pass, gospf.Neutral, gospf.None:
			return true, ""
		default:
			return false, "sender domain does not authorize this host to send mail"
		}
	}
}
