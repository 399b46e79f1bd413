package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "gitlab.com/sgtreasury/tally/internal/service"

// counters are resolved against the global meter provider, which forwards
// to the real provider once telemetry.Setup installs one.
type counters struct {
	reimbursementsCreated metric.Int64Counter
	reimbursementStatus   metric.Int64Counter
	reimbursementsDeleted metric.Int64Counter
	invitesCreated        metric.Int64Counter
	invitesAccepted       metric.Int64Counter
	invitesDeclined       metric.Int64Counter
	invitesPurged         metric.Int64Counter
	invitesEmailFailed    metric.Int64Counter
	receiptsScanned       metric.Int64Counter
}

var metrics = newCounters()

func newCounters() *counters {
	m := otel.Meter(meterName)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			otel.Handle(err)
			return noop.Int64Counter{}
		}
		return c
	}
	return &counters{
		reimbursementsCreated: counter("tally.reimbursements.created", "Reimbursements submitted"),
		reimbursementStatus:   counter("tally.reimbursements.status_changed", "Reimbursement status transitions"),
		reimbursementsDeleted: counter("tally.reimbursements.deleted", "Reimbursements deleted"),
		invitesCreated:        counter("tally.invites.created", "Club invites created"),
		invitesAccepted:       counter("tally.invites.accepted", "Club invites accepted"),
		invitesDeclined:       counter("tally.invites.declined", "Club invites declined"),
		invitesPurged:         counter("tally.invites.purged", "Expired club invites purged"),
		invitesEmailFailed:    counter("tally.invites.email_failed", "Invite emails that failed to send"),
		receiptsScanned:       counter("tally.receipts.scanned", "Receipts scanned"),
	}
}
