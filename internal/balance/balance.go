// Package balance computes per-type, per-year leave accounting from an
// employee's requests. The computation is pure: "today" comes from the
// caller, never from the wall clock.
package balance

import (
	"time"

	"github.com/leavedesk/leave-management/internal/calendar"
	"github.com/leavedesk/leave-management/internal/leave"
	"github.com/leavedesk/leave-management/internal/settings"
)

// Balance is one (leave type, year) ledger line. Allowance and Available
// carry the -1 unlimited sentinel; Unlimited mirrors it for consumers that
// should not do arithmetic on the sentinel.
type Balance struct {
	Type      leave.Type `json:"type"`
	Year      int        `json:"year"`
	Allowance int        `json:"allowance"`
	Unlimited bool       `json:"unlimited"`
	Used      int        `json:"used"`
	Taken     int        `json:"taken"`
	Booked    int        `json:"booked"`
	Pending   int        `json:"pending"`
	Available int        `json:"available"`
}

// Compute folds requests into a ledger line. A request counts toward the
// year its start date falls in. Invariant: Used == Taken + Booked, and
// Available never goes negative for finite allowances.
func Compute(requests []*leave.LeaveRequest, leaveType leave.Type, year int, allowance int, today time.Time) Balance {
	b := Balance{
		Type:      leaveType,
		Year:      year,
		Allowance: allowance,
		Unlimited: allowance == settings.UnlimitedAllowance,
	}
	today = calendar.DateOf(today)

	for _, req := range requests {
		if req.Type != leaveType || req.Year() != year {
			continue
		}

		switch req.Status {
		case leave.StatusApproved:
			b.Used += req.WorkingDays
			if calendar.DateOf(req.EndDate).Before(today) {
				b.Taken += req.WorkingDays
			} else {
				b.Booked += req.WorkingDays
			}
		case leave.StatusPending:
			b.Pending += req.WorkingDays
		}
	}

	if b.Unlimited {
		b.Available = settings.UnlimitedAllowance
		return b
	}

	b.Available = b.Allowance - b.Used - b.Pending
	if b.Available < 0 {
		b.Available = 0
	}
	return b
}
