package leave

import (
	"context"
	"time"

	"github.com/leavedesk/leave-management/internal/calendar"
)

// Detector answers range-conflict questions against an employee's existing
// requests. It is read-only; the status transition that acts on its answer
// happens under the store's per-employee lock.
type Detector struct {
	repo Repository
}

func NewDetector(repo Repository) *Detector {
	return &Detector{repo: repo}
}

// HasApprovedOverlap reports whether [start, end] collides with an approved
// request of the employee. excludeID lets an edit-in-place check against
// everything except itself; pass "" to check all.
func (d *Detector) HasApprovedOverlap(ctx context.Context, employeeID string, start, end time.Time, excludeID string) (bool, error) {
	approved, err := d.repo.ListByEmployeeAndStatus(ctx, employeeID, StatusApproved)
	if err != nil {
		return false, err
	}
	for _, req := range approved {
		if req.ID == excludeID {
			continue
		}
		if calendar.Overlaps(start, end, req.StartDate, req.EndDate) {
			return true, nil
		}
	}
	return false, nil
}
