// Package visibility filters what a viewer may see, driven by the
// admin-configured visibility mode. The same filter applies to leave
// requests and employees, and is evaluated fresh on every call so setting
// changes take effect immediately.
package visibility

import (
	"github.com/leavedesk/leave-management/internal"
)

type Mode string

const (
	ModeAdminOnly      Mode = "admin_only"
	ModeDepartmentOnly Mode = "department_only"
	ModeAllSeeAll      Mode = "all_see_all"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeAdminOnly, ModeDepartmentOnly, ModeAllSeeAll:
		return true
	}
	return false
}

// Scoped is anything ownable by an employee within a department. Both
// LeaveRequest and Employee satisfy it.
type Scoped interface {
	OwnerID() string
	OwnerDepartmentID() string
}

// CanSee reports whether viewer may see one entity under mode.
func CanSee(viewer internal.Principal, mode Mode, item Scoped) bool {
	if viewer.IsAdmin() {
		return true
	}
	if item.OwnerID() == viewer.UserID {
		return true
	}

	switch mode {
	case ModeAllSeeAll:
		return true
	case ModeDepartmentOnly:
		// A viewer without a department falls back to own-only.
		return viewer.DepartmentID != "" && item.OwnerDepartmentID() == viewer.DepartmentID
	default:
		return false
	}
}

// Filter returns the subset of items viewer may see, preserving order.
func Filter[T Scoped](viewer internal.Principal, mode Mode, items []T) []T {
	if viewer.IsAdmin() || mode == ModeAllSeeAll {
		return items
	}

	visible := make([]T, 0, len(items))
	for _, item := range items {
		if CanSee(viewer, mode, item) {
			visible = append(visible, item)
		}
	}
	return visible
}
