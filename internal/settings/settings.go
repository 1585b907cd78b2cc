// Package settings is the admin policy store: a closed set of named keys,
// each with its own validation rule. Values live as strings in storage and
// are typed exactly once, at the point of consumption.
package settings

import (
	"strconv"
	"time"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/visibility"
)

const (
	KeyVisibilityMode     = "holidays.visibility_mode"
	KeyApprovalMode       = "holidays.approval_mode"
	KeyAdvanceNoticeDays  = "holidays.advance_notice_days"
	KeyMaxConsecutiveDays = "holidays.max_consecutive_days"
	KeyVacationAllowance  = "leave_types.vacation_allowance"
	KeyPersonalAllowance  = "leave_types.personal_allowance"
	KeySickAllowance      = "leave_types.sick_allowance"
)

type ApprovalMode string

const (
	ApprovalManual ApprovalMode = "manual"
	ApprovalAuto   ApprovalMode = "auto"
)

// UnlimitedAllowance is the sentinel for "no annual cap", only valid for
// sick leave.
const UnlimitedAllowance = -1

type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;column:key"`
	Value     string    `json:"value" gorm:"column:value;not null"`
	UpdatedBy *string   `json:"updated_by,omitempty" gorm:"column:updated_by"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Defaults applied when a key has never been written.
var defaults = map[string]string{
	KeyVisibilityMode:     string(visibility.ModeDepartmentOnly),
	KeyApprovalMode:       string(ApprovalManual),
	KeyAdvanceNoticeDays:  "0",
	KeyMaxConsecutiveDays: "30",
	KeyVacationAllowance:  "20",
	KeyPersonalAllowance:  "5",
	KeySickAllowance:      strconv.Itoa(UnlimitedAllowance),
}

type rule func(raw string) bool

func enumRule(allowed ...string) rule {
	return func(raw string) bool {
		for _, a := range allowed {
			if raw == a {
				return true
			}
		}
		return false
	}
}

func intRule(min, max int) rule {
	return func(raw string) bool {
		n, err := strconv.Atoi(raw)
		return err == nil && n >= min && n <= max
	}
}

// The key set is closed: writes to anything not listed here are rejected.
var rules = map[string]rule{
	KeyVisibilityMode: enumRule(
		string(visibility.ModeAdminOnly),
		string(visibility.ModeDepartmentOnly),
		string(visibility.ModeAllSeeAll),
	),
	KeyApprovalMode:       enumRule(string(ApprovalManual), string(ApprovalAuto)),
	KeyAdvanceNoticeDays:  intRule(0, 365),
	KeyMaxConsecutiveDays: intRule(0, 365),
	KeyVacationAllowance:  intRule(1, 365),
	KeyPersonalAllowance:  intRule(1, 365),
	KeySickAllowance:      intRule(UnlimitedAllowance, 365),
}

// ValidateValue checks raw against the rule declared for key.
func ValidateValue(key, raw string) error {
	r, known := rules[key]
	if !known {
		return internal.ErrUnknownSettingKey
	}
	if !r(raw) {
		return internal.ErrInvalidSettingValue.WithDetails(map[string]string{"key": key, "value": raw})
	}
	return nil
}

// Snapshot is the typed, read-only view of all policy settings that
// lifecycle and visibility calls consume. Resolving the strings once here
// keeps untyped values out of the core.
type Snapshot struct {
	VisibilityMode     visibility.Mode
	ApprovalMode       ApprovalMode
	AdvanceNoticeDays  int
	MaxConsecutiveDays int
	VacationAllowance  int
	PersonalAllowance  int
	SickAllowance      int
}

// rawValue renders a snapshot field back to its stored string form, used
// when auditing old/new values.
func (s Snapshot) rawValue(key string) string {
	switch key {
	case KeyVisibilityMode:
		return string(s.VisibilityMode)
	case KeyApprovalMode:
		return string(s.ApprovalMode)
	case KeyAdvanceNoticeDays:
		return strconv.Itoa(s.AdvanceNoticeDays)
	case KeyMaxConsecutiveDays:
		return strconv.Itoa(s.MaxConsecutiveDays)
	case KeyVacationAllowance:
		return strconv.Itoa(s.VacationAllowance)
	case KeyPersonalAllowance:
		return strconv.Itoa(s.PersonalAllowance)
	case KeySickAllowance:
		return strconv.Itoa(s.SickAllowance)
	}
	return ""
}

func snapshotFrom(values map[string]string) Snapshot {
	get := func(key string) string {
		if v, ok := values[key]; ok {
			return v
		}
		return defaults[key]
	}
	atoi := func(key string) int {
		n, _ := strconv.Atoi(get(key))
		return n
	}

	return Snapshot{
		VisibilityMode:     visibility.Mode(get(KeyVisibilityMode)),
		ApprovalMode:       ApprovalMode(get(KeyApprovalMode)),
		AdvanceNoticeDays:  atoi(KeyAdvanceNoticeDays),
		MaxConsecutiveDays: atoi(KeyMaxConsecutiveDays),
		VacationAllowance:  atoi(KeyVacationAllowance),
		PersonalAllowance:  atoi(KeyPersonalAllowance),
		SickAllowance:      atoi(KeySickAllowance),
	}
}
