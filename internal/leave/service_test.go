package leave_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/calendar"
	"github.com/leavedesk/leave-management/internal/core/events"
	employees "github.com/leavedesk/leave-management/internal/employee"
	"github.com/leavedesk/leave-management/internal/leave"
	"github.com/leavedesk/leave-management/internal/settings"
	"github.com/leavedesk/leave-management/internal/visibility"
)

// Mock store for testing. Atomic just runs fn against the same store; the
// real locking behavior lives in the postgres store.
type mockLeaveStore struct {
	mu          sync.Mutex
	requests    map[string]*leave.LeaveRequest
	auditTrail  []*audit.Entry
	createError error
	updateError error
	auditError  error
}

func newMockLeaveStore() *mockLeaveStore {
	return &mockLeaveStore{
		requests: make(map[string]*leave.LeaveRequest),
	}
}

func (m *mockLeaveStore) Create(ctx context.Context, req *leave.LeaveRequest) error {
	if m.createError != nil {
		return m.createError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *mockLeaveStore) GetByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, internal.ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (m *mockLeaveStore) Update(ctx context.Context, req *leave.LeaveRequest) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *mockLeaveStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
	return nil
}

func (m *mockLeaveStore) ListByEmployee(ctx context.Context, employeeID string) ([]*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*leave.LeaveRequest
	for _, req := range m.requests {
		if req.EmployeeID == employeeID {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockLeaveStore) ListByEmployeeAndStatus(ctx context.Context, employeeID string, status leave.Status) ([]*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*leave.LeaveRequest
	for _, req := range m.requests {
		if req.EmployeeID == employeeID && req.Status == status {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockLeaveStore) ListAll(ctx context.Context, limit, offset int) ([]*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*leave.LeaveRequest
	for _, req := range m.requests {
		copied := *req
		out = append(out, &copied)
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *mockLeaveStore) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	if m.auditError != nil {
		return m.auditError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditTrail = append(m.auditTrail, entry)
	return nil
}

func (m *mockLeaveStore) Atomic(ctx context.Context, employeeID string, fn func(tx leave.Store) error) error {
	return fn(m)
}

func (m *mockLeaveStore) auditActions() []audit.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]audit.Action, 0, len(m.auditTrail))
	for _, e := range m.auditTrail {
		actions = append(actions, e.Action)
	}
	return actions
}

// Mock employee directory keyed by id.
type mockDirectory struct {
	byID map[string]*employees.Employee
}

func (m *mockDirectory) GetByID(ctx context.Context, id string) (*employees.Employee, error) {
	emp, ok := m.byID[id]
	if !ok {
		return nil, internal.ErrEmployeeNotFound
	}
	copied := *emp
	return &copied, nil
}

// Mock policy provider returning a fixed snapshot.
type mockPolicyProvider struct {
	snapshot settings.Snapshot
	err      error
}

func (m *mockPolicyProvider) Snapshot(ctx context.Context) (settings.Snapshot, error) {
	if m.err != nil {
		return settings.Snapshot{}, m.err
	}
	return m.snapshot, nil
}

// Mock event publisher recording published event types.
type mockPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event.EventType())
	return m.err
}

func (m *mockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

var _ = Describe("LeaveService", func() {
	var (
		service   *leave.Service
		store     *mockLeaveStore
		directory *mockDirectory
		policies  *mockPolicyProvider
		publisher *mockPublisher
		clock     calendar.Clock
		ctx       context.Context

		employee internal.Principal
		coworker internal.Principal
		outsider internal.Principal
		admin    internal.Principal
	)

	// Monday 2026-03-02, frozen.
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockLeaveStore()
		publisher = &mockPublisher{}
		clock = calendar.FixedClock(now)
		policies = &mockPolicyProvider{snapshot: settings.Snapshot{
			VisibilityMode:     visibility.ModeDepartmentOnly,
			ApprovalMode:       settings.ApprovalManual,
			AdvanceNoticeDays:  0,
			MaxConsecutiveDays: 30,
			VacationAllowance:  20,
			PersonalAllowance:  5,
			SickAllowance:      settings.UnlimitedAllowance,
		}}
		dept1 := "dept-1"
		dept2 := "dept-2"
		directory = &mockDirectory{byID: map[string]*employees.Employee{
			"emp-1": {ID: "emp-1", DepartmentID: &dept1},
			"emp-2": {ID: "emp-2", DepartmentID: &dept1},
			"emp-3": {ID: "emp-3", DepartmentID: &dept2},
		}}
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = leave.NewService(store, directory, policies, publisher, clock, lg)

		employee = internal.Principal{UserID: "emp-1", Role: internal.RoleEmployee, DepartmentID: "dept-1"}
		coworker = internal.Principal{UserID: "emp-2", Role: internal.RoleEmployee, DepartmentID: "dept-1"}
		outsider = internal.Principal{UserID: "emp-3", Role: internal.RoleEmployee, DepartmentID: "dept-2"}
		admin = internal.Principal{UserID: "admin-1", Role: internal.RoleAdmin}
	})

	vacation := func(start, end string) leave.CreateLeaveDTO {
		return leave.CreateLeaveDTO{
			Type:      leave.TypeVacation,
			StartDate: start,
			EndDate:   end,
		}
	}

	Describe("Create", func() {
		It("creates a pending vacation request with computed working days", func() {
			req, err := service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))

			Expect(err).ToNot(HaveOccurred())
			Expect(req.Status).To(Equal(leave.StatusPending))
			Expect(req.WorkingDays).To(Equal(5))
			Expect(req.EmployeeID).To(Equal("emp-1"))
			Expect(req.DepartmentID).To(Equal("dept-1"))
			Expect(store.auditActions()).To(ContainElement(audit.ActionLeaveRequestCreated))
			Expect(publisher.published()).To(ContainElement(leave.EventRequestCreated))
		})

		It("accepts a weekend-only range as zero working days", func() {
			req, err := service.Create(ctx, employee, vacation("2026-03-07", "2026-03-08"))

			Expect(err).ToNot(HaveOccurred())
			Expect(req.WorkingDays).To(Equal(0))
		})

		It("rejects an inverted date range", func() {
			_, err := service.Create(ctx, employee, vacation("2026-03-13", "2026-03-09"))

			Expect(err).To(MatchError(internal.ErrInvalidRange))
		})

		It("rejects a vacation starting in the past", func() {
			_, err := service.Create(ctx, employee, vacation("2026-02-27", "2026-03-06"))

			Expect(err).To(MatchError(internal.ErrPastDateNotAllowed))
		})

		It("allows sick leave for past dates", func() {
			deferred := true
			req, err := service.Create(ctx, employee, leave.CreateLeaveDTO{
				Type:                leave.TypeSick,
				StartDate:           "2026-02-25",
				EndDate:             "2026-02-26",
				CertificateDeferred: deferred,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(req.WorkingDays).To(Equal(2))
		})

		It("rejects sick leave without certificate info", func() {
			_, err := service.Create(ctx, employee, leave.CreateLeaveDTO{
				Type:      leave.TypeSick,
				StartDate: "2026-03-03",
				EndDate:   "2026-03-04",
			})

			Expect(err).To(MatchError(internal.ErrMedicalCertificateRequired))
		})

		It("accepts sick leave with a certificate URL", func() {
			url := "https://files.example/cert.pdf"
			req, err := service.Create(ctx, employee, leave.CreateLeaveDTO{
				Type:           leave.TypeSick,
				StartDate:      "2026-03-03",
				EndDate:        "2026-03-04",
				CertificateURL: &url,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(req.Status).To(Equal(leave.StatusPending))
		})

		It("enforces the advance notice policy for vacations", func() {
			policies.snapshot.AdvanceNoticeDays = 14

			_, err := service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("enforces the max consecutive days policy", func() {
			policies.snapshot.MaxConsecutiveDays = 3

			_, err := service.Create(ctx, employee, vacation("2026-03-09", "2026-03-20"))

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("lets an admin create on an employee's behalf", func() {
			dto := vacation("2026-03-09", "2026-03-13")
			dto.EmployeeID = "emp-1"

			req, err := service.Create(ctx, admin, dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(req.EmployeeID).To(Equal("emp-1"))
		})

		It("scopes an admin-created request to the owner's department", func() {
			dto := vacation("2026-03-09", "2026-03-13")
			dto.EmployeeID = "emp-1"

			req, err := service.Create(ctx, admin, dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(req.DepartmentID).To(Equal("dept-1"))

			got, err := service.Get(ctx, coworker, req.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(req.ID))

			_, err = service.Get(ctx, outsider, req.ID)
			Expect(err).To(MatchError(internal.ErrRequestNotFound))
		})

		It("rejects creating on behalf of an unknown employee", func() {
			dto := vacation("2026-03-09", "2026-03-13")
			dto.EmployeeID = "emp-404"

			_, err := service.Create(ctx, admin, dto)

			Expect(err).To(MatchError(internal.ErrEmployeeNotFound))
		})

		It("forbids non-admins creating for someone else", func() {
			dto := vacation("2026-03-09", "2026-03-13")
			dto.EmployeeID = "emp-2"

			_, err := service.Create(ctx, employee, dto)

			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		Context("under auto approval mode", func() {
			BeforeEach(func() {
				policies.snapshot.ApprovalMode = settings.ApprovalAuto
			})

			It("approves a conflict-free request immediately", func() {
				req, err := service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))

				Expect(err).ToNot(HaveOccurred())
				Expect(req.Status).To(Equal(leave.StatusApproved))
				Expect(req.ResolvedAt).ToNot(BeNil())
				Expect(store.auditActions()).To(ContainElement(audit.ActionLeaveRequestApproved))
				Expect(publisher.published()).To(ContainElement(leave.EventRequestApproved))
			})

			It("leaves a conflicting request pending", func() {
				first, err := service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
				Expect(err).ToNot(HaveOccurred())
				Expect(first.Status).To(Equal(leave.StatusApproved))

				second, err := service.Create(ctx, employee, vacation("2026-03-11", "2026-03-17"))
				Expect(err).ToNot(HaveOccurred())
				Expect(second.Status).To(Equal(leave.StatusPending))
			})
		})
	})

	Describe("Edit", func() {
		var pending *leave.LeaveRequest

		BeforeEach(func() {
			var err error
			pending, err = service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("recomputes working days when dates change", func() {
			newEnd := "2026-03-11"
			updated, err := service.Edit(ctx, employee, pending.ID, leave.UpdateLeaveDTO{EndDate: &newEnd})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.WorkingDays).To(Equal(3))
			Expect(store.auditActions()).To(ContainElement(audit.ActionLeaveRequestEdited))
		})

		It("audits an edit even when nothing changed", func() {
			before := len(store.auditActions())

			_, err := service.Edit(ctx, employee, pending.ID, leave.UpdateLeaveDTO{})

			Expect(err).ToNot(HaveOccurred())
			Expect(store.auditActions()).To(HaveLen(before + 1))
		})

		It("rejects edits by someone else", func() {
			notes := "mine now"
			_, err := service.Edit(ctx, coworker, pending.ID, leave.UpdateLeaveDTO{Notes: &notes})

			Expect(err).To(MatchError(internal.ErrNotEditable))
		})

		It("rejects edits once resolved", func() {
			_, err := service.Approve(ctx, admin, pending.ID)
			Expect(err).ToNot(HaveOccurred())

			notes := "too late"
			_, err = service.Edit(ctx, employee, pending.ID, leave.UpdateLeaveDTO{Notes: &notes})

			Expect(err).To(MatchError(internal.ErrNotEditable))
		})

		It("re-checks the certificate rule when switching to sick", func() {
			sick := leave.TypeSick
			_, err := service.Edit(ctx, employee, pending.ID, leave.UpdateLeaveDTO{Type: &sick})

			Expect(err).To(MatchError(internal.ErrMedicalCertificateRequired))
		})
	})

	Describe("Cancel", func() {
		var pending *leave.LeaveRequest

		BeforeEach(func() {
			var err error
			pending, err = service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("cancels a pending request", func() {
			cancelled, err := service.Cancel(ctx, employee, pending.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(cancelled.Status).To(Equal(leave.StatusCancelled))
		})

		It("is not idempotent: a second cancel fails", func() {
			_, err := service.Cancel(ctx, employee, pending.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Cancel(ctx, employee, pending.ID)
			Expect(err).To(MatchError(internal.ErrNotCancellable))
		})

		It("lets an admin cancel someone else's pending request", func() {
			cancelled, err := service.Cancel(ctx, admin, pending.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(cancelled.Status).To(Equal(leave.StatusCancelled))
		})

		It("forbids other employees", func() {
			_, err := service.Cancel(ctx, coworker, pending.ID)

			Expect(err).To(MatchError(internal.ErrNotCancellable))
		})
	})

	Describe("Delete", func() {
		var pending *leave.LeaveRequest

		BeforeEach(func() {
			var err error
			pending, err = service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("hard-deletes a pending request and audits the snapshot first", func() {
			err := service.Delete(ctx, employee, pending.ID)

			Expect(err).ToNot(HaveOccurred())
			_, err = service.Get(ctx, employee, pending.ID)
			Expect(err).To(MatchError(internal.ErrRequestNotFound))
			Expect(store.auditActions()).To(ContainElement(audit.ActionLeaveRequestDeleted))
		})

		It("is owner-only, even for admins", func() {
			err := service.Delete(ctx, admin, pending.ID)

			Expect(err).To(MatchError(internal.ErrNotDeletable))
		})

		It("rejects deleting a resolved request", func() {
			_, err := service.Approve(ctx, admin, pending.ID)
			Expect(err).ToNot(HaveOccurred())

			err = service.Delete(ctx, employee, pending.ID)
			Expect(err).To(MatchError(internal.ErrNotDeletable))
		})
	})

	Describe("Approve", func() {
		var pending *leave.LeaveRequest

		BeforeEach(func() {
			var err error
			pending, err = service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("requires admin", func() {
			_, err := service.Approve(ctx, employee, pending.ID)

			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("approves a pending request and stamps the resolver", func() {
			approved, err := service.Approve(ctx, admin, pending.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(approved.Status).To(Equal(leave.StatusApproved))
			Expect(approved.ResolverID).To(HaveValue(Equal("admin-1")))
			Expect(approved.ResolvedAt).To(HaveValue(Equal(now)))
			Expect(publisher.published()).To(ContainElement(leave.EventRequestApproved))
		})

		It("refuses when an approved request already covers the range", func() {
			other, err := service.Create(ctx, employee, vacation("2026-03-11", "2026-03-17"))
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Approve(ctx, admin, pending.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Approve(ctx, admin, other.ID)
			Expect(err).To(MatchError(internal.ErrOverlapConflict))
		})

		It("allows approving adjacent non-overlapping ranges", func() {
			other, err := service.Create(ctx, employee, vacation("2026-03-16", "2026-03-18"))
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Approve(ctx, admin, pending.ID)
			Expect(err).ToNot(HaveOccurred())

			approved, err := service.Approve(ctx, admin, other.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(approved.Status).To(Equal(leave.StatusApproved))
		})

		It("rejects approving a non-pending request", func() {
			_, err := service.Cancel(ctx, employee, pending.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Approve(ctx, admin, pending.ID)
			Expect(err).To(MatchError(internal.ErrNotPending))
		})

		It("does not count a pending overlap as a conflict", func() {
			_, err := service.Create(ctx, employee, vacation("2026-03-11", "2026-03-17"))
			Expect(err).ToNot(HaveOccurred())

			approved, err := service.Approve(ctx, admin, pending.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(approved.Status).To(Equal(leave.StatusApproved))
		})
	})

	Describe("Reject", func() {
		var pending *leave.LeaveRequest

		BeforeEach(func() {
			var err error
			pending, err = service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("records the optional reason", func() {
			rejected, err := service.Reject(ctx, admin, pending.ID, "team is at capacity")

			Expect(err).ToNot(HaveOccurred())
			Expect(rejected.Status).To(Equal(leave.StatusRejected))
			Expect(rejected.RejectionReason).To(HaveValue(Equal("team is at capacity")))
			Expect(publisher.published()).To(ContainElement(leave.EventRequestRejected))
		})

		It("accepts an empty reason", func() {
			rejected, err := service.Reject(ctx, admin, pending.ID, "")

			Expect(err).ToNot(HaveOccurred())
			Expect(rejected.RejectionReason).To(BeNil())
		})

		It("requires admin", func() {
			_, err := service.Reject(ctx, employee, pending.ID, "no")

			Expect(err).To(MatchError(internal.ErrForbidden))
		})
	})

	Describe("Reopen", func() {
		var pending *leave.LeaveRequest

		BeforeEach(func() {
			var err error
			pending, err = service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("moves a rejected request back to pending and clears resolution", func() {
			_, err := service.Reject(ctx, admin, pending.ID, "rethink")
			Expect(err).ToNot(HaveOccurred())

			reopened, err := service.Reopen(ctx, admin, pending.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(reopened.Status).To(Equal(leave.StatusPending))
			Expect(reopened.ResolverID).To(BeNil())
			Expect(reopened.ResolvedAt).To(BeNil())
			Expect(reopened.RejectionReason).To(BeNil())
		})

		It("reopens an approved request", func() {
			_, err := service.Approve(ctx, admin, pending.ID)
			Expect(err).ToNot(HaveOccurred())

			reopened, err := service.Reopen(ctx, admin, pending.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(reopened.Status).To(Equal(leave.StatusPending))
		})

		It("rejects reopening a pending or cancelled request", func() {
			_, err := service.Reopen(ctx, admin, pending.ID)
			Expect(err).To(MatchError(internal.ErrNotReopenable))

			_, err = service.Cancel(ctx, employee, pending.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Reopen(ctx, admin, pending.ID)
			Expect(err).To(MatchError(internal.ErrNotReopenable))
		})

		It("requires admin", func() {
			_, err := service.Reopen(ctx, employee, pending.ID)

			Expect(err).To(MatchError(internal.ErrForbidden))
		})
	})

	Describe("visibility on reads", func() {
		var req *leave.LeaveRequest

		BeforeEach(func() {
			var err error
			req, err = service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("shows a request to its owner", func() {
			got, err := service.Get(ctx, employee, req.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(req.ID))
		})

		It("shows a request to a same-department coworker under department_only", func() {
			got, err := service.Get(ctx, coworker, req.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(req.ID))
		})

		It("hides a request from another department as not found", func() {
			_, err := service.Get(ctx, outsider, req.ID)

			Expect(err).To(MatchError(internal.ErrRequestNotFound))
		})

		It("hides everything from non-admins under admin_only", func() {
			policies.snapshot.VisibilityMode = visibility.ModeAdminOnly

			_, err := service.Get(ctx, coworker, req.ID)
			Expect(err).To(MatchError(internal.ErrRequestNotFound))

			got, err := service.Get(ctx, employee, req.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(req.ID))
		})

		It("flags a pending request that collides with an approved one", func() {
			other, err := service.Create(ctx, employee, vacation("2026-03-11", "2026-03-17"))
			Expect(err).ToNot(HaveOccurred())
			_, err = service.Approve(ctx, admin, req.ID)
			Expect(err).ToNot(HaveOccurred())

			got, err := service.Get(ctx, employee, other.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(got.ConflictWarning).To(BeTrue())
		})

		It("filters lists by visibility", func() {
			_, err := service.Create(ctx, outsider, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())

			mine, err := service.List(ctx, employee, 50, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(mine).To(HaveLen(1))

			all, err := service.List(ctx, admin, 50, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("restricts ListByEmployee to self or admin", func() {
			_, err := service.ListByEmployee(ctx, coworker, "emp-1")
			Expect(err).To(MatchError(internal.ErrForbidden))

			own, err := service.ListByEmployee(ctx, employee, "emp-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(own).To(HaveLen(1))
		})
	})

	Describe("failure classification", func() {
		It("reports storage faults as transient", func() {
			store.createError = errors.New("connection reset")

			_, err := service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeTransientStorageError))
		})

		It("fails the operation when the audit write fails", func() {
			store.auditError = errors.New("disk full")

			_, err := service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("a full request lifecycle", func() {
		It("walks create, edit, reject, reopen, approve with a complete trail", func() {
			req, err := service.Create(ctx, employee, vacation("2026-03-09", "2026-03-13"))
			Expect(err).ToNot(HaveOccurred())

			newEnd := "2026-03-12"
			req, err = service.Edit(ctx, employee, req.ID, leave.UpdateLeaveDTO{EndDate: &newEnd})
			Expect(err).ToNot(HaveOccurred())
			Expect(req.WorkingDays).To(Equal(4))

			req, err = service.Reject(ctx, admin, req.ID, "coverage gap")
			Expect(err).ToNot(HaveOccurred())

			req, err = service.Reopen(ctx, admin, req.ID)
			Expect(err).ToNot(HaveOccurred())

			req, err = service.Approve(ctx, admin, req.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(req.Status).To(Equal(leave.StatusApproved))

			Expect(store.auditActions()).To(Equal([]audit.Action{
				audit.ActionLeaveRequestCreated,
				audit.ActionLeaveRequestEdited,
				audit.ActionLeaveRequestRejected,
				audit.ActionLeaveRequestReopened,
				audit.ActionLeaveRequestApproved,
			}))
		})
	})
})
