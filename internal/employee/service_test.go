package employee_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/calendar"
	"github.com/leavedesk/leave-management/internal/department"
	"github.com/leavedesk/leave-management/internal/employee"
	"github.com/leavedesk/leave-management/internal/settings"
	"github.com/leavedesk/leave-management/internal/visibility"
)

// Mock store. Atomic just runs fn against the same store; real transaction
// semantics live in the postgres store.
type mockEmployeeStore struct {
	byID       map[string]*employee.Employee
	byEmail    map[string]*employee.Employee
	auditTrail []*audit.Entry
	auditError error
}

func newMockEmployeeStore() *mockEmployeeStore {
	return &mockEmployeeStore{
		byID:    make(map[string]*employee.Employee),
		byEmail: make(map[string]*employee.Employee),
	}
}

func (m *mockEmployeeStore) Create(ctx context.Context, emp *employee.Employee) error {
	copied := *emp
	m.byID[emp.ID] = &copied
	m.byEmail[emp.Email] = &copied
	return nil
}

func (m *mockEmployeeStore) GetByID(ctx context.Context, id string) (*employee.Employee, error) {
	emp, ok := m.byID[id]
	if !ok {
		return nil, internal.ErrEmployeeNotFound
	}
	copied := *emp
	return &copied, nil
}

func (m *mockEmployeeStore) GetByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	emp, ok := m.byEmail[email]
	if !ok {
		return nil, internal.ErrEmployeeNotFound
	}
	copied := *emp
	return &copied, nil
}

func (m *mockEmployeeStore) Update(ctx context.Context, emp *employee.Employee) error {
	copied := *emp
	m.byID[emp.ID] = &copied
	m.byEmail[emp.Email] = &copied
	return nil
}

func (m *mockEmployeeStore) List(ctx context.Context, limit, offset int) ([]*employee.Employee, error) {
	var out []*employee.Employee
	for _, emp := range m.byID {
		copied := *emp
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockEmployeeStore) AppendAudit(ctx context.Context, entry *audit.Entry) error {
	if m.auditError != nil {
		return m.auditError
	}
	m.auditTrail = append(m.auditTrail, entry)
	return nil
}

func (m *mockEmployeeStore) Atomic(ctx context.Context, fn func(tx employee.Store) error) error {
	return fn(m)
}

func (m *mockEmployeeStore) auditActions() []audit.Action {
	out := make([]audit.Action, 0, len(m.auditTrail))
	for _, e := range m.auditTrail {
		out = append(out, e.Action)
	}
	return out
}

type mockDepartmentRepository struct {
	departments map[string]*department.Department
}

func newMockDepartmentRepository() *mockDepartmentRepository {
	return &mockDepartmentRepository{departments: make(map[string]*department.Department)}
}

func (m *mockDepartmentRepository) Create(ctx context.Context, dept *department.Department) error {
	m.departments[dept.ID] = dept
	return nil
}

func (m *mockDepartmentRepository) GetByID(ctx context.Context, id string) (*department.Department, error) {
	dept, ok := m.departments[id]
	if !ok {
		return nil, internal.ErrDepartmentNotFound
	}
	return dept, nil
}

func (m *mockDepartmentRepository) List(ctx context.Context) ([]*department.Department, error) {
	var out []*department.Department
	for _, dept := range m.departments {
		out = append(out, dept)
	}
	return out, nil
}

type mockPolicyProvider struct {
	snapshot settings.Snapshot
}

func (m *mockPolicyProvider) Snapshot(ctx context.Context) (settings.Snapshot, error) {
	return m.snapshot, nil
}

var _ = Describe("EmployeeService", func() {
	var (
		service  *employee.Service
		store    *mockEmployeeStore
		depts    *mockDepartmentRepository
		policies *mockPolicyProvider
		ctx      context.Context
		admin    internal.Principal
		worker   internal.Principal
	)

	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockEmployeeStore()
		depts = newMockDepartmentRepository()
		policies = &mockPolicyProvider{snapshot: settings.Snapshot{
			VisibilityMode:    visibility.ModeDepartmentOnly,
			VacationAllowance: 20,
			PersonalAllowance: 5,
			SickAllowance:     settings.UnlimitedAllowance,
		}}
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = employee.NewService(store, depts, policies, calendar.FixedClock(now), bcrypt.MinCost, lg)

		admin = internal.Principal{UserID: "admin-1", Role: internal.RoleAdmin}
		worker = internal.Principal{UserID: "emp-1", Role: internal.RoleEmployee}
	})

	register := func(email string) *employee.Employee {
		emp, err := service.Register(ctx, employee.RegisterEmployeeDTO{
			Email:    email,
			Name:     "Test Person",
			Password: "correct-horse",
		})
		Expect(err).ToNot(HaveOccurred())
		return emp
	}

	Describe("Register", func() {
		It("creates a pending employee with policy-default allowances", func() {
			emp := register("dana@example.com")

			Expect(emp.Status).To(Equal(employee.StatusPending))
			Expect(emp.Role).To(Equal(internal.RoleEmployee))
			Expect(emp.VacationAllowance).To(Equal(20))
			Expect(emp.PersonalAllowance).To(Equal(5))
			Expect(emp.SickAllowance).To(Equal(settings.UnlimitedAllowance))
			Expect(store.auditActions()).To(ContainElement(audit.ActionEmployeeRegistered))
		})

		It("stores a bcrypt hash, never the password", func() {
			emp := register("dana@example.com")

			Expect(emp.PasswordHash).ToNot(ContainSubstring("correct-horse"))
			err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte("correct-horse"))
			Expect(err).ToNot(HaveOccurred())
		})

		It("normalizes the email", func() {
			emp := register("  Dana@Example.COM ")

			Expect(emp.Email).To(Equal("dana@example.com"))
		})

		It("rejects duplicate emails", func() {
			register("dana@example.com")

			_, err := service.Register(ctx, employee.RegisterEmployeeDTO{
				Email:    "dana@example.com",
				Name:     "Other Person",
				Password: "another-pass",
			})

			Expect(err).To(MatchError(internal.ErrEmailTaken))
		})

		It("rejects short passwords", func() {
			_, err := service.Register(ctx, employee.RegisterEmployeeDTO{
				Email:    "dana@example.com",
				Name:     "Test",
				Password: "short",
			})

			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown departments", func() {
			deptID := "nope"
			_, err := service.Register(ctx, employee.RegisterEmployeeDTO{
				Email:        "dana@example.com",
				Name:         "Test",
				Password:     "correct-horse",
				DepartmentID: &deptID,
			})

			Expect(err).To(MatchError(internal.ErrDepartmentNotFound))
		})

		It("fails when the audit write fails", func() {
			store.auditError = errors.New("disk full")

			_, err := service.Register(ctx, employee.RegisterEmployeeDTO{
				Email:    "dana@example.com",
				Name:     "Test Person",
				Password: "correct-horse",
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("approval and status transitions", func() {
		It("activates a pending employee", func() {
			emp := register("dana@example.com")

			approved, err := service.Approve(ctx, admin, emp.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(approved.Status).To(Equal(employee.StatusActive))
			Expect(store.auditActions()).To(ContainElement(audit.ActionEmployeeApproved))
		})

		It("deactivates a rejected registration", func() {
			emp := register("dana@example.com")

			rejected, err := service.Reject(ctx, admin, emp.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(rejected.Status).To(Equal(employee.StatusInactive))
		})

		It("requires admin", func() {
			emp := register("dana@example.com")

			_, err := service.Approve(ctx, worker, emp.ID)

			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("refuses transitions the state machine does not allow", func() {
			emp := register("dana@example.com")
			_, err := service.Approve(ctx, admin, emp.ID)
			Expect(err).ToNot(HaveOccurred())

			// active -> active is not a transition
			_, err = service.SetStatus(ctx, admin, emp.ID, employee.StatusActive)
			Expect(err).To(MatchError(internal.ErrInvalidStatusChange))

			// active -> pending never happens
			_, err = service.SetStatus(ctx, admin, emp.ID, employee.StatusPending)
			Expect(err).To(MatchError(internal.ErrInvalidStatusChange))
		})

		It("allows reactivating an inactive employee", func() {
			emp := register("dana@example.com")
			_, err := service.Approve(ctx, admin, emp.ID)
			Expect(err).ToNot(HaveOccurred())
			_, err = service.SetStatus(ctx, admin, emp.ID, employee.StatusInactive)
			Expect(err).ToNot(HaveOccurred())

			active, err := service.SetStatus(ctx, admin, emp.ID, employee.StatusActive)

			Expect(err).ToNot(HaveOccurred())
			Expect(active.Status).To(Equal(employee.StatusActive))
		})
	})

	Describe("SetAllowances", func() {
		It("overrides only the provided fields and audits before/after", func() {
			emp := register("dana@example.com")

			vacation := 25
			updated, err := service.SetAllowances(ctx, admin, emp.ID, employee.UpdateAllowancesDTO{Vacation: &vacation})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.VacationAllowance).To(Equal(25))
			Expect(updated.PersonalAllowance).To(Equal(5))
			Expect(store.auditActions()).To(ContainElement(audit.ActionEmployeeAllowanceChanged))
		})

		It("rejects out-of-range values", func() {
			emp := register("dana@example.com")

			vacation := 0
			_, err := service.SetAllowances(ctx, admin, emp.ID, employee.UpdateAllowancesDTO{Vacation: &vacation})

			Expect(err).To(HaveOccurred())
		})

		It("accepts the unlimited sentinel for sick leave", func() {
			emp := register("dana@example.com")

			sick := settings.UnlimitedAllowance
			updated, err := service.SetAllowances(ctx, admin, emp.ID, employee.UpdateAllowancesDTO{Sick: &sick})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.SickAllowance).To(Equal(settings.UnlimitedAllowance))
		})

		It("requires admin", func() {
			emp := register("dana@example.com")

			vacation := 25
			_, err := service.SetAllowances(ctx, worker, emp.ID, employee.UpdateAllowancesDTO{Vacation: &vacation})

			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("fails when the audit write fails", func() {
			emp := register("dana@example.com")
			store.auditError = errors.New("disk full")

			vacation := 25
			_, err := service.SetAllowances(ctx, admin, emp.ID, employee.UpdateAllowancesDTO{Vacation: &vacation})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AssignDepartment", func() {
		BeforeEach(func() {
			depts.departments["dept-1"] = &department.Department{ID: "dept-1", Name: "Engineering"}
		})

		It("moves an employee into a department", func() {
			emp := register("dana@example.com")

			deptID := "dept-1"
			updated, err := service.AssignDepartment(ctx, admin, emp.ID, &deptID)

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.DepartmentID).To(HaveValue(Equal("dept-1")))
			Expect(store.auditActions()).To(ContainElement(audit.ActionEmployeeDeptChanged))
		})

		It("clears an assignment with nil", func() {
			emp := register("dana@example.com")
			deptID := "dept-1"
			_, err := service.AssignDepartment(ctx, admin, emp.ID, &deptID)
			Expect(err).ToNot(HaveOccurred())

			updated, err := service.AssignDepartment(ctx, admin, emp.ID, nil)

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.DepartmentID).To(BeNil())
		})

		It("rejects unknown departments", func() {
			emp := register("dana@example.com")

			deptID := "nope"
			_, err := service.AssignDepartment(ctx, admin, emp.ID, &deptID)

			Expect(err).To(MatchError(internal.ErrDepartmentNotFound))
		})
	})

	Describe("reads", func() {
		It("lets employees see themselves", func() {
			emp := register("dana@example.com")
			viewer := internal.Principal{UserID: emp.ID, Role: internal.RoleEmployee}

			got, err := service.Get(ctx, viewer, emp.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(emp.ID))
		})

		It("hides employees outside the viewer's department as not found", func() {
			emp := register("dana@example.com")
			viewer := internal.Principal{UserID: "someone-else", Role: internal.RoleEmployee, DepartmentID: "dept-9"}

			_, err := service.Get(ctx, viewer, emp.ID)

			Expect(err).To(MatchError(internal.ErrEmployeeNotFound))
		})

		It("lets admins see everyone", func() {
			emp := register("dana@example.com")

			got, err := service.Get(ctx, admin, emp.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(emp.ID))

			all, err := service.List(ctx, admin, 50, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})
	})
})
