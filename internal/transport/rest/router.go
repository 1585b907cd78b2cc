package rest

import (
	"crypto/rsa"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	"github.com/leavedesk/leave-management/internal/balance"
	"github.com/leavedesk/leave-management/internal/department"
	"github.com/leavedesk/leave-management/internal/employee"
	"github.com/leavedesk/leave-management/internal/leave"
	"github.com/leavedesk/leave-management/internal/settings"
	"github.com/leavedesk/leave-management/internal/transport/middleware"
)

type Handlers struct {
	Leave      *leave.Handler
	Balance    *balance.Handler
	Employee   *employee.Handler
	Department *department.Handler
	Settings   *settings.Handler
	Audit      *audit.Handler
}

// RegisterAllRoutes wires every endpoint onto the router. Token
// verification happens once in the auth middleware; admin-only routes get
// an extra role gate, though every service re-checks authorization itself.
func RegisterAllRoutes(router *chi.Mux, db *sqlx.DB, handlers Handlers, publicKey *rsa.PublicKey, allowedOrigins []string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Self-registration is the only unauthenticated write.
		r.Post("/employees/register", handlers.Employee.Register)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Auth(publicKey, logger))

			pr.Route("/leave-requests", func(lr chi.Router) {
				lr.Post("/", handlers.Leave.CreateRequest)
				lr.Get("/", handlers.Leave.ListRequests)
				lr.Get("/{id}", handlers.Leave.GetRequest)
				lr.Put("/{id}", handlers.Leave.EditRequest)
				lr.Delete("/{id}", handlers.Leave.DeleteRequest)
				lr.Post("/{id}/cancel", handlers.Leave.CancelRequest)

				lr.Group(func(ar chi.Router) {
					ar.Use(requireAdmin)
					ar.Patch("/{id}/approve", handlers.Leave.ApproveRequest)
					ar.Patch("/{id}/reject", handlers.Leave.RejectRequest)
					ar.Patch("/{id}/reopen", handlers.Leave.ReopenRequest)
				})
			})

			pr.Route("/employees", func(er chi.Router) {
				er.Get("/", handlers.Employee.ListEmployees)
				er.Get("/{id}", handlers.Employee.GetEmployee)
				er.Get("/{employeeID}/leave-requests", handlers.Leave.ListEmployeeRequests)
				er.Get("/{employeeID}/balances", handlers.Balance.GetBalances)

				er.Group(func(ar chi.Router) {
					ar.Use(requireAdmin)
					ar.Patch("/{id}/approve", handlers.Employee.ApproveEmployee)
					ar.Patch("/{id}/reject", handlers.Employee.RejectEmployee)
					ar.Patch("/{id}/status", handlers.Employee.SetStatus)
					ar.Patch("/{id}/allowances", handlers.Employee.SetAllowances)
					ar.Patch("/{id}/department", handlers.Employee.AssignDepartment)
				})
			})

			pr.Route("/departments", func(dr chi.Router) {
				dr.Get("/", handlers.Department.ListDepartments)
				dr.Get("/{id}", handlers.Department.GetDepartment)

				dr.Group(func(ar chi.Router) {
					ar.Use(requireAdmin)
					ar.Post("/", handlers.Department.CreateDepartment)
				})
			})

			pr.Group(func(ar chi.Router) {
				ar.Use(requireAdmin)
				ar.Get("/settings", handlers.Settings.ListSettings)
				ar.Put("/settings/{key}", handlers.Settings.UpdateSetting)
				ar.Get("/audit-logs", handlers.Audit.QueryTrail)
			})
		})
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := internal.PrincipalFromContext(r.Context())
		if !ok || !principal.IsAdmin() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"code": 403, "message": "admin access required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
