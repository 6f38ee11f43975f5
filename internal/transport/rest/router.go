package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/spendflow/expense-approval/internal/approval"
	"github.com/spendflow/expense-approval/internal/auth"
	"github.com/spendflow/expense-approval/internal/expense"
	"github.com/spendflow/expense-approval/internal/marketplace"
	"github.com/spendflow/expense-approval/internal/rule"
	"github.com/spendflow/expense-approval/internal/transport/middleware"
	"github.com/spendflow/expense-approval/internal/transport/swagger"
	"github.com/spendflow/expense-approval/internal/user"
)

// Permission names granted through the user_permissions table.
const (
	PermApproveExpenses = "approve_expenses"
	PermViewAllExpenses = "view_all_expenses"
	PermManageRules     = "manage_approval_rules"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	expenseHandler *expense.Handler,
	approvalHandler *approval.Handler,
	ruleHandler *rule.Handler,
	callbackHandler *marketplace.CallbackHandler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if callbackHandler != nil {
			r.Post("/marketplace/callback", callbackHandler.HandleOrderCallback)
		}

		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
			})

			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				if userHandler != nil {
					pr.Get("/users/me", userHandler.GetCurrentUser)
				}

				if expenseHandler != nil {
					pr.Route("/expenses", func(er chi.Router) {
						er.Post("/", expenseHandler.CreateExpense)
						er.Get("/", expenseHandler.GetUserExpenses)
						er.Post("/cart/checkout", expenseHandler.CheckoutCart)
						er.Get("/{id}", expenseHandler.GetExpense)
						er.Delete("/{id}", expenseHandler.DeleteExpense)

						er.Group(func(mr chi.Router) {
							mr.Use(middleware.RequirePermissions(PermViewAllExpenses))
							mr.Get("/all", expenseHandler.GetAllExpenses)
						})

						if approvalHandler != nil {
							er.Post("/{id}/rescind", approvalHandler.Rescind)

							er.Group(func(mr chi.Router) {
								mr.Use(middleware.RequirePermissions(PermApproveExpenses))
								mr.Post("/{id}/approve", approvalHandler.Approve)
								mr.Post("/{id}/reject", approvalHandler.Reject)
							})
						}
					})
				}

				if approvalHandler != nil {
					pr.Get("/approval/preview", approvalHandler.Preview)
				}

				if ruleHandler != nil {
					pr.Route("/approval-rules", func(rr chi.Router) {
						rr.Use(middleware.RequirePermissions(PermManageRules))
						rr.Get("/", ruleHandler.ListRules)
						rr.Post("/", ruleHandler.CreateRule)
						rr.Get("/{id}", ruleHandler.GetRule)
						rr.Patch("/{id}", ruleHandler.UpdateRule)
						rr.Delete("/{id}", ruleHandler.DeleteRule)
					})
				}
			})
		}
	})
}
