package expense_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spendflow/expense-approval/internal/approval"
	"github.com/spendflow/expense-approval/internal/core/events"
	"github.com/spendflow/expense-approval/internal/expense"
	"github.com/spendflow/expense-approval/internal/notification"
)

type approvedCollector struct {
	mu     sync.Mutex
	events []*events.ExpenseApprovedEvent
}

func (c *approvedCollector) handle(ctx context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event.(*events.ExpenseApprovedEvent))
	return nil
}

func (c *approvedCollector) Events() []*events.ExpenseApprovedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*events.ExpenseApprovedEvent(nil), c.events...)
}

var _ = Describe("Expense Service", func() {
	var (
		mockRepo     *MockRepository
		mockBuilder  *MockChainBuilder
		mockUsers    *MockUserDirectory
		mockNotifier *MockNotifier
		collector    *approvedCollector
		service      *expense.Service
		ctx          context.Context
	)

	pendingBuild := func() *approval.BuildResult {
		ruleID := int64(10)
		return &approval.BuildResult{
			RequiresApproval: true,
			RuleID:           &ruleID,
			Chain: approval.Chain{
				{Level: 1, ApproverID: 2, ApproverName: "Budi", ApproverEmail: "budi@spendflow.io", Status: approval.StepStatusPending},
			},
		}
	}

	validDTO := func() expense.CreateExpenseDTO {
		return expense.CreateExpenseDTO{
			AmountCents: 25_000,
			Description: "client dinner",
			Category:    "meals",
			ExpenseDate: time.Now().AddDate(0, 0, -1),
		}
	}

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		mockBuilder = &MockChainBuilder{result: pendingBuild()}
		mockUsers = NewMockUserDirectory()
		mockNotifier = &MockNotifier{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(logger)
		collector = &approvedCollector{}
		bus.Subscribe(events.EventTypeExpenseApproved, collector.handle)
		trigger := notification.NewTrigger(mockNotifier, logger)
		service = expense.NewService(mockRepo, mockBuilder, mockUsers, bus, trigger, logger)
		ctx = context.Background()

		mockUsers.AddUser(1, "Dewi", "dewi@spendflow.io")
	})

	Describe("CreateExpense", func() {
		Context("when the chain builder requires approval", func() {
			It("should create a pending expense at level 1 with the chain", func() {
				exp, err := service.CreateExpense(ctx, 1, validDTO())
				Expect(err).NotTo(HaveOccurred())
				Expect(exp.Status).To(Equal(expense.StatusPending))
				Expect(exp.CurrentApprovalLevel).To(Equal(1))
				Expect(exp.ApprovalChain).To(HaveLen(1))
				Expect(*exp.ApprovalRuleID).To(Equal(int64(10)))
				Expect(exp.ApprovedAt).To(BeNil())
			})

			It("should notify the first approver", func() {
				_, err := service.CreateExpense(ctx, 1, validDTO())
				Expect(err).NotTo(HaveOccurred())
				Eventually(mockNotifier.Received).Should(HaveLen(1))
				n := mockNotifier.Received()[0]
				Expect(n.Kind).To(Equal(notification.KindApprovalRequested))
				Expect(n.RecipientID).To(Equal(int64(2)))
			})

			It("should not publish a completion event", func() {
				_, err := service.CreateExpense(ctx, 1, validDTO())
				Expect(err).NotTo(HaveOccurred())
				Consistently(collector.Events).Should(BeEmpty())
			})
		})

		Context("when no approval is required", func() {
			BeforeEach(func() {
				mockBuilder.result = &approval.BuildResult{RequiresApproval: false}
			})

			It("should create a terminal approved expense", func() {
				exp, err := service.CreateExpense(ctx, 1, validDTO())
				Expect(err).NotTo(HaveOccurred())
				Expect(exp.Status).To(Equal(expense.StatusApproved))
				Expect(exp.CurrentApprovalLevel).To(Equal(0))
				Expect(exp.ApprovalChain).To(BeEmpty())
				Expect(exp.ApprovedAt).NotTo(BeNil())
			})

			It("should publish the completion event flagged as auto-approved", func() {
				exp, err := service.CreateExpense(ctx, 1, validDTO())
				Expect(err).NotTo(HaveOccurred())
				Eventually(collector.Events).Should(HaveLen(1))
				event := collector.Events()[0]
				Expect(event.ExpenseID).To(Equal(exp.ID))
				Expect(event.AutoApprove).To(BeTrue())
			})
		})

		Context("when the payload is invalid", func() {
			It("should reject a non-positive amount", func() {
				dto := validDTO()
				dto.AmountCents = 0
				_, err := service.CreateExpense(ctx, 1, dto)
				Expect(err).To(HaveOccurred())
				Expect(mockRepo.Count()).To(BeZero())
			})

			It("should reject a future expense date", func() {
				dto := validDTO()
				dto.ExpenseDate = time.Now().Add(48 * time.Hour)
				_, err := service.CreateExpense(ctx, 1, dto)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("CheckoutCart", func() {
		cartDTO := func() expense.CheckoutCartDTO {
			return expense.CheckoutCartDTO{
				CartID: "cart-abc",
				Items: []expense.CartItemDTO{
					{Description: "laptop stand", Category: "equipment", AmountCents: 30_000, Quantity: 1},
					{Description: "usb hub", Category: "equipment", AmountCents: 10_000, Quantity: 2},
				},
			}
		}

		It("should compute the chain once from the cart total", func() {
			_, err := service.CheckoutCart(ctx, 1, cartDTO())
			Expect(err).NotTo(HaveOccurred())
			Expect(mockBuilder.calls).To(Equal(1))
			Expect(mockBuilder.lastInput.AmountCents).To(Equal(int64(50_000)))
		})

		It("should create one expense per line sharing cart id and chain", func() {
			expenses, err := service.CheckoutCart(ctx, 1, cartDTO())
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(2))

			for _, exp := range expenses {
				Expect(*exp.CartID).To(Equal("cart-abc"))
				Expect(exp.Status).To(Equal(expense.StatusPending))
				Expect(exp.ApprovalChain).To(HaveLen(1))
				Expect(*exp.OrderStatus).To(Equal(expense.OrderStatusPending))
			}
			Expect(expenses[0].AmountCents).To(Equal(int64(30_000)))
			Expect(expenses[1].AmountCents).To(Equal(int64(20_000)))
		})

		It("should notify the approver once for the whole cart", func() {
			_, err := service.CheckoutCart(ctx, 1, cartDTO())
			Expect(err).NotTo(HaveOccurred())
			Eventually(mockNotifier.Received).Should(HaveLen(1))
			Consistently(mockNotifier.Received).Should(HaveLen(1))
		})

		Context("when the cart total needs no approval", func() {
			BeforeEach(func() {
				mockBuilder.result = &approval.BuildResult{RequiresApproval: false}
			})

			It("should auto-approve every line and publish per-line events", func() {
				expenses, err := service.CheckoutCart(ctx, 1, cartDTO())
				Expect(err).NotTo(HaveOccurred())
				for _, exp := range expenses {
					Expect(exp.Status).To(Equal(expense.StatusApproved))
				}
				Eventually(collector.Events).Should(HaveLen(2))
				for _, event := range collector.Events() {
					Expect(event.AutoApprove).To(BeTrue())
					Expect(event.CartID).To(Equal("cart-abc"))
				}
			})
		})

		Context("when the cart is invalid", func() {
			It("should reject an empty cart", func() {
				dto := cartDTO()
				dto.Items = nil
				_, err := service.CheckoutCart(ctx, 1, dto)
				Expect(err).To(HaveOccurred())
			})

			It("should reject a missing cart id", func() {
				dto := cartDTO()
				dto.CartID = ""
				_, err := service.CheckoutCart(ctx, 1, dto)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("GetExpenseByID", func() {
		BeforeEach(func() {
			_, err := service.CreateExpense(ctx, 1, validDTO())
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the owner's expense", func() {
			exp, err := service.GetExpenseByID(1, 1, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(exp.UserID).To(Equal(int64(1)))
		})

		It("should hide other users' expenses from non-managers", func() {
			_, err := service.GetExpenseByID(1, 2, false)
			Expect(err).To(MatchError(expense.ErrUnauthorizedAccess))
		})

		It("should allow managers to read any expense", func() {
			exp, err := service.GetExpenseByID(1, 2, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(exp).NotTo(BeNil())
		})
	})

	Describe("DeleteExpense", func() {
		Context("with a pending expense", func() {
			BeforeEach(func() {
				_, err := service.CreateExpense(ctx, 1, validDTO())
				Expect(err).NotTo(HaveOccurred())
			})

			It("should delete for the owner", func() {
				Expect(service.DeleteExpense(1, 1)).To(Succeed())
				Expect(mockRepo.Count()).To(BeZero())
			})

			It("should refuse other users", func() {
				err := service.DeleteExpense(1, 2)
				Expect(err).To(MatchError(expense.ErrUnauthorizedAccess))
			})
		})

		Context("with an approved expense", func() {
			BeforeEach(func() {
				mockBuilder.result = &approval.BuildResult{RequiresApproval: false}
				_, err := service.CreateExpense(ctx, 1, validDTO())
				Expect(err).NotTo(HaveOccurred())
			})

			It("should refuse deletion", func() {
				err := service.DeleteExpense(1, 1)
				Expect(err).To(HaveOccurred())
				Expect(mockRepo.Count()).To(Equal(1))
			})
		})
	})
})
