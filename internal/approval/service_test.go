package approval_test

import (
	"context"
	"log/slog"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spendflow/expense-approval/internal/approval"
	"github.com/spendflow/expense-approval/internal/core/events"
	"github.com/spendflow/expense-approval/internal/notification"
)

type eventCollector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *eventCollector) handle(ctx context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *eventCollector) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}

var _ = Describe("Approval Service", func() {
	var (
		mockStore    *MockExpenseStore
		mockUsers    *MockUserDirectory
		mockNotifier *MockNotifier
		bus          *events.EventBus
		approved     *eventCollector
		rejected     *eventCollector
		service      *approval.Service
		logger       *slog.Logger
		ctx          context.Context
	)

	ptr := func(v int64) *int64 { return &v }

	mustEncode := func(c approval.Chain) []byte {
		raw, err := c.Encode()
		Expect(err).NotTo(HaveOccurred())
		return raw
	}

	twoLevelChain := func() approval.Chain {
		return approval.Chain{
			{Level: 1, ApproverID: 2, ApproverName: "Budi", ApproverEmail: "budi@spendflow.io", Status: approval.StepStatusPending},
			{Level: 2, ApproverID: 3, ApproverName: "Sari", ApproverEmail: "sari@spendflow.io", Status: approval.StepStatusPending},
		}
	}

	BeforeEach(func() {
		mockStore = NewMockExpenseStore()
		mockUsers = NewMockUserDirectory()
		mockNotifier = NewMockNotifier()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		approved = &eventCollector{}
		rejected = &eventCollector{}
		bus.Subscribe(events.EventTypeExpenseApproved, approved.handle)
		bus.Subscribe(events.EventTypeExpenseRejected, rejected.handle)
		trigger := notification.NewTrigger(mockNotifier, logger)
		service = approval.NewService(mockStore, mockUsers, bus, trigger, logger)
		ctx = context.Background()

		mockUsers.AddUser(1, "Dewi", "dewi@spendflow.io", ptr(2))
		mockUsers.AddUser(2, "Budi", "budi@spendflow.io", ptr(3))
		mockUsers.AddUser(3, "Sari", "sari@spendflow.io", nil)
	})

	Describe("Approve", func() {
		Context("when the level-1 approver acts on a two-level chain", func() {
			BeforeEach(func() {
				mockStore.AddRecord(&approval.ExpenseRecord{
					ID: 100, UserID: 1, AmountCents: 50_000, Description: "team offsite",
					Status: approval.StatusPending, CurrentApprovalLevel: 1,
					RawChain: mustEncode(twoLevelChain()),
				})
			})

			It("should advance to level 2 without finishing", func() {
				result, err := service.Approve(ctx, 100, 2, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Final).To(BeFalse())
				Expect(result.Status).To(Equal(approval.StatusPending))
				Expect(result.NextApprover).NotTo(BeNil())
				Expect(result.NextApprover.Level).To(Equal(2))
				Expect(result.NextApprover.ApproverID).To(Equal(int64(3)))

				rec := mockStore.Record(100)
				Expect(rec.CurrentApprovalLevel).To(Equal(2))
				Expect(rec.Status).To(Equal(approval.StatusPending))

				chain, err := approval.DecodeChain(rec.RawChain)
				Expect(err).NotTo(HaveOccurred())
				Expect(chain[0].Status).To(Equal(approval.StepStatusApproved))
				Expect(*chain[0].DecidedBy).To(Equal(int64(2)))
				Expect(chain[1].Status).To(Equal(approval.StepStatusPending))
			})

			It("should not publish a completion event", func() {
				_, err := service.Approve(ctx, 100, 2, nil)
				Expect(err).NotTo(HaveOccurred())
				Consistently(approved.Events).Should(BeEmpty())
			})

			It("should notify the next approver", func() {
				_, err := service.Approve(ctx, 100, 2, nil)
				Expect(err).NotTo(HaveOccurred())
				Eventually(mockNotifier.Received).Should(HaveLen(1))
				n := mockNotifier.Received()[0]
				Expect(n.Kind).To(Equal(notification.KindApproverTurn))
				Expect(n.RecipientID).To(Equal(int64(3)))
				Expect(n.Level).To(Equal(2))
			})
		})

		Context("when the final approver signs off", func() {
			BeforeEach(func() {
				chain := twoLevelChain()
				chain[0].Status = approval.StepStatusApproved
				mockStore.AddRecord(&approval.ExpenseRecord{
					ID: 100, UserID: 1, AmountCents: 50_000, Description: "team offsite",
					Status: approval.StatusPending, CurrentApprovalLevel: 2,
					RawChain: mustEncode(chain),
				})
			})

			It("should finish the expense", func() {
				result, err := service.Approve(ctx, 100, 3, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Final).To(BeTrue())
				Expect(result.Status).To(Equal(approval.StatusApproved))
				Expect(result.NextApprover).To(BeNil())

				rec := mockStore.Record(100)
				Expect(rec.Status).To(Equal(approval.StatusApproved))
			})

			It("should publish exactly one completion event", func() {
				_, err := service.Approve(ctx, 100, 3, nil)
				Expect(err).NotTo(HaveOccurred())
				Eventually(approved.Events).Should(HaveLen(1))
				Consistently(approved.Events).Should(HaveLen(1))

				event := approved.Events()[0].(*events.ExpenseApprovedEvent)
				Expect(event.ExpenseID).To(Equal(int64(100)))
				Expect(event.AutoApprove).To(BeFalse())
			})

			It("should notify the submitter", func() {
				_, err := service.Approve(ctx, 100, 3, nil)
				Expect(err).NotTo(HaveOccurred())
				Eventually(mockNotifier.Received).Should(HaveLen(1))
				n := mockNotifier.Received()[0]
				Expect(n.Kind).To(Equal(notification.KindExpenseApproved))
				Expect(n.RecipientID).To(Equal(int64(1)))
			})
		})

		Context("when someone other than the current approver acts", func() {
			BeforeEach(func() {
				mockStore.AddRecord(&approval.ExpenseRecord{
					ID: 100, UserID: 1, AmountCents: 50_000,
					Status: approval.StatusPending, CurrentApprovalLevel: 1,
					RawChain: mustEncode(twoLevelChain()),
				})
			})

			It("should refuse the level-2 approver while level 1 is pending", func() {
				_, err := service.Approve(ctx, 100, 3, nil)
				Expect(err).To(MatchError(approval.ErrNotCurrentApprover))
			})

			It("should refuse an unrelated user", func() {
				_, err := service.Approve(ctx, 100, 99, nil)
				Expect(err).To(MatchError(approval.ErrNotCurrentApprover))
			})
		})

		Context("when two approvals race on the same level", func() {
			BeforeEach(func() {
				mockStore.AddRecord(&approval.ExpenseRecord{
					ID: 100, UserID: 1, AmountCents: 50_000,
					Status: approval.StatusPending, CurrentApprovalLevel: 1,
					RawChain: mustEncode(twoLevelChain()),
				})
				mockStore.SetDenyApply(true)
			})

			It("should surface a decision conflict for the loser", func() {
				_, err := service.Approve(ctx, 100, 2, nil)
				Expect(err).To(MatchError(approval.ErrDecisionConflict))
			})

			It("should not publish an event for the lost decision", func() {
				_, _ = service.Approve(ctx, 100, 2, nil)
				Consistently(approved.Events).Should(BeEmpty())
			})
		})

		Context("when the expense is not pending", func() {
			BeforeEach(func() {
				mockStore.AddRecord(&approval.ExpenseRecord{
					ID: 100, UserID: 1, Status: approval.StatusApproved,
					CurrentApprovalLevel: 2, RawChain: mustEncode(twoLevelChain()),
				})
			})

			It("should report the expense as not found", func() {
				_, err := service.Approve(ctx, 100, 2, nil)
				Expect(err).To(MatchError(approval.ErrExpenseNotFound))
			})
		})

		Context("when the stored chain is malformed", func() {
			BeforeEach(func() {
				mockStore.AddRecord(&approval.ExpenseRecord{
					ID: 100, UserID: 1, Status: approval.StatusPending,
					CurrentApprovalLevel: 1, RawChain: []byte(`{"not":"a chain"}`),
				})
			})

			It("should surface the corrupt chain", func() {
				_, err := service.Approve(ctx, 100, 2, nil)
				Expect(err).To(MatchError(approval.ErrChainCorrupt))
			})
		})
	})

	Describe("Reject", func() {
		BeforeEach(func() {
			mockStore.AddRecord(&approval.ExpenseRecord{
				ID: 100, UserID: 1, AmountCents: 50_000, Description: "team offsite",
				Status: approval.StatusPending, CurrentApprovalLevel: 1,
				RawChain: mustEncode(twoLevelChain()),
			})
		})

		Context("without a comment", func() {
			It("should require one", func() {
				err := service.Reject(ctx, 100, 2, "")
				Expect(err).To(MatchError(approval.ErrCommentRequired))
			})

			It("should reject whitespace-only comments", func() {
				err := service.Reject(ctx, 100, 2, "   ")
				Expect(err).To(MatchError(approval.ErrCommentRequired))
			})
		})

		Context("by the current approver with a comment", func() {
			It("should terminate the expense", func() {
				err := service.Reject(ctx, 100, 2, "not in budget")
				Expect(err).NotTo(HaveOccurred())

				rec := mockStore.Record(100)
				Expect(rec.Status).To(Equal(approval.StatusRejected))
			})

			It("should leave later steps pending in the stored chain", func() {
				err := service.Reject(ctx, 100, 2, "not in budget")
				Expect(err).NotTo(HaveOccurred())

				chain, err := approval.DecodeChain(mockStore.Record(100).RawChain)
				Expect(err).NotTo(HaveOccurred())
				Expect(chain[0].Status).To(Equal(approval.StepStatusRejected))
				Expect(*chain[0].Comments).To(Equal("not in budget"))
				Expect(chain[1].Status).To(Equal(approval.StepStatusPending))
			})

			It("should publish a rejection event, never an approval", func() {
				err := service.Reject(ctx, 100, 2, "not in budget")
				Expect(err).NotTo(HaveOccurred())
				Eventually(rejected.Events).Should(HaveLen(1))
				Consistently(approved.Events).Should(BeEmpty())
			})

			It("should notify the submitter with the reason", func() {
				err := service.Reject(ctx, 100, 2, "not in budget")
				Expect(err).NotTo(HaveOccurred())
				Eventually(mockNotifier.Received).Should(HaveLen(1))
				n := mockNotifier.Received()[0]
				Expect(n.Kind).To(Equal(notification.KindExpenseRejected))
				Expect(n.Reason).To(Equal("not in budget"))
			})
		})

		Context("by someone who is not the current approver", func() {
			It("should be refused", func() {
				err := service.Reject(ctx, 100, 3, "no")
				Expect(err).To(MatchError(approval.ErrNotCurrentApprover))
			})
		})
	})

	Describe("Rescind", func() {
		BeforeEach(func() {
			mockStore.AddRecord(&approval.ExpenseRecord{
				ID: 100, UserID: 1, AmountCents: 50_000,
				Status: approval.StatusPending, CurrentApprovalLevel: 2,
				RawChain: mustEncode(twoLevelChain()),
			})
		})

		Context("by the submitter", func() {
			It("should withdraw the expense even after partial sign-off", func() {
				err := service.Rescind(ctx, 100, 1)
				Expect(err).NotTo(HaveOccurred())

				rec := mockStore.Record(100)
				Expect(rec.Status).To(Equal(approval.StatusRejected))
			})

			It("should publish a rejection event", func() {
				err := service.Rescind(ctx, 100, 1)
				Expect(err).NotTo(HaveOccurred())
				Eventually(rejected.Events).Should(HaveLen(1))
			})
		})

		Context("by anyone else", func() {
			It("should be refused even for an approver", func() {
				err := service.Rescind(ctx, 100, 2)
				Expect(err).To(MatchError(approval.ErrNotSubmitter))
			})
		})

		Context("on a settled expense", func() {
			BeforeEach(func() {
				mockStore.AddRecord(&approval.ExpenseRecord{
					ID: 200, UserID: 1, Status: approval.StatusApproved,
					CurrentApprovalLevel: 2, RawChain: mustEncode(twoLevelChain()),
				})
			})

			It("should report the expense as not found", func() {
				err := service.Rescind(ctx, 200, 1)
				Expect(err).To(MatchError(approval.ErrExpenseNotFound))
			})
		})
	})
})
