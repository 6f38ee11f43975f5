package approval_test

import (
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spendflow/expense-approval/internal/approval"
)

var _ = Describe("Builder", func() {
	var (
		mockRules *MockRuleRepository
		mockUsers *MockUserDirectory
		builder   *approval.Builder
		logger    *slog.Logger
	)

	ptr := func(v int64) *int64 { return &v }

	BeforeEach(func() {
		mockRules = NewMockRuleRepository()
		mockUsers = NewMockUserDirectory()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		matcher := approval.NewMatcher(mockRules, logger)
		resolver := approval.NewResolver(mockUsers, logger)
		builder = approval.NewBuilder(matcher, resolver, logger)
	})

	Describe("BuildChain", func() {
		Context("when no rule matches", func() {
			It("should auto-approve", func() {
				result, err := builder.BuildChain(1, 500, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.RequiresApproval).To(BeFalse())
				Expect(result.Chain).To(BeEmpty())
				Expect(result.RuleID).To(BeNil())
			})
		})

		Context("when a rule matches and the hierarchy is deep enough", func() {
			BeforeEach(func() {
				mockRules.AddRule(&approval.Rule{
					ID: 10, Name: "medium", MinAmountCents: 1_000, LevelsRequired: 2, IsActive: true,
				})
				mockUsers.AddUser(1, "Dewi", "dewi@spendflow.io", ptr(2))
				mockUsers.AddUser(2, "Budi", "budi@spendflow.io", ptr(3))
				mockUsers.AddUser(3, "Sari", "sari@spendflow.io", nil)
			})

			It("should build a chain of pending steps in ascending level order", func() {
				result, err := builder.BuildChain(1, 5_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.RequiresApproval).To(BeTrue())
				Expect(result.Chain).To(HaveLen(2))
				Expect(*result.RuleID).To(Equal(int64(10)))

				Expect(result.Chain[0].Level).To(Equal(1))
				Expect(result.Chain[0].ApproverID).To(Equal(int64(2)))
				Expect(result.Chain[0].Status).To(Equal(approval.StepStatusPending))
				Expect(result.Chain[1].Level).To(Equal(2))
				Expect(result.Chain[1].ApproverID).To(Equal(int64(3)))
				Expect(result.Chain[1].Status).To(Equal(approval.StepStatusPending))
			})

			It("should produce a chain that validates", func() {
				result, err := builder.BuildChain(1, 5_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Chain.Validate()).To(Succeed())
			})
		})

		Context("when the hierarchy is too shallow for the rule", func() {
			BeforeEach(func() {
				mockRules.AddRule(&approval.Rule{
					ID: 10, Name: "large", MinAmountCents: 1_000, LevelsRequired: 3, IsActive: true,
				})
				mockUsers.AddUser(1, "Dewi", "dewi@spendflow.io", ptr(2))
				mockUsers.AddUser(2, "Budi", "budi@spendflow.io", nil)
			})

			It("should auto-approve rather than build a partial chain", func() {
				result, err := builder.BuildChain(1, 5_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.RequiresApproval).To(BeFalse())
				Expect(result.Chain).To(BeEmpty())
			})
		})

		Context("when the submitter has no manager at all", func() {
			BeforeEach(func() {
				mockRules.AddRule(&approval.Rule{
					ID: 10, Name: "any", MinAmountCents: 1, LevelsRequired: 1, IsActive: true,
				})
				mockUsers.AddUser(1, "Solo", "solo@spendflow.io", nil)
			})

			It("should auto-approve", func() {
				result, err := builder.BuildChain(1, 5_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.RequiresApproval).To(BeFalse())
			})
		})
	})
})
