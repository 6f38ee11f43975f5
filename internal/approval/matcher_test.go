package approval_test

import (
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spendflow/expense-approval/internal/approval"
)

var _ = Describe("Matcher", func() {
	var (
		mockRepo *MockRuleRepository
		matcher  *approval.Matcher
		logger   *slog.Logger
	)

	ptr := func(v int64) *int64 { return &v }

	BeforeEach(func() {
		mockRepo = NewMockRuleRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		matcher = approval.NewMatcher(mockRepo, logger)
	})

	Describe("FindApplicableRule", func() {
		Context("when no rule matches the amount", func() {
			BeforeEach(func() {
				mockRepo.AddRule(&approval.Rule{
					ID: 1, Name: "large", MinAmountCents: 100_000, LevelsRequired: 2, IsActive: true,
				})
			})

			It("should return nil without error", func() {
				rule, err := matcher.FindApplicableRule(5_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule).To(BeNil())
			})
		})

		Context("when the amount sits on a band boundary", func() {
			BeforeEach(func() {
				mockRepo.AddRule(&approval.Rule{
					ID: 1, Name: "band", MinAmountCents: 1_000, MaxAmountCents: ptr(5_000),
					LevelsRequired: 1, IsActive: true,
				})
			})

			It("should match the inclusive minimum", func() {
				rule, err := matcher.FindApplicableRule(1_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule).NotTo(BeNil())
				Expect(rule.ID).To(Equal(int64(1)))
			})

			It("should match the inclusive maximum", func() {
				rule, err := matcher.FindApplicableRule(5_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule).NotTo(BeNil())
			})

			It("should not match above the maximum", func() {
				rule, err := matcher.FindApplicableRule(5_001, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule).To(BeNil())
			})
		})

		Context("when an open-ended rule has no maximum", func() {
			BeforeEach(func() {
				mockRepo.AddRule(&approval.Rule{
					ID: 1, Name: "open", MinAmountCents: 10_000, LevelsRequired: 3, IsActive: true,
				})
			})

			It("should match arbitrarily large amounts", func() {
				rule, err := matcher.FindApplicableRule(9_999_999, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule).NotTo(BeNil())
			})
		})

		Context("when scoped and global rules both match", func() {
			BeforeEach(func() {
				mockRepo.AddRule(&approval.Rule{
					ID: 1, Name: "global", MinAmountCents: 1_000, LevelsRequired: 1, IsActive: true,
				})
				mockRepo.AddRule(&approval.Rule{
					ID: 2, Name: "engineering", MinAmountCents: 1_000, CostCenterID: ptr(7),
					LevelsRequired: 2, IsActive: true,
				})
			})

			It("should prefer the cost-center-scoped rule", func() {
				rule, err := matcher.FindApplicableRule(2_000, ptr(7))
				Expect(err).NotTo(HaveOccurred())
				Expect(rule.ID).To(Equal(int64(2)))
			})

			It("should fall back to the global rule for other cost centers", func() {
				rule, err := matcher.FindApplicableRule(2_000, ptr(9))
				Expect(err).NotTo(HaveOccurred())
				Expect(rule.ID).To(Equal(int64(1)))
			})

			It("should use the global rule when no cost center is given", func() {
				rule, err := matcher.FindApplicableRule(2_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule.ID).To(Equal(int64(1)))
			})
		})

		Context("when same-scope rules overlap", func() {
			BeforeEach(func() {
				mockRepo.AddRule(&approval.Rule{
					ID: 1, Name: "wide", MinAmountCents: 1_000, LevelsRequired: 1, IsActive: true,
				})
				mockRepo.AddRule(&approval.Rule{
					ID: 2, Name: "tight", MinAmountCents: 50_000, LevelsRequired: 2, IsActive: true,
				})
			})

			It("should pick the rule with the highest minimum", func() {
				rule, err := matcher.FindApplicableRule(60_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule.ID).To(Equal(int64(2)))
			})
		})

		Context("when overlapping rules share the same minimum", func() {
			BeforeEach(func() {
				mockRepo.AddRule(&approval.Rule{
					ID: 5, Name: "later", MinAmountCents: 1_000, LevelsRequired: 2, IsActive: true,
				})
				mockRepo.AddRule(&approval.Rule{
					ID: 3, Name: "earlier", MinAmountCents: 1_000, LevelsRequired: 1, IsActive: true,
				})
			})

			It("should pick the lowest rule id deterministically", func() {
				rule, err := matcher.FindApplicableRule(2_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule.ID).To(Equal(int64(3)))
			})
		})

		Context("when rules are inactive", func() {
			BeforeEach(func() {
				mockRepo.AddRule(&approval.Rule{
					ID: 1, Name: "inactive", MinAmountCents: 1_000, LevelsRequired: 1, IsActive: false,
				})
			})

			It("should ignore them", func() {
				rule, err := matcher.FindApplicableRule(2_000, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(rule).To(BeNil())
			})
		})

		Context("when the repository fails", func() {
			BeforeEach(func() {
				mockRepo.SetShouldFail(true, errors.New("database error"))
			})

			It("should return the error", func() {
				rule, err := matcher.FindApplicableRule(2_000, nil)
				Expect(err).To(HaveOccurred())
				Expect(rule).To(BeNil())
			})
		})
	})
})
