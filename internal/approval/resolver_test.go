package approval_test

import (
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spendflow/expense-approval/internal/approval"
)

var _ = Describe("Resolver", func() {
	var (
		mockUsers *MockUserDirectory
		resolver  *approval.Resolver
		logger    *slog.Logger
	)

	ptr := func(v int64) *int64 { return &v }

	BeforeEach(func() {
		mockUsers = NewMockUserDirectory()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		resolver = approval.NewResolver(mockUsers, logger)
	})

	Describe("ResolveChain", func() {
		Context("when the hierarchy is deep enough", func() {
			BeforeEach(func() {
				mockUsers.AddUser(1, "Dewi", "dewi@spendflow.io", ptr(2))
				mockUsers.AddUser(2, "Budi", "budi@spendflow.io", ptr(3))
				mockUsers.AddUser(3, "Sari", "sari@spendflow.io", ptr(4))
				mockUsers.AddUser(4, "Rina", "rina@spendflow.io", nil)
			})

			It("should return one entry per level starting at the direct manager", func() {
				entries, err := resolver.ResolveChain(1, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(3))
				Expect(entries[0].Level).To(Equal(1))
				Expect(entries[0].ManagerID).To(Equal(int64(2)))
				Expect(entries[1].ManagerID).To(Equal(int64(3)))
				Expect(entries[2].ManagerID).To(Equal(int64(4)))
			})

			It("should stop at the requested depth", func() {
				entries, err := resolver.ResolveChain(1, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
				Expect(entries[0].ManagerID).To(Equal(int64(2)))
			})
		})

		Context("when the hierarchy tops out early", func() {
			BeforeEach(func() {
				mockUsers.AddUser(1, "Dewi", "dewi@spendflow.io", ptr(2))
				mockUsers.AddUser(2, "Budi", "budi@spendflow.io", nil)
			})

			It("should return the partial chain", func() {
				entries, err := resolver.ResolveChain(1, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
			})
		})

		Context("when the submitter has no manager", func() {
			BeforeEach(func() {
				mockUsers.AddUser(1, "Solo", "solo@spendflow.io", nil)
			})

			It("should return an empty chain", func() {
				entries, err := resolver.ResolveChain(1, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(BeEmpty())
			})
		})

		Context("when the manager relation contains a cycle", func() {
			BeforeEach(func() {
				mockUsers.AddUser(1, "Dewi", "dewi@spendflow.io", ptr(2))
				mockUsers.AddUser(2, "Budi", "budi@spendflow.io", ptr(3))
				mockUsers.AddUser(3, "Sari", "sari@spendflow.io", ptr(2))
			})

			It("should stop at the repeated manager instead of looping", func() {
				entries, err := resolver.ResolveChain(1, 5)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(2))
				Expect(entries[0].ManagerID).To(Equal(int64(2)))
				Expect(entries[1].ManagerID).To(Equal(int64(3)))
			})
		})

		Context("when a user is their own manager", func() {
			BeforeEach(func() {
				mockUsers.AddUser(1, "Dewi", "dewi@spendflow.io", ptr(1))
			})

			It("should return an empty chain", func() {
				entries, err := resolver.ResolveChain(1, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(BeEmpty())
			})
		})

		Context("when the directory fails", func() {
			BeforeEach(func() {
				mockUsers.SetShouldFail(true, errors.New("directory unavailable"))
			})

			It("should return the error", func() {
				entries, err := resolver.ResolveChain(1, 2)
				Expect(err).To(HaveOccurred())
				Expect(entries).To(BeNil())
			})
		})
	})
})
