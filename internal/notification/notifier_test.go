package notification_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spendflow/expense-approval/internal/notification"
)

var _ = Describe("Trigger", func() {
	var (
		mockNotifier *MockNotifier
		trigger      *notification.Trigger
	)

	sample := notification.Notification{
		Kind:           notification.KindApproverTurn,
		ExpenseID:      42,
		AmountCents:    750_00,
		Description:    "Conference travel",
		RecipientID:    3,
		RecipientName:  "Sari",
		RecipientEmail: "sari@spendflow.test",
		Level:          2,
	}

	BeforeEach(func() {
		mockNotifier = NewMockNotifier()
		trigger = notification.NewTrigger(mockNotifier, slog.Default())
	})

	Describe("Fire", func() {
		It("should deliver the notification asynchronously", func() {
			trigger.Fire(context.Background(), sample)

			Eventually(mockNotifier.Received).Should(HaveLen(1))
			Expect(mockNotifier.Received()[0].Kind).To(Equal(notification.KindApproverTurn))
			Expect(mockNotifier.Received()[0].RecipientEmail).To(Equal("sari@spendflow.test"))
		})

		It("should swallow delivery failures", func() {
			mockNotifier.SetError(errDelivery)

			trigger.Fire(context.Background(), sample)

			Consistently(mockNotifier.Received).Should(BeEmpty())
		})

		It("should outlive a cancelled request context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			trigger.Fire(ctx, sample)

			Eventually(mockNotifier.Received).Should(HaveLen(1))
			Expect(mockNotifier.LastContext().Err()).To(BeNil())
		})
	})
})
