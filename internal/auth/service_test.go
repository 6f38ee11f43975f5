package auth_test

import (
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/spendflow/expense-approval/internal"
	"github.com/spendflow/expense-approval/internal/auth"
)

var _ = Describe("Auth Service", func() {
	var (
		mockRepo *MockRepository
		tokens   *auth.JWTTokenGenerator
		service  *auth.Service
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		tokens = &auth.JWTTokenGenerator{
			AccessTokenSecret:  []byte("access-secret"),
			RefreshTokenSecret: []byte("refresh-secret"),
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    24 * time.Hour,
		}
		service = auth.NewService(mockRepo, tokens, slog.Default())

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())

		mockRepo.AddUser(&auth.UserInfo{
			ID:           1,
			Email:        "dewi@spendflow.test",
			Name:         "Dewi Lestari",
			PasswordHash: string(hash),
			IsActive:     true,
			Permissions:  []string{"approve_expenses"},
		})
	})

	Describe("Authenticate", func() {
		It("should issue token pair for valid credentials", func() {
			result, err := service.Authenticate(auth.LoginDTO{
				Email:    "dewi@spendflow.test",
				Password: "password",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.AccessToken).NotTo(BeEmpty())
			Expect(result.RefreshToken).NotTo(BeEmpty())
		})

		It("should reject a wrong password", func() {
			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "dewi@spendflow.test",
				Password: "not-the-password",
			})

			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("should reject an unknown email with the same error as a bad password", func() {
			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "ghost@spendflow.test",
				Password: "password",
			})

			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("should reject a deactivated account", func() {
			hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
			Expect(err).NotTo(HaveOccurred())
			mockRepo.AddUser(&auth.UserInfo{
				ID:           2,
				Email:        "former@spendflow.test",
				PasswordHash: string(hash),
				IsActive:     false,
			})

			_, err = service.Authenticate(auth.LoginDTO{
				Email:    "former@spendflow.test",
				Password: "password",
			})

			Expect(err).To(Equal(internal.ErrUserInactive))
		})
	})

	Describe("UserFromToken", func() {
		It("should resolve the user and permissions behind a valid token", func() {
			result, err := service.Authenticate(auth.LoginDTO{
				Email:    "dewi@spendflow.test",
				Password: "password",
			})
			Expect(err).NotTo(HaveOccurred())

			user, err := service.UserFromToken(result.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(Equal(int64(1)))
			Expect(user.Email).To(Equal("dewi@spendflow.test"))
			Expect(user.Permissions).To(ContainElement("approve_expenses"))
		})

		It("should reject a malformed token", func() {
			_, err := service.UserFromToken("not-a-jwt")
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("should reject a token signed with another secret", func() {
			foreign := &auth.JWTTokenGenerator{
				AccessTokenSecret: []byte("other-secret"),
				AccessTokenTTL:    15 * time.Minute,
			}
			token, err := foreign.GenerateAccessToken(1, "dewi@spendflow.test")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.UserFromToken(token)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})
})
