package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staff-portal/internal/domain"
	"github.com/spec-kit/staff-portal/internal/repository"
	apperrors "github.com/spec-kit/staff-portal/pkg/util/errorutil"
)

type stubStaffRepo struct {
	repository.StaffRepository
	accounts map[string]*domain.StaffAccount
}

func (s stubStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffAccount, error) {
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func newProtectedApp(tm *TokenManager, repo repository.StaffRepository, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tm, repo)
	handlers := append([]fiber.Handler{mw.Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Staff.ID)
	})
	app.Get("/me", handlers...)
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	active := &domain.StaffAccount{ID: "a", Active: true, Permissions: domain.DefaultPermissions(domain.StaffRoleSupport)}
	admin := &domain.StaffAccount{ID: "b", Active: true, Role: domain.StaffRoleAdmin, Permissions: domain.DefaultPermissions(domain.StaffRoleAdmin)}
	inactive := &domain.StaffAccount{ID: "c"}
	repo := stubStaffRepo{accounts: map[string]*domain.StaffAccount{"a": active, "b": admin, "c": inactive}}
	app := newProtectedApp(tm, repo, RequirePermission(domain.PermissionManageStaff))

	tokenFor := func(s *domain.StaffAccount) string {
		tok, _, err := tm.GenerateToken(s)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		return tok
	}
	ghost, _, _ := tm.GenerateToken(&domain.StaffAccount{ID: "ghost"})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"unknown staff", "Bearer " + ghost, http.StatusUnauthorized},
		{"inactive staff", "Bearer " + tokenFor(inactive), http.StatusUnauthorized},
		{"missing permission", "Bearer " + tokenFor(active), http.StatusForbidden},
		{"admin", "Bearer " + tokenFor(admin), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, int(time.Second/time.Millisecond))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}
