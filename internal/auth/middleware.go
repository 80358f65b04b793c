package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-portal/internal/domain"
	"github.com/spec-kit/staff-portal/internal/repository"
	apperrors "github.com/spec-kit/staff-portal/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	Staff       *domain.StaffAccount
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	staff  repository.StaffRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, staff repository.StaffRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, staff: staff}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if claims.Subject != domain.SubjectTypeStaff {
		return apperrors.NewUnauthorized("unknown subject")
	}

	staff, err := m.staff.GetByID(c.UserContext(), claims.SubjectID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewUnauthorized("staff not found")
		}
		return apperrors.MapError(err)
	}
	if !staff.Active {
		return apperrors.NewUnauthorized("account is deactivated")
	}

	c.Locals(principalKey, &Principal{SubjectType: claims.Subject, Staff: staff})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
