package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"visualeyes/internal/core/apperror"
	appctx "visualeyes/internal/core/context"
	"visualeyes/internal/domain/identity"
)

// TokenCookie is the HTTP-only cookie carrying the access token.
const TokenCookie = "token"

// subjectKey stores the authenticated subject in the gin context.
const subjectKey = "auth_subject"

// TokenVerifier verifies an access token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString, expectedKind string) (*identity.Claims, error)
}

// Auth middleware validates the access token from the Authorization
// header or the token cookie and populates the principal context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			_ = c.Error(apperror.NewInvalidToken("missing authentication token"))
			c.Abort()
			return
		}

		claims, err := verifier.Verify(tokenString, identity.TokenKindAccess)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		sub, err := claims.AuthzSubject()
		if err != nil {
			_ = c.Error(apperror.NewInvalidToken("malformed token subject"))
			c.Abort()
			return
		}

		ctx := appctx.WithPrincipal(c.Request.Context(), &appctx.PrincipalContext{
			PrincipalID: sub.ID.String(),
			RoleTier:    string(sub.Tier),
			AccountKind: string(sub.Kind),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Set(subjectKey, sub)

		c.Next()
	}
}

// Subject returns the authenticated subject stored by Auth.
func Subject(c *gin.Context) (identity.Subject, bool) {
	v, exists := c.Get(subjectKey)
	if !exists {
		return identity.Subject{}, false
	}
	sub, ok := v.(identity.Subject)
	return sub, ok
}

// EmployeeOnly rejects customer principals. Placed after Auth on
// routes whose surface belongs to the employee side of the API.
func EmployeeOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, ok := Subject(c)
		if !ok || sub.Kind != identity.AccountEmployee {
			_ = c.Error(apperror.NewForbidden("employee account required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	cookie, err := c.Cookie(TokenCookie)
	if err != nil {
		return ""
	}
	return cookie
}
