package server

import (
	"strings"

	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	obscontext "github.com/cablebill/cablebill/internal/observability/context"
	"github.com/gin-gonic/gin"
)

const contextPrincipalKey = "principal"

// AuthRequired resolves the bearer token to the acting user.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), "user", principal.UserID.String())
		ctx = obscontext.WithClient(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPrincipalKey, *principal)
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), string(principal.Role), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func principalFromContext(c *gin.Context) (authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return authdomain.Principal{}, false
	}
	principal, ok := value.(authdomain.Principal)
	return principal, ok
}
