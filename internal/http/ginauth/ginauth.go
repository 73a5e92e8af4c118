// Package ginauth adapts the request gate to gin.
package ginauth

import (
	"github.com/gin-gonic/gin"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	httpx "github.com/target/sessionauth/internal/http"
)

// ContextUserKey is the gin context key holding the authenticated *domainauth.User.
const ContextUserKey = "sessionauth.user"

// RequireAuth runs the gate for every gin request. Rejected requests are aborted
// with the gate's JSON error body; allowed ones carry the user both in the gin
// context and in the request context.
func RequireAuth(gate *httpx.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := gate.Decide(c.Request)
		gate.Record(c.Request, d)

		if !d.Allowed() {
			p := d.Reject()
			c.AbortWithStatusJSON(p.Code, gin.H{"error": p.Message})
			return
		}

		if d.User != nil {
			c.Set(ContextUserKey, d.User)
			c.Request = c.Request.WithContext(httpx.SetUserInContext(c.Request.Context(), d.User))
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by RequireAuth.
func CurrentUser(c *gin.Context) (*domainauth.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domainauth.User)
	return u, ok && u != nil
}
