// Package session keeps per-browser-session key/value data. The editor
// mirrors page data here under the keys built by NewProductKey and
// EditProductKey.
package session

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CookieName = "backoffice_session"

	newProductKey  = "new_product_data"
	editProductKey = "edit_product_data:"
)

// Store holds, per session and key, a mapping from field to raw value.
type Store interface {
	Load(ctx context.Context, sessionID, key string) (map[string][]byte, error)
	Save(ctx context.Context, sessionID, key, field string, value []byte) error
	Clear(ctx context.Context, sessionID, key string) error
}

func NewProductKey() string {
	return newProductKey
}

func EditProductKey(rangeID string) string {
	return editProductKey + rangeID
}

type idKey struct{}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// ID returns the session id carried by ctx, or "".
func ID(ctx context.Context) string {
	id, _ := ctx.Value(idKey{}).(string)
	return id
}

// Middleware issues a session cookie when the request has none and exposes
// the id through the request context.
func Middleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || id == "" {
			id = uuid.New().String()
			c.SetCookie(CookieName, id, 0, "/", "", secure, true)
		}
		c.Request = c.Request.WithContext(WithID(c.Request.Context(), id))
		c.Next()
	}
}
