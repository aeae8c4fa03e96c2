package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Sanitize trims query parameter values and strips NUL bytes from them.
func Sanitize() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		changed := false
		for key, values := range q {
			for i, v := range values {
				clean := sanitizeValue(v)
				if clean != v {
					values[i] = clean
					changed = true
				}
			}
			q[key] = values
		}
		if changed {
			c.Request.URL.RawQuery = q.Encode()
		}

		for i, p := range c.Params {
			c.Params[i].Value = sanitizeValue(p.Value)
		}
		c.Next()
	}
}

func sanitizeValue(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, "\x00", ""))
}
