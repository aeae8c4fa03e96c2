package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// SetTokenCookies stores the issued tokens as HTTP-only cookies. Cookies are
// cross-site (SameSite=None) and therefore Secure outside development.
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration, secure bool) {
	sameSite := http.SameSiteNoneMode
	if !secure {
		sameSite = http.SameSiteLaxMode
	}
	c.SetSameSite(sameSite)
	if accessToken != "" {
		c.SetCookie(AccessTokenCookie, accessToken, int(accessTTL.Seconds()), "/", "", secure, true)
	}
	if refreshToken != "" {
		c.SetCookie(RefreshTokenCookie, refreshToken, int(refreshTTL.Seconds()), "/", "", secure, true)
	}
}

// ClearTokenCookies expires both token cookies.
func ClearTokenCookies(c *gin.Context, secure bool) {
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}
