package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	errPostForbidden = "POST requests are only allowed from localhost"
	errInvalidToken  = "invalid or expired token"
)

// postGuard enforces post_localhost_only: writes from non-loopback clients
// are refused unless they carry a valid bearer token.
func (h *Handler) postGuard(c *gin.Context) {
	if !h.cfg.PostLocalhostOnly || isLoopback(c.RemoteIP()) {
		c.Next()
		return
	}

	token, ok := bearerToken(c.GetHeader("Authorization"))
	auth := h.services.Authorization
	if !ok || auth == nil || !auth.Enabled() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errPostForbidden})
		return
	}

	subject, err := auth.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("post_token_rejected", "remote", c.RemoteIP(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errInvalidToken})
		return
	}

	c.Set("subject", subject)
	c.Next()
}

func isLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
