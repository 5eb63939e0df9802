package middleware

import (
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IPAllowlist rejects clients whose address is not listed. The address is
// gin's ClientIP, so forwarded headers count only from trusted proxies.
// Entries may be single addresses or CIDR prefixes.
func IPAllowlist(allowed []string, logger *zap.Logger) gin.HandlerFunc {
	var prefixes []netip.Prefix
	for _, entry := range allowed {
		if p, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			logger.Warn("Ignoring invalid allowlist entry", zap.String("entry", entry))
			continue
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if addr, err := netip.ParseAddr(clientIP); err == nil {
			addr = addr.Unmap()
			for _, p := range prefixes {
				if p.Contains(addr) {
					c.Next()
					return
				}
			}
		}

		logger.Warn("IP no autorizada", zap.String("client_ip", clientIP))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Acceso denegado: IP no permitida"})
	}
}
