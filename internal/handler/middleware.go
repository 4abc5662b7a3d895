package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// 上游网关完成鉴权后写入的请求头
const (
	HeaderOrgID  = "X-Org-ID"
	HeaderRole   = "X-Role"
	HeaderUserID = "X-User-ID"

	RoleAdmin = "admin"
)

// CORS 允许跨域
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Org-ID, X-Role, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequireOrg 读操作前置条件：必须属于某个组织
func RequireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderOrgID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少组织信息"})
			return
		}
		c.Next()
	}
}

// RequireAdmin 写操作前置条件：组织管理员
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderRole) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "需要管理员权限"})
			return
		}
		c.Next()
	}
}

// RateLimit 全局令牌桶；limiter 为 nil 时不限流
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁"})
			return
		}
		c.Next()
	}
}
