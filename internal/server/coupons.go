package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	coupondomain "github.com/smallbiznis/hrledger/internal/coupon/domain"
)

// ValidateCoupon previews a code for the caller. It never consumes a use.
func (s *Server) ValidateCoupon(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		AbortWithError(c, newValidationError("code", "code is required"))
		return
	}

	result, err := s.couponSvc.Validate(c.Request.Context(), user.ID, code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListCoupons(c *gin.Context) {
	activeOnly := false
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("active", "active must be a boolean"))
			return
		}
		activeOnly = parsed
	}

	coupons, err := s.couponSvc.List(c.Request.Context(), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": coupons})
}

func (s *Server) CreateCoupon(c *gin.Context) {
	var req coupondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	coupon, err := s.couponSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.auditAdmin(c, "coupon.created", "coupon", coupon.ID.String(), map[string]any{
		"code":           coupon.Code,
		"discount_type":  string(coupon.DiscountType),
		"discount_value": coupon.DiscountValue,
	})

	c.JSON(http.StatusCreated, gin.H{"data": coupon})
}

func (s *Server) DeactivateCoupon(c *gin.Context) {
	coupon, err := s.couponSvc.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.auditAdmin(c, "coupon.deactivated", "coupon", coupon.ID.String(), map[string]any{"code": coupon.Code})

	c.JSON(http.StatusOK, gin.H{"data": coupon})
}
