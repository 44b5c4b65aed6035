package handlers

import (
	"github.com/gin-gonic/gin"

	mw "github.com/sajulab/sajuback/internal/app/api/middleware"
	"github.com/sajulab/sajuback/internal/app/service/subscription"
	"github.com/sajulab/sajuback/pkg/response"
)

type confirmBillingBody struct {
	AuthKey     string `json:"authKey" binding:"required"`
	CustomerKey string `json:"customerKey" binding:"required"`
}

// @Summary      Subscription and quota status
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  subscription.Info
// @Router       /api/subscription [get]
func ApiSubscriptionInfo(mgr subscription.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := mgr.GetInfo(c.Request.Context(), mw.UserID(c))
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, info)
	}
}

// @Summary      Confirm billing authorization
// @Description  Exchanges the widget authKey for a billing key and activates the subscription
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request  body  confirmBillingBody  true  "authorization"
// @Success      200  {object}  subscription.ConfirmResult
// @Failure      400  {object}  response.ErrorEnvelope
// @Router       /api/subscription/billing/confirm [post]
func ApiSubscriptionConfirm(mgr subscription.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body confirmBillingBody
		if err := c.ShouldBindJSON(&body); err != nil {
			response.FailValidation(c, err)
			return
		}
		res, err := mgr.ConfirmBilling(c.Request.Context(), mw.UserID(c), body.CustomerKey, body.AuthKey)
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, res)
	}
}

// @Summary      Cancel subscription
// @Description  Keeps access until the paid period ends; billing keys are removed
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  subscription.CancelResult
// @Failure      404  {object}  response.ErrorEnvelope
// @Router       /api/subscription/cancel [post]
func ApiSubscriptionCancel(mgr subscription.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := mgr.Cancel(c.Request.Context(), mw.UserID(c))
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, res)
	}
}

// @Summary      Reactivate a cancelled subscription
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  subscription.ReactivateResult
// @Failure      400  {object}  response.ErrorEnvelope
// @Router       /api/subscription/reactivate [post]
func ApiSubscriptionReactivate(mgr subscription.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := mgr.Reactivate(c.Request.Context(), mw.UserID(c))
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, res)
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, mgr subscription.Manager) {
	r.GET("/subscription", ApiSubscriptionInfo(mgr))
	r.POST("/subscription/billing/confirm", ApiSubscriptionConfirm(mgr))
	r.POST("/subscription/cancel", ApiSubscriptionCancel(mgr))
	r.POST("/subscription/reactivate", ApiSubscriptionReactivate(mgr))
}
