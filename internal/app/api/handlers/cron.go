package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sajulab/sajuback/internal/app/service/cronjob"
	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/response"
)

type cronTriggerBody struct {
	Timestamp string `json:"timestamp" binding:"required"`
}

func requireCronSecret(cfg *config.Config, c *gin.Context) bool {
	got := c.GetHeader("X-Cron-Secret")
	if cfg.Cron.Secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(cfg.Cron.Secret)) != 1 {
		response.Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid cron secret")
		return false
	}
	return true
}

// @Summary      Trigger the daily billing sweep
// @Description  Charges all active subscriptions due today; at most once per day
// @Tags         Cron
// @Accept       json
// @Produce      json
// @Param        X-Cron-Secret  header  string           true  "shared secret"
// @Param        request        body    cronTriggerBody  true  "trigger"
// @Success      200  {object}  cronjob.BillingReport
// @Failure      409  {object}  response.ErrorEnvelope
// @Router       /api/subscription/billing/cron [post]
func ApiCronBilling(cfg *config.Config, mgr cronjob.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireCronSecret(cfg, c) {
			return
		}
		var body cronTriggerBody
		if err := c.ShouldBindJSON(&body); err != nil {
			response.FailValidation(c, err)
			return
		}
		report, err := mgr.RunBilling(c.Request.Context())
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, report)
	}
}

// @Summary      Trigger the daily expiry sweep
// @Description  Demotes cancelled subscriptions past their billing date; at most once per day
// @Tags         Cron
// @Accept       json
// @Produce      json
// @Param        X-Cron-Secret  header  string           true  "shared secret"
// @Param        request        body    cronTriggerBody  true  "trigger"
// @Success      200  {object}  cronjob.ExpireReport
// @Failure      409  {object}  response.ErrorEnvelope
// @Router       /api/subscription/expire/cron [post]
func ApiCronExpire(cfg *config.Config, mgr cronjob.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireCronSecret(cfg, c) {
			return
		}
		var body cronTriggerBody
		if err := c.ShouldBindJSON(&body); err != nil {
			response.FailValidation(c, err)
			return
		}
		report, err := mgr.RunExpiry(c.Request.Context())
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, report)
	}
}

func RegisterCronRoutes(r gin.IRouter, cfg *config.Config, mgr cronjob.Manager) {
	r.POST("/subscription/billing/cron", ApiCronBilling(cfg, mgr))
	r.POST("/subscription/expire/cron", ApiCronExpire(cfg, mgr))
}
