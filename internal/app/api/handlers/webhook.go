package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/sajulab/sajuback/internal/app/service/account"
	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/logctx"
	"github.com/sajulab/sajuback/pkg/response"
)

const webhookTolerance = 5 * time.Minute

type clerkEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string  `json:"id"`
		FirstName      *string `json:"first_name"`
		LastName       *string `json:"last_name"`
		ImageURL       *string `json:"image_url"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

// verifyWebhookSignature checks the svix-style HMAC-SHA256 signature over
// "id.timestamp.payload". The header carries a space-separated list of
// "v1,<base64>" entries; any one matching accepts the delivery.
func verifyWebhookSignature(secret, msgID, timestamp, sigHeader string, payload []byte) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	if d := time.Since(time.Unix(ts, 0)); d > webhookTolerance || d < -webhookTolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("invalid signing secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, part := range strings.Fields(sigHeader) {
		version, sig, found := strings.Cut(part, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}

// @Summary      Auth provider webhook
// @Description  Mirrors user.created/updated/deleted events into the local user table
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  response.ErrorEnvelope
// @Router       /webhooks/clerk [post]
func ApiClerkWebhook(cfg *config.Config, base *zap.SugaredLogger, mgr account.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, base)

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "failed to read body")
			return
		}

		msgID := c.GetHeader("svix-id")
		timestamp := c.GetHeader("svix-timestamp")
		signature := c.GetHeader("svix-signature")
		if msgID == "" || timestamp == "" || signature == "" {
			response.Fail(c, http.StatusBadRequest, "WEBHOOK_VERIFICATION_FAILED", "missing webhook signature headers")
			return
		}
		if err := verifyWebhookSignature(cfg.Auth.WebhookSecret, msgID, timestamp, signature, payload); err != nil {
			log.Warnw("webhook signature rejected", "svix_id", msgID, "err", err)
			response.Fail(c, http.StatusBadRequest, "WEBHOOK_VERIFICATION_FAILED", "invalid webhook signature")
			return
		}

		var event clerkEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			response.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed event payload")
			return
		}

		ctx := c.Request.Context()
		switch event.Type {
		case "user.created":
			err = mgr.CreateUser(ctx, profileFromEvent(&event))
		case "user.updated":
			err = mgr.UpdateUser(ctx, profileFromEvent(&event))
		case "user.deleted":
			err = mgr.DeleteUser(ctx, event.Data.ID)
		default:
			log.Infow("ignoring webhook event", "type", event.Type)
		}
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, map[string]string{"received": "true"})
	}
}

func profileFromEvent(event *clerkEvent) account.Profile {
	email := ""
	if len(event.Data.EmailAddresses) > 0 {
		email = event.Data.EmailAddresses[0].EmailAddress
	}
	parts := lo.Compact([]string{
		lo.FromPtr(event.Data.FirstName),
		lo.FromPtr(event.Data.LastName),
	})
	var name *string
	if len(parts) > 0 {
		name = lo.ToPtr(strings.Join(parts, " "))
	}
	return account.Profile{
		UserID:          event.Data.ID,
		Email:           email,
		Name:            name,
		ProfileImageURL: event.Data.ImageURL,
	}
}

func RegisterWebhookRoutes(r gin.IRouter, cfg *config.Config, log *zap.SugaredLogger, mgr account.Manager) {
	r.POST("/webhooks/clerk", ApiClerkWebhook(cfg, log, mgr))
}
