package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sajulab/sajuback/pkg/apperr"
)

// ErrorBody is the uniform error envelope: {error:{code,message,details?}}.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// OK writes a success body as-is with HTTP 200.
func OK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// Fail writes the error envelope with an explicit status.
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorEnvelope{Error: ErrorBody{Code: code, Message: message}})
}

// FailErr maps any error through apperr.From and writes the envelope.
func FailErr(c *gin.Context, err error) {
	e := apperr.From(err)
	c.JSON(e.Status, ErrorEnvelope{Error: ErrorBody{Code: e.Code, Message: e.Message, Details: e.Details}})
}

// FailValidation reports malformed input with the binding error text as detail.
func FailValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorEnvelope{Error: ErrorBody{
		Code:    "VALIDATION_ERROR",
		Message: "invalid request",
		Details: err.Error(),
	}})
}
