package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/medcore/records-api/pkg/errors"
)

// ErrorBody is the JSON shape every failed request returns. Reason is
// only set for authorization failures ("not_owner"), so clients can
// tell a denied record apart from a missing one.
type ErrorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// RespondError writes the HTTP response for err. Internal errors are
// logged with the acting physician and target, and the body carries no
// detail beyond a generic message.
func RespondError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}

	if appErr.Code == apperrors.ErrInternal {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("internal error")
	}

	c.JSON(appErr.StatusCode(), ErrorBody{
		Error:  appErr.Message,
		Reason: appErr.Reason,
	})
}

// RespondBindingError maps a gin binding failure to a 400.
func RespondBindingError(c *gin.Context, err error) {
	RespondError(c, apperrors.Validation("invalid request body", err))
}
