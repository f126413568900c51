// Package core contains the shared response writer for the HTTP layer.
package core

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/pkg/errorx"
	"github.com/clinicore/clinicore/pkg/logger"
)

// ErrResponse is the JSON body returned for failed requests.
type ErrResponse struct {
	// Code is the registered business error code.
	Code int `json:"code"`
	// Message is the human-readable error detail.
	Message string `json:"message"`
	// Reference is an optional documentation link.
	Reference string `json:"reference,omitempty"`
}

// WriteResponse writes either an error response (resolved through the errorx
// registry) or a success payload.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		coder := errorx.ParseCoder(err)
		logger.Warn("request failed: code=%d, path=%s, err=%v", coder.Code(), c.FullPath(), err)
		c.JSON(coder.HTTPStatus(), ErrResponse{
			Code:      coder.Code(),
			Message:   err.Error(),
			Reference: coder.Reference(),
		})
		return
	}

	c.JSON(http.StatusOK, data)
}
