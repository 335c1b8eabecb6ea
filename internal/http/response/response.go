package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ouvidoriag/ogdash2/internal/platform/apierr"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

const (
	CodeStorageUnavailable  = "storage_unavailable"
	CodeMalformedFilterSpec = "malformed_filter_spec"
)

// ErrorBody is the error shape every endpoint returns.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorBody{
		Error:   http.StatusText(status),
		Message: msg,
		Code:    code,
	})
}

// Classify maps err to an API error. Storage failures are 503 so dashboards
// can offer a retry; anything unrecognized is a 500.
func Classify(err error) *apierr.Error {
	var ae *apierr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, store.ErrUnavailable):
		return apierr.New(http.StatusServiceUnavailable, CodeStorageUnavailable, err)
	case errors.Is(err, filter.ErrMalformedFilterSpec):
		return apierr.New(http.StatusBadRequest, CodeMalformedFilterSpec, err)
	default:
		return apierr.FromError(err)
	}
}

// RespondErr writes the classified error. Internal errors do not leak their
// message.
func RespondErr(c *gin.Context, err error) {
	ae := Classify(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, apierr.CodeInternal, nil)
	}
	if err != nil {
		_ = c.Error(err)
	}
	if ae.Status >= http.StatusInternalServerError && ae.Code == apierr.CodeInternal {
		RespondError(c, ae.Status, ae.Code, errInternal)
		return
	}
	RespondError(c, ae.Status, ae.Code, ae)
}

var errInternal = errors.New("internal error")

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
