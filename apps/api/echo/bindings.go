package echoapi

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

// pathParam returns the decoded value of the path parameter `name`.
// The router matches on the escaped path when the request has one, eg. for "%2F".
func pathParam(ctx echo.Context, name string) string {
	val := ctx.Param(name)
	if ctx.Request().URL.RawPath == "" {
		return val
	}
	if unescaped, err := url.PathUnescape(val); err == nil {
		return unescaped
	}
	return val
}

func pathParamID(ctx echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
