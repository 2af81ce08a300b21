package response

import "github.com/gin-gonic/gin"

const (
	CodeBadRequest         = 40000
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeUpstreamAuth       = 40102
	CodeNotFound           = 40400
	CodeUserNotFound       = 40401
	CodeEmailExists        = 40900
	CodeInternalServer     = 50000
	CodeMisconfigured      = 50001
	CodeStorage            = 50002
	CodeUpstream           = 50200
)

type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func JSON(c *gin.Context, httpStatus int, data interface{}) {
	c.JSON(httpStatus, data)
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, ErrorBody{
		Error: message,
		Code:  code,
	})
}
