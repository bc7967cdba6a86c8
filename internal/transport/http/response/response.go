package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// KeyCode 业务码写入 gin.Context，访问日志读取
const KeyCode = "bizCode"

type Resp struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Msg     string      `json:"msg"`
	Data    interface{} `json:"data"`
	Errors  []string    `json:"errors,omitempty"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Success: code == CodeOK, Code: code, Msg: msg, Data: data}
}

// OK 成功响应
func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// Invalid 校验失败：逐条列出违规项
func Invalid(msg string, items []string) Resp {
	r := Error(CodeBadRequest, msg)
	r.Errors = items
	return r
}

// JSON 统一 200 输出
func JSON(c *gin.Context, r Resp) {
	c.Set(KeyCode, r.Code)
	c.JSON(http.StatusOK, r)
}

func Abort(c *gin.Context, r Resp) {
	c.Set(KeyCode, r.Code)
	c.AbortWithStatusJSON(http.StatusOK, r)
}
