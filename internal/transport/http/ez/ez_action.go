package ez

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"complaint-desk/internal/domain"
	mdw "complaint-desk/internal/transport/http/middleware"
	resp "complaint-desk/internal/transport/http/response"
)

func init() {
	// 请求体里出现未知字段直接 400
	binding.EnableDecoderDisallowUnknownFields = true
}

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code  int
	Msg   string
	Items []string
	Err   error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // "GET" | "POST" | "PUT" | "DELETE"
	Path    string   // 例："/auth/login"、"/complaints/:id/transition"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录（检查 userId）
	Roles   []string // 限定角色（可选）
	Handler func(c *gin.Context, in *I) (O, error)
}

// ActorOf 从鉴权中间件写入的上下文构造调用者
func ActorOf(c *gin.Context) domain.Actor {
	return domain.Actor{
		UserID: c.GetString(mdw.KeyUserID),
		Role:   c.GetString(mdw.KeyRole),
		Name:   c.GetString(mdw.KeyName),
	}
}

// Bind 按 Binder 解析入参；JSON 空 body 视为 {}
func Bind[I any](c *gin.Context, b Binder, in *I) error {
	var err error
	switch b {
	case BindJSON:
		err = c.ShouldBindJSON(in)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case BindQuery:
		err = c.ShouldBindQuery(in)
	}
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return BadRequest("request body too large")
	}
	return &AErr{Code: resp.CodeBadRequest, Msg: "malformed request", Items: []string{err.Error()}, Err: err}
}

// Fail 错误 → 统一信封；未分类错误只记录不外泄
func Fail(c *gin.Context, err error) {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code >= resp.CodeServerError {
			_ = c.Error(err)
		}
		r := resp.Error(ae.Code, ae.Error())
		r.Errors = ae.Items
		resp.JSON(c, r)
		return
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.JSON(c, resp.Invalid(domain.ErrValidation.Error(), ve.Items))
		return
	}
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidType):
		resp.JSON(c, resp.Invalid(err.Error(), []string{err.Error()}))
	case errors.Is(err, domain.ErrUnauthorized):
		resp.JSON(c, resp.Error(resp.CodeUnauthorized, err.Error()))
	case errors.Is(err, domain.ErrPermissionDenied):
		resp.JSON(c, resp.Error(resp.CodeForbidden, err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		resp.JSON(c, resp.Error(resp.CodeNotFound, err.Error()))
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConflict):
		resp.JSON(c, resp.Error(resp.CodeConflict, err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		resp.JSON(c, resp.Error(resp.CodeTimeout, "timeout"))
	default:
		_ = c.Error(err)
		resp.JSON(c, resp.Error(resp.CodeServerError, "internal error"))
	}
}

func allowed(c *gin.Context, auth bool, roles []string) bool {
	if !auth {
		return true
	}
	if c.GetString(mdw.KeyUserID) == "" {
		resp.JSON(c, resp.Error(resp.CodeUnauthorized, "unauthorized"))
		return false
	}
	if len(roles) == 0 {
		return true
	}
	role := c.GetString(mdw.KeyRole)
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	resp.JSON(c, resp.Error(resp.CodeForbidden, "forbidden"))
	return false
}

// 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if !allowed(c, a.Auth, a.Roles) {
			return
		}

		// 2) 绑定入参
		var in I
		if err := Bind(c, a.Binder, &in); err != nil {
			Fail(c, err)
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		resp.JSON(c, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// Raw 非 JSON 输出（PDF 下载），鉴权与错误映射同 RegisterAction
func Raw(e EZ, method, path string, auth bool, roles []string, h func(c *gin.Context) error) {
	e.g.Handle(strings.ToUpper(method), path, func(c *gin.Context) {
		if !allowed(c, auth, roles) {
			return
		}
		if err := h(c); err != nil {
			Fail(c, err)
		}
	})
}
