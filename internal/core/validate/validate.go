// Package validate wraps validator/v10 and renders field errors as readable items.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// 报错用 json / form 字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
	return v
}

// Struct 校验结构体 tag，返回逐条错误（nil 表示通过）
func Struct(s any) []string {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ves))
	for _, fe := range ves {
		out = append(out, Message(fe))
	}
	return out
}

func Message(fe validator.FieldError) string {
	f := fe.Field()
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", f, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", f, fe.Param(), unit)
	case "email":
		return f + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s does not match", f)
	case "datetime":
		return fmt.Sprintf("%s must match layout %s", f, fe.Param())
	}
	return f + " is invalid"
}
