// Package rule 封装 go-playground/validator，统一使用 `rule` 标签，并提供 QuickDrop 的自定义规则.
//
// 自定义规则:
//
//	filename  非空且不含控制字符与路径分隔符
//	captoken  base64url 字符集，长度 16..128，用于 capability token
package rule

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	minTokenLen = 16
	maxTokenLen = 128
)

var (
	inst *validator.Validate
	once sync.Once
)

func setup() {
	// 与 gin 绑定共用一个引擎，gin 绑定时同样走 rule 标签
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok && v != nil {
		inst = v
	} else {
		inst = validator.New(validator.WithRequiredStructEnabled())
	}

	inst.SetTagName("rule")
	inst.RegisterTagNameFunc(fieldName)

	_ = inst.RegisterValidation("filename", validFileName)
	_ = inst.RegisterValidation("captoken", validToken)
}

func engine() *validator.Validate {
	once.Do(setup)

	return inst
}

// fieldName 错误信息中优先使用 json 字段名，其次 form，再次 mapstructure.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "mapstructure"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}

		if name != "" {
			return name
		}
	}

	return f.Name
}

func validFileName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	if name == "" || name == "." || name == ".." {
		return false
	}

	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}

	return true
}

// IsToken 判断 s 是否为合法的 capability token 字符串.
func IsToken(s string) bool {
	if len(s) < minTokenLen || len(s) > maxTokenLen {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			return false
		}
	}

	return true
}

func validToken(fl validator.FieldLevel) bool {
	return IsToken(fl.Field().String())
}

// Engine 返回全局 *validator.Validate.
func Engine() *validator.Validate {
	return engine()
}

// RegisterValidation 注册自定义规则.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	return engine().RegisterValidation(tag, fn, opts...)
}

// ValidateStruct 对结构体执行完整校验，返回原始 error（可用 Messages 格式化）.
func ValidateStruct(s any) error {
	return engine().Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar(token, "captoken").
func ValidateVar(field any, tag string) error {
	return engine().Var(field, tag)
}

// ValidationErrors 字段名到可读错误信息的映射.
type ValidationErrors map[string]string

// Messages 把 validator 的错误转换成字段级的可读信息；非校验错误返回 nil.
func Messages(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe)
	}

	return out
}

// Summary 把校验错误压缩成单行，便于放进 {"error": "..."}.
func Summary(err error) string {
	msgs := Messages(err)
	if len(msgs) == 0 {
		if err == nil {
			return ""
		}

		return err.Error()
	}

	parts := make([]string, 0, len(msgs))
	for field, msg := range msgs {
		parts = append(parts, field+": "+msg)
	}

	slices.Sort(parts)

	return strings.Join(parts, "; ")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "filename":
		return "is not a valid file name"
	case "captoken":
		return "is not a valid token"
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}
