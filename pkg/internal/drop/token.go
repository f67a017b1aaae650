package drop

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yeisme/quickdrop/pkg/rule"
)

const (
	// DefaultTokenBytes 32 字节随机数，base64url 编码后 43 个字符.
	DefaultTokenBytes = 32
)

// TokenGenerator 生成不可预测的 token.
type TokenGenerator interface {
	NewToken() (string, error)
}

// RandomTokens 基于 crypto/rand 的 token 生成器.
type RandomTokens struct {
	Bytes int
}

func (g RandomTokens) NewToken() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = DefaultTokenBytes
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidToken 判断 token 是否为合法的 base64url 字符串，非法 token 直接按不存在处理.
func ValidToken(token string) bool {
	return rule.IsToken(token)
}

// StoragePath 返回 token 对应的对象路径 quickdrop/{token}/{safeFileName}.
func StoragePath(token, fileName string) string {
	return "quickdrop/" + token + "/" + SafeFileName(fileName)
}

// SafeFileName 把路径分隔符和控制字符替换为下划线，空名称使用 "file".
func SafeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}

	var b strings.Builder

	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteByte('_')
		case r < 0x20 || r == 0x7f || r == utf8.RuneError:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
