// Package catalog 管理目录文件的受控下载：口令校验和"下载后自动删除"的一次性 token.
//
// 自动删除 token 在线上的形式为 {fileId}.{secret}，记录中只保存 secret.
// 消费 token 的所有失败在 HTTP 层都表现为 404，调用方无法借此探测文件状态.
package catalog

import (
	crand "crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/queue"
)

// UpdatedByAutoDelete 自动删除时写入 updatedBy 的值.
const UpdatedByAutoDelete = "download:auto-delete"

const (
	tokenSeparator = "."
	secretBytes    = 24
	removeTimeout  = 30 * time.Second
)

// Service 目录文件服务.
type Service struct {
	store         Store
	blobs         blob.Store
	cfg           configs.CatalogConfig
	now           func() time.Time
	events        *queue.Emitter
	presignExpiry time.Duration
	tracer        trace.Tracer

	entropyMu sync.Mutex
	entropy   io.Reader
}

// Option 服务选项.
type Option func(*Service)

func WithConfig(cfg configs.CatalogConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithEvents(em *queue.Emitter) Option {
	return func(s *Service) { s.events = em }
}

// WithPresignExpiry 设置非自动删除文件的预签名下载地址有效期.
func WithPresignExpiry(d time.Duration) Option {
	return func(s *Service) { s.presignExpiry = d }
}

// DefaultConfig 返回内置默认值构成的配置.
func DefaultConfig() configs.CatalogConfig {
	return configs.CatalogConfig{
		AutoDeleteTTL:  configs.DefaultAutoDeleteTTL,
		PasswordIters:  configs.DefaultPasswordIters,
		ConsumePath:    "/api/v1/download/consume/",
		MaxUploadBytes: 512 * 1024 * 1024,
	}
}

// NewService 创建目录服务.
func NewService(store Store, blobs blob.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		blobs:         blobs,
		cfg:           DefaultConfig(),
		now:           func() time.Time { return time.Now().UTC() },
		presignExpiry: 15 * time.Minute,
		tracer:        otel.Tracer("quickdrop/catalog"),
		entropy:       ulid.Monotonic(crand.Reader, 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) newID(t time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func newSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := crand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FormatToken 拼接线上 token.
func FormatToken(fileID, secret string) string {
	return fileID + tokenSeparator + secret
}

// ParseToken 拆分 {fileId}.{secret}，任一部分为空时 ok 为 false.
func ParseToken(raw string) (fileID, secret string, ok bool) {
	fileID, secret, found := strings.Cut(raw, tokenSeparator)
	if !found || fileID == "" || secret == "" || strings.Contains(secret, tokenSeparator) {
		return "", "", false
	}

	return fileID, secret, true
}

// StoragePath 目录文件的对象路径 files/{id}/{safeFileName}.
func StoragePath(id, fileName string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == ".." {
		name = id + ".bin"
	}

	return "files/" + id + "/" + name
}
