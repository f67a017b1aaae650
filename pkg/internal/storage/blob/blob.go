// Package blob 定义 QuickDrop 与目录文件使用的对象存储抽象.
//
// Store 只关心路径寻址的 put / open / stat / delete 四个操作；
// 删除不存在的对象不是错误，因此回收流程可以并发、重复执行.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound 对象不存在.
var ErrNotFound = errors.New("blob: object not found")

// DefaultContentType 未知类型时使用的 MIME 类型.
const DefaultContentType = "application/octet-stream"

// Meta 对象元数据.
type Meta struct {
	ContentType string
	Size        int64
}

// Store 对象存储接口.
type Store interface {
	// Put 写入对象，size 未知时传 -1.
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	// Open 打开对象读取流，调用方负责关闭.
	Open(ctx context.Context, path string) (io.ReadCloser, Meta, error)
	// Stat 读取对象元数据.
	Stat(ctx context.Context, path string) (Meta, error)
	// Delete 删除对象，对象不存在时返回 nil.
	Delete(ctx context.Context, path string) error
}

// Presigner 支持生成预签名地址的存储.
type Presigner interface {
	PresignPut(ctx context.Context, path string, expiry time.Duration) (string, error)
	PresignGet(ctx context.Context, path, fileName string, expiry time.Duration) (string, error)
}
