package types

import "time"

// CreateDropRequest 创建 QuickDrop 的请求体.
type CreateDropRequest struct {
	// FileName 上传文件名，必填
	FileName string `json:"fileName"`
	// SizeBytes 文件大小（字节），必须在 (0, 25MiB] 之间
	SizeBytes int64 `json:"sizeBytes"`
	// ContentType 文件 MIME 类型，缺省为 application/octet-stream
	ContentType string `json:"contentType"`
}

// CreateDropResponse 创建成功后返回的上传信息.
type CreateDropResponse struct {
	// Token 分享 token，同时是后续所有操作的凭据
	Token string `json:"token"`
	// StoragePath 对象存储中的路径
	StoragePath string `json:"storagePath"`
	// UploadPath 经由服务端上传时使用的相对路径
	UploadPath string `json:"uploadPath"`
	// UploadURL 对象存储预签名直传地址，存储不支持时为空
	UploadURL string `json:"uploadUrl,omitempty"`
	// MaxSizeBytes 服务端允许的最大文件大小
	MaxSizeBytes int64 `json:"maxSizeBytes"`
}

// ActivateDropResponse 激活后的分享信息.
type ActivateDropResponse struct {
	// SharePath 分享页面路径
	SharePath string `json:"sharePath"`
	// ShareURL 配置了 server.public_url 时的完整分享地址
	ShareURL string `json:"shareUrl,omitempty"`
	// ExpiresInMs 剩余有效期（毫秒）
	ExpiresInMs int64 `json:"expiresInMs"`
	// ExpiresAt 过期时间（UTC）
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"token"`
}

// DropStatusResponse 查询 QuickDrop 状态的响应.
type DropStatusResponse struct {
	// Status 派生状态：pending / active / consumed / expired
	Status      string     `json:"status"`
	FileName    string     `json:"fileName"`
	SizeBytes   int64      `json:"sizeBytes"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	RemainingMs int64      `json:"remainingMs"`
}

// UploadDropResponse 服务端上传完成的响应.
type UploadDropResponse struct {
	Token     string `json:"token"`
	SizeBytes int64  `json:"sizeBytes"`
}

// ReapResponse 手动触发回收的结果.
type ReapResponse struct {
	Scanned  int  `json:"scanned"`
	Deleted  int  `json:"deleted"`
	Failed   int  `json:"failed"`
	Deferred int  `json:"deferred"` // 仍在传输或已被并发修改，留到下次
	Batches  int  `json:"batches"`
	Skipped  bool `json:"skipped"`
}
