package types

import "time"

// DownloadRequest 请求下载目录文件，password 可见性的文件需要提供密码.
type DownloadRequest struct {
	ID       string `json:"id"       rule:"required,max=64"`
	Password string `json:"password" rule:"max=1024"`
}

// DownloadResponse 下载地址.
type DownloadResponse struct {
	// DownloadURL 自动删除文件为一次性消费地址，其余为预签名地址
	DownloadURL string `json:"downloadUrl"`
}

// AddFileRequest 管理端上传文件的表单参数.
type AddFileRequest struct {
	FileName            string `form:"fileName"            json:"fileName"            rule:"omitempty,max=255,filename"`
	ContentType         string `form:"contentType"         json:"contentType"         rule:"omitempty,max=255"`
	Password            string `form:"password"            json:"password"            rule:"omitempty,max=1024"`
	DeleteAfterDownload bool   `form:"deleteAfterDownload" json:"deleteAfterDownload"`
}

// FileInfo 目录文件的公开信息.
type FileInfo struct {
	ID                  string     `json:"id"`
	FileName            string     `json:"fileName"`
	ContentType         string     `json:"contentType"`
	SizeBytes           int64      `json:"sizeBytes"`
	Visibility          string     `json:"visibility"`
	DeleteAfterDownload bool       `json:"deleteAfterDownload"`
	CreatedAt           time.Time  `json:"createdAt"`
	DeletedAt           *time.Time `json:"deletedAt,omitempty"`
}

// AutoDeleteTokenResponse 签发的一次性下载 token.
type AutoDeleteTokenResponse struct {
	Token       string    `json:"token"`
	DownloadURL string    `json:"downloadUrl"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
