package model

import "time"

// Visibility 目录文件的访问方式.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPassword Visibility = "password"
)

// File 目录文件记录，ID 使用 ULID.
type File struct {
	ID                  string     `gorm:"primaryKey;size:26"   json:"id"`
	FileName            string     `gorm:"size:255"             json:"file_name"`
	ContentType         string     `gorm:"size:255"             json:"content_type"`
	SizeBytes           int64      `                            json:"size_bytes"`
	StoragePath         string     `gorm:"size:512;uniqueIndex" json:"storage_path"`
	Visibility          Visibility `gorm:"size:16"              json:"visibility"`
	PasswordHash        string     `gorm:"size:128"             json:"-"`
	PasswordSalt        string     `gorm:"size:64"              json:"-"`
	DeleteAfterDownload bool       `                            json:"delete_after_download"`
	// 自动删除 token 的 secret 部分，线上形式为 {id}.{secret}
	AutoDeleteToken      *string    `gorm:"size:160;uniqueIndex" json:"-"`
	AutoDeleteIssuedAt   *time.Time `                            json:"auto_delete_issued_at,omitempty"`
	AutoDeleteConsumedAt *time.Time `                            json:"auto_delete_consumed_at,omitempty"`
	// 显式的删除时间，记录保留用于区分 gone 与 not found
	DeletedAt *time.Time `gorm:"index"   json:"deleted_at,omitempty"`
	CreatedAt time.Time  `               json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
	UpdatedBy string     `gorm:"size:64" json:"updated_by,omitempty"`
}

func (File) TableName() string {
	return "quickdrop_files"
}
