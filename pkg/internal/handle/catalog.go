package handle

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/quickdrop/pkg/context"
	"github.com/yeisme/quickdrop/pkg/internal/catalog"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	"github.com/yeisme/quickdrop/pkg/middleware"
	"github.com/yeisme/quickdrop/pkg/rule"
)

// AuthorizeDownload 校验口令并返回下载地址.
//
//	@Summary		获取目录文件下载地址
//	@Description	password 可见性的文件需要口令；下载后自动删除的文件返回一次性消费地址
//	@Tags			目录文件
//	@Accept			json
//	@Produce		json
//	@Param			req	body		types.DownloadRequest	true	"下载请求"
//	@Success		200	{object}	types.DownloadResponse	"下载地址"
//	@Failure		400	{object}	map[string]string		"请求参数错误"
//	@Failure		401	{object}	map[string]string		"口令错误"
//	@Failure		404	{object}	map[string]string		"不存在"
//	@Router			/api/v1/download [post]
func (h *Handlers) AuthorizeDownload(c *gin.Context) {
	var req types.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": rule.Summary(err)})

		return
	}

	resp, err := h.Catalog.AuthorizeDownload(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		renderError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConsumeAutoDelete 消费一次性 token 并返回文件流，文件随后被删除.
//
//	@Summary		下载并删除目录文件
//	@Tags			目录文件
//	@Produce		application/octet-stream
//	@Param			token	path		string				true	"一次性 token"
//	@Success		200		{file}		file				"文件流"
//	@Failure		404		{object}	map[string]string	"token 无效"
//	@Router			/api/v1/download/consume/{token} [get]
func (h *Handlers) ConsumeAutoDelete(c *gin.Context) {
	dl, err := h.Catalog.ConsumeAutoDeleteToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		renderError(c, err)

		return
	}
	defer dl.Close()

	streamBody(c, dl, dl.FileName, dl.ContentType, dl.Size)
}

// AddFile 管理端上传目录文件.
//
//	@Summary		上传目录文件
//	@Tags			管理
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file				formData	file	true	"文件"
//	@Param			fileName			formData	string	false	"文件名，缺省使用上传文件名"
//	@Param			contentType			formData	string	false	"MIME 类型"
//	@Param			password			formData	string	false	"下载口令"
//	@Param			deleteAfterDownload	formData	bool	false	"下载后删除"
//	@Success		201					{object}	types.FileInfo		"文件信息"
//	@Failure		400					{object}	map[string]string	"请求参数错误"
//	@Router			/api/v1/admin/files [post]
func (h *Handlers) AddFile(c *gin.Context) {
	l := ctxPkg.Logger(c.Request.Context())

	var req types.AddFileRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": rule.Summary(err)})

		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})

		return
	}

	info, err := h.addFormFile(c, fh, req)
	if err != nil {
		renderError(c, err)

		return
	}

	l.Info().Str("file_id", info.ID).Str("principal", middleware.Principal(c)).Int64("size", info.SizeBytes).Msg("catalog file added")
	c.JSON(http.StatusCreated, info)
}

func (h *Handlers) addFormFile(c *gin.Context, fh *multipart.FileHeader, req types.AddFileRequest) (*types.FileInfo, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file: %w", err)
	}
	defer f.Close()

	name := strings.TrimSpace(req.FileName)
	if name == "" {
		name = fh.Filename
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = fh.Header.Get("Content-Type")
	}

	return h.Catalog.AddFile(c.Request.Context(), catalog.AddFileInput{
		FileName:            name,
		ContentType:         contentType,
		Password:            req.Password,
		DeleteAfterDownload: req.DeleteAfterDownload,
		Body:                f,
		Size:                fh.Size,
	})
}

// ListFiles 管理端列出目录文件.
//
//	@Summary		列出目录文件
//	@Tags			管理
//	@Produce		json
//	@Param			limit	query		int					false	"最多返回条数"
//	@Success		200		{object}	map[string]any		"文件列表"
//	@Router			/api/v1/admin/files [get]
func (h *Handlers) ListFiles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	files, err := h.Catalog.ListFiles(c.Request.Context(), limit)
	if err != nil {
		renderError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// IssueAutoDeleteToken 管理端为文件签发一次性下载 token.
//
//	@Summary		签发自动删除 token
//	@Tags			管理
//	@Produce		json
//	@Param			id	path		string							true	"文件 ID"
//	@Success		200	{object}	types.AutoDeleteTokenResponse	"token"
//	@Failure		404	{object}	map[string]string				"不存在"
//	@Failure		409	{object}	map[string]string				"文件未开启下载后删除"
//	@Failure		410	{object}	map[string]string				"文件已删除"
//	@Router			/api/v1/admin/files/{id}/auto-delete-token [post]
func (h *Handlers) IssueAutoDeleteToken(c *gin.Context) {
	resp, err := h.Catalog.IssueAutoDeleteToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}
