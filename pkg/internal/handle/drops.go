package handle

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/quickdrop/pkg/context"
	"github.com/yeisme/quickdrop/pkg/internal/drop"
	"github.com/yeisme/quickdrop/pkg/internal/ratelimit"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

// CreateDrop 创建 QuickDrop.
//
//	@Summary		创建 QuickDrop
//	@Description	登记一个待上传的单次分享，返回 token 与上传地址；同一来源每分钟最多创建 5 个
//	@Tags			QuickDrop
//	@Accept			json
//	@Produce		json
//	@Param			req	body		types.CreateDropRequest		true	"文件信息"
//	@Success		201	{object}	types.CreateDropResponse	"上传信息"
//	@Failure		400	{object}	map[string]string			"请求参数错误"
//	@Failure		429	{object}	map[string]string			"创建过于频繁"
//	@Failure		500	{object}	map[string]string			"服务器内部错误"
//	@Router			/api/v1/drops [post]
func (h *Handlers) CreateDrop(c *gin.Context) {
	var req types.CreateDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctxPkg.Logger(c.Request.Context()).Warn().Err(err).Msg("invalid create drop body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	resp, err := h.Drops.Create(c.Request.Context(), drop.CreateRequest{
		FileName:    req.FileName,
		SizeBytes:   req.SizeBytes,
		ContentType: req.ContentType,
		Principal:   principal(c),
	})
	if err != nil {
		renderError(c, err)

		return
	}

	c.JSON(http.StatusCreated, resp)
}

// UploadDrop 经由服务端写入负载.
//
//	@Summary		上传 QuickDrop 负载
//	@Description	请求体为原始文件内容，长度不得超过创建时声明的大小
//	@Tags			QuickDrop
//	@Accept			application/octet-stream
//	@Produce		json
//	@Param			token	path		string						true	"分享 token"
//	@Success		200		{object}	types.UploadDropResponse	"上传结果"
//	@Failure		400		{object}	map[string]string			"大小不符"
//	@Failure		404		{object}	map[string]string			"不存在"
//	@Failure		409		{object}	map[string]string			"状态不允许上传"
//	@Router			/api/v1/drops/{token}/payload [put]
func (h *Handlers) UploadDrop(c *gin.Context) {
	size := c.Request.ContentLength
	if size < 0 {
		c.JSON(http.StatusLengthRequired, gin.H{"error": "Content-Length required"})

		return
	}

	resp, err := h.Drops.Upload(c.Request.Context(), c.Param("token"), c.Request.Body, size)
	if err != nil {
		renderError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ActivateDrop 激活 QuickDrop，开始 60 秒有效期.
//
//	@Summary		激活 QuickDrop
//	@Tags			QuickDrop
//	@Produce		json
//	@Param			token	path		string						true	"分享 token"
//	@Success		200		{object}	types.ActivateDropResponse	"分享信息"
//	@Failure		404		{object}	map[string]string			"不存在"
//	@Failure		409		{object}	map[string]string			"状态冲突"
//	@Router			/api/v1/drops/{token} [patch]
func (h *Handlers) ActivateDrop(c *gin.Context) {
	resp, err := h.Drops.Activate(c.Request.Context(), c.Param("token"))
	if err != nil {
		renderError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// DropStatus 查询 QuickDrop 状态，不改变状态.
//
//	@Summary		查询 QuickDrop 状态
//	@Tags			QuickDrop
//	@Produce		json
//	@Param			token	path		string						true	"分享 token"
//	@Success		200		{object}	types.DropStatusResponse	"状态"
//	@Failure		404		{object}	map[string]string			"不存在"
//	@Router			/api/v1/drops/{token} [get]
func (h *Handlers) DropStatus(c *gin.Context) {
	resp, err := h.Drops.Status(c.Request.Context(), c.Param("token"))
	if err != nil {
		renderError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConsumeDrop 消费 QuickDrop 并返回文件流，成功后分享立即失效.
//
//	@Summary		下载并销毁 QuickDrop
//	@Tags			QuickDrop
//	@Produce		application/octet-stream
//	@Param			token	path		string				true	"分享 token"
//	@Success		200		{file}		file				"文件流"
//	@Failure		404		{object}	map[string]string	"不存在"
//	@Failure		409		{object}	map[string]string	"不可用"
//	@Failure		410		{object}	map[string]string	"已过期或已被下载"
//	@Router			/api/v1/drops/{token} [post]
func (h *Handlers) ConsumeDrop(c *gin.Context) {
	dl, err := h.Drops.Consume(c.Request.Context(), c.Param("token"))
	if err != nil {
		renderError(c, err)

		return
	}
	defer dl.Close()

	streamBody(c, dl, dl.FileName, dl.ContentType, dl.Size)
}

// RunReaper 立即执行一轮回收.
//
//	@Summary		手动回收
//	@Tags			管理
//	@Produce		json
//	@Success		200	{object}	types.ReapResponse	"回收结果"
//	@Router			/api/v1/admin/reaper/run [post]
func (h *Handlers) RunReaper(c *gin.Context) {
	res, err := h.Reaper.RunOnce(c.Request.Context())
	if err != nil {
		renderError(c, err)

		return
	}

	c.JSON(http.StatusOK, res)
}

func principal(c *gin.Context) string {
	if p := ratelimit.Principal(c.Request.Header); p != ratelimit.UnknownPrincipal {
		return p
	}

	if ip := strings.TrimSpace(c.ClientIP()); ip != "" {
		return ip
	}

	return ratelimit.UnknownPrincipal
}
