package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cloud-platform/recipe-store/internal/recipe-store/storage"
	"github.com/cloud-platform/recipe-store/shared/logger"
	"github.com/cloud-platform/recipe-store/shared/response"
	"github.com/gin-gonic/gin"
)

var (
	errMissingContentLength = errors.New("missing content-length header")
	errReadBody             = errors.New("read request body")
)

// DocumentSaver 文档写入接口
type DocumentSaver interface {
	Save(raw []byte) (int, error)
	Path() string
}

// DocumentHandler 文档处理器
type DocumentHandler struct {
	store  DocumentSaver
	logger logger.Logger
}

// NewDocumentHandler 创建文档处理器实例
func NewDocumentHandler(store DocumentSaver, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:  store,
		logger: log,
	}
}

// SaveDocument 覆盖写入JSON文档
// @Summary 保存文档
// @Accept json
// @Produce json
// @Success 200 {object} response.Status
// @Failure 500 {object} response.Status
// @Router /data/data.json [put]
func (h *DocumentHandler) SaveDocument(c *gin.Context) {
	// 请求目标必须与路由完全一致，带查询串的视为其他路径
	if c.Request.RequestURI != c.FullPath() {
		response.NotFound(c)
		return
	}

	log := h.logger.WithContext(c)

	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithFields(map[string]interface{}{
				"kind":  "panic",
				"error": fmt.Sprint(recovered),
			}).Error("Failed to save document")
			response.DocumentFailed(c)
		}
	}()

	n, err := h.save(c.Request)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"kind":  errorKind(err),
			"error": err.Error(),
			"path":  h.store.Path(),
		}).Error("Failed to save document")
		response.DocumentFailed(c)
		return
	}

	log.WithFields(map[string]interface{}{
		"path":  h.store.Path(),
		"bytes": n,
	}).Info("Document saved")
	response.DocumentSaved(c)
}

func (h *DocumentHandler) save(r *http.Request) (int, error) {
	// 分块传输时没有Content-Length
	if r.ContentLength < 0 {
		return 0, errMissingContentLength
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errReadBody, err)
	}

	return h.store.Save(body)
}

// Preflight 跨域预检请求，空响应体
func (h *DocumentHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Fallback 未匹配路由的请求
func (h *DocumentHandler) Fallback(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodPut:
		response.NotFound(c)
	case http.MethodGet, http.MethodHead:
		c.String(http.StatusNotFound, "404 page not found")
	default:
		c.String(http.StatusNotImplemented, "Unsupported method ('%s')", c.Request.Method)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, storage.ErrInvalidDocument):
		return "invalid_json"
	case errors.Is(err, storage.ErrInvalidEncoding):
		return "invalid_utf8"
	case errors.Is(err, errMissingContentLength):
		return "missing_content_length"
	case errors.Is(err, errReadBody):
		return "read_body"
	default:
		return "write_file"
	}
}
