package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/cloud-platform/recipe-store/internal/recipe-store/handlers"
	"github.com/cloud-platform/recipe-store/internal/recipe-store/storage"
	"github.com/cloud-platform/recipe-store/shared/config"
	"github.com/cloud-platform/recipe-store/shared/logger"
	"github.com/cloud-platform/recipe-store/shared/middleware"
	"github.com/gin-gonic/gin"
)

// Server 静态文件与文档写入服务
type Server struct {
	cfg        config.Config
	logger     logger.Logger
	engine     *gin.Engine
	handler    *handlers.DocumentHandler
	httpServer *http.Server
}

// New 创建服务实例
func New(cfg config.Config, log logger.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	info, err := os.Stat(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("静态目录不可用: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("静态目录不是目录: %s", cfg.Storage.Root)
	}

	store := storage.NewDocumentStore(cfg.Storage.DocumentFile())

	s := &Server{
		cfg:     cfg,
		logger:  log,
		handler: handlers.NewDocumentHandler(store, log),
	}
	s.engine = s.setupRoutes()
	s.httpServer = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes 按方法和路径分发
func (s *Server) setupRoutes() *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	// GET/HEAD 走静态文件服务，目录返回列表
	files := r.Group("/", middleware.CORSHeaders())
	files.StaticFS("/", gin.Dir(s.cfg.Storage.Root, true))

	r.OPTIONS("/*path", middleware.CORSHeaders(), s.handler.Preflight)
	r.PUT(s.cfg.Storage.DocumentRoute(), s.handler.SaveDocument)

	r.NoRoute(s.handler.Fallback)

	return r
}

// Handler 返回HTTP处理器，测试使用
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen 在配置的地址上监听
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		return nil, fmt.Errorf("监听 %s 失败: %w", s.cfg.Server.Address(), err)
	}
	return ln, nil
}

// Serve 处理请求直到ctx取消，然后停止接收新连接并关闭监听
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
