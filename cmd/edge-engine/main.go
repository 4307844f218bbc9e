package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeju-platform/edge-engine/internal/adapter/content"
	"github.com/jeju-platform/edge-engine/internal/adapter/engine"
	httpadapter "github.com/jeju-platform/edge-engine/internal/adapter/http"
	"github.com/jeju-platform/edge-engine/internal/adapter/kubernetes"
	"github.com/jeju-platform/edge-engine/internal/adapter/notify"
	"github.com/jeju-platform/edge-engine/internal/adapter/repository"
	"github.com/jeju-platform/edge-engine/internal/config"
	"github.com/jeju-platform/edge-engine/internal/gateway"
	"github.com/jeju-platform/edge-engine/internal/port"
	"github.com/jeju-platform/edge-engine/internal/registry"
	"github.com/jeju-platform/edge-engine/internal/route"
	"github.com/jeju-platform/edge-engine/internal/service"
)

func main() {
	cfg := config.Load()

	// 数据库（函数生命周期与注册表关系后端）
	db, err := repository.OpenDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open db", "error", err)
		os.Exit(1)
	}

	appStore := repository.NewAppStore(db)
	fnRepo := repository.NewFunctionRepo(db)
	verRepo := repository.NewVersionRepo(db)

	// 注册表后端探测：有集群凭据走 ConfigMap 整文档，否则关系库
	var primary port.RegistryStore = appStore
	var opts []registry.Option

	cs, _, k8sErr := kubernetes.NewClientset(cfg.KubeconfigPath)
	if k8sErr != nil {
		slog.Warn("k8s unavailable, registry uses relational store", "error", k8sErr)
	} else {
		primary = kubernetes.NewConfigMapStore(cs, cfg.RegistryNamespace, cfg.RegistryConfigMap)
		opts = append(opts, registry.WithSecondaryStore(appStore))
	}

	var notifier port.SiblingNotifier = notify.NopNotifier{}
	if cfg.InternalSyncURL != "" {
		notifier = notify.NewHTTPNotifier(cfg.InternalSyncURL)
	}

	if cfg.DevRegistryPath != "" {
		devApps, err := registry.LoadDevApps(cfg.DevRegistryPath)
		if err != nil {
			slog.Warn("dev registry load failed", "path", cfg.DevRegistryPath, "error", err)
		} else {
			opts = append(opts, registry.WithDevApps(devApps))
		}
	}

	reg := registry.New(primary, notifier, cfg.PersistRequired, cfg.SyncInterval, opts...)

	// 外部协作方
	contentClient := content.NewClient(cfg.ContentStoreURL, cfg.ContentGatewayURL, cfg.GatewayTimeout)
	engineClient := engine.NewClient(cfg.EngineURL, cfg.ProxyTimeout)

	fnSvc := service.NewFunctionService(fnRepo, verRepo, contentClient, engineClient)

	// 管理面在内层，主机名分流的请求网关在外层兜底
	mgmt := httpadapter.NewRouter(
		httpadapter.NewAppHandler(reg),
		httpadapter.NewFunctionHandler(fnSvc, cfg.ProxyTimeout),
		cfg.APIToken,
	)
	rules := route.NewHostRules(cfg.RootDomain, cfg.JNSInfix, cfg.NetworkName, cfg.ReservedNames, cfg.ReservedNetNames)
	edge := gateway.New(
		rules,
		reg,
		fnSvc,
		contentClient,
		cfg.FunctionGateway,
		cfg.DevCDNURL,
		cfg.ProxyTimeout,
		cfg.GatewayTimeout,
		mgmt,
	)

	reg.Start()
	defer reg.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: edge,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "registry_store", primary.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}
