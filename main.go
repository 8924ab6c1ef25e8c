package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"familyfinance/config"
	"familyfinance/database"
	"familyfinance/journal"
	"familyfinance/middleware"
	"familyfinance/realtime"
	"familyfinance/relay"
	"familyfinance/router"
	"familyfinance/service"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// @title 家庭记账 API
// @version 1.0
// @description 家庭共享记账与实时同步服务，支持家庭成员、角色、流水、预算、储蓄目标和类别管理
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const version = "v1.0.0"

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println("家庭记账", version)
		return
	}

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env 可选，变量经 FAMFIN_ 前缀进入配置
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env failed", "error", err)
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	})))

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		slog.Info("port overridden by flag", "port", port)
	}

	config.PrintConfig()

	store, err := database.Open(cfg.Database, cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	middleware.InitJWT(cfg)

	j := journal.New(cfg.Realtime.JournalSize)
	hub := realtime.NewHub(cfg.Realtime.SendBuffer)

	if cfg.AMQP.Enabled {
		rl, err := relay.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fmt.Errorf("dial amqp: %w", err)
		}
		defer rl.Close()
		hub.SetMirror(rl)
		slog.Info("mirroring family events", "exchange", cfg.AMQP.Exchange)
	}

	svc := service.New(service.Deps{
		Store:   store,
		Emitter: realtime.NewEmitter(hub, j),
		Rooms:   hub,
		Mailer:  service.NewEmailService(&cfg.Email),
		BaseURL: cfg.Server.BaseURL,
	})

	r := router.SetupRouter(cfg, router.Deps{
		Service:  svc,
		Store:    store,
		Realtime: realtime.NewServer(hub, j, middleware.UserFromRequest, svc).AllowOrigins(cfg.Realtime.AllowedOrigins...),
	})

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("family finance server started",
			"addr", cfg.Server.Port,
			"swagger", fmt.Sprintf("http://localhost%s/swagger/index.html", cfg.Server.Port),
			"ws", fmt.Sprintf("ws://localhost%s/ws", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
