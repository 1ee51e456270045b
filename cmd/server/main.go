// Command cryptachat-server runs the encrypted-message relay over HTTP/JSON and gRPC.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/cryptachat/internal/config"
	pkgcrypto "github.com/and161185/cryptachat/internal/crypto"
	"github.com/and161185/cryptachat/internal/limiter"
	"github.com/and161185/cryptachat/internal/migrate"
	"github.com/and161185/cryptachat/internal/repository/postgres"
	grpcserver "github.com/and161185/cryptachat/internal/server/grpc"
	"github.com/and161185/cryptachat/internal/server/httpapi"
	"github.com/and161185/cryptachat/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

// main loads configuration, runs migrations, and serves both transports until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	var logger *zap.Logger
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTPAddr),
		zap.String("grpc", cfg.GRPCAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("connect store", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	keyRepo := postgres.NewKeyRepo(db)
	chatRepo := postgres.NewChatRepo(db)
	msgRepo := postgres.NewMessageRepo(db)

	var lim limiter.Limiter = limiter.Nop{}
	policy := limiter.Policy{Window: cfg.LoginWindow, MaxFails: cfg.LoginMaxFails, BlockFor: cfg.LoginBlockFor}
	if policy.Enabled() {
		lim = limiter.NewPG(db.Pool, policy)
	}

	hasher, err := pkgcrypto.NewHasher(cfg.PasswordHash)
	if err != nil {
		logger.Fatal("password hasher", zap.Error(err))
	}

	// Services
	sessions := service.NewSessionAuthority(userRepo, []byte(cfg.JWTSecret), service.DefaultTokenTTL)
	authSvc := service.NewAuthService(userRepo, hasher, sessions, lim)
	keySvc := service.NewKeyService(keyRepo)
	contactSvc := service.NewContactService(chatRepo)
	msgSvc := service.NewMessageService(msgRepo)

	errCh := make(chan error, 2)

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpapi.NewRouter(httpapi.Deps{
				Auth:     authSvc,
				Sessions: sessions,
				Keys:     keySvc,
				Contacts: contactSvc,
				Messages: msgSvc,
				Ping:     db.Ping,
				Log:      logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("listening (http)", zap.String("addr", cfg.HTTPAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		opts := []grpc.ServerOption{
			grpc.ChainUnaryInterceptor(
				grpcserver.RecoverUnary(logger),
				grpcserver.LoggingUnary(logger),
				grpcserver.AuthUnary(sessions),
			),
		}
		if cfg.TLSCert != "" {
			creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
			if err != nil {
				logger.Fatal("failed to load TLS cert/key", zap.Error(err))
			}
			opts = append(opts, grpc.Creds(creds))
		}
		grpcSrv = grpc.NewServer(opts...)
		grpcserver.RegisterRelayServer(grpcSrv, grpcserver.New(authSvc, keySvc, contactSvc, msgSvc))

		// Health & reflection (dev)
		hs := health.NewServer()
		hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcSrv, hs)
		if cfg.Dev {
			reflection.Register(grpcSrv)
		}

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
		go func() {
			logger.Info("listening (grpc)", zap.String("addr", cfg.GRPCAddr), zap.Bool("tls", cfg.TLSCert != ""))
			errCh <- grpcSrv.Serve(lis)
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		shutdown(logger, httpSrv, grpcSrv)
		os.Exit(1)
	}

	shutdown(logger, httpSrv, grpcSrv)
	logger.Info("shutdown complete")
}

// shutdown drains both servers, forcing a stop after shutdownTimeout.
func shutdown(logger *zap.Logger, httpSrv *http.Server, grpcSrv *grpc.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}
	if grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			grpcSrv.Stop()
		}
	}
}
