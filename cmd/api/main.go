package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim"
	claimrepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/repo"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/crop"
	croprepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/crop/repo"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/dashboard"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field"
	fieldrepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field/repo"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/migrate"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/router"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme"
	schemerepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme/repo"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/user"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/database"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

func main() {
	// best-effort: a missing .env just means the real environment is used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting krishi-connect api")

	dbCfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "postgres")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dbCfg.AutoMigrate {
		if err := migrate.Tables(ctx, db, sugar); err != nil {
			sugar.Fatalf("ensure schema: %v", err)
		}
		if _, err := migrate.Schemes(ctx, db, sugar); err != nil {
			sugar.Fatalf("seed schemes: %v", err)
		}
	}

	tokenCfg := auth.ConfigFromEnv()
	if err := tokenCfg.Validate(); err != nil {
		sugar.Fatalf("token config: %v", err)
	}
	if tokenCfg.UsesDevSecret() {
		sugar.Warn("JWT_SECRET is not set; tokens are signed with the development secret")
	}
	tokens := auth.NewTokenService(tokenCfg)

	httpCfg := router.ConfigFromEnv()
	srv := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           router.RegisterRoutes(deps(db, tokens, dbCfg, httpCfg, sugar)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", httpCfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}

func deps(db *sqlx.DB, tokens *auth.TokenService, dbCfg database.Config, httpCfg router.Config, logger *zap.SugaredLogger) router.Deps {
	fields := field.NewService(fieldrepo.NewFieldRepo(db), logger)
	crops := crop.NewService(croprepo.NewCropRepo(db), fields, logger)
	claims := claim.NewService(claimrepo.NewRepo(db), logger)

	return router.Deps{
		Logger:      logger,
		DB:          db,
		PingTimeout: dbCfg.Timeout,
		CORSOrigins: httpCfg.CORSOrigins,
		Gate:        auth.NewGate(tokens, logger),
		Users:       user.NewHandler(user.NewDBUserService(db, tokens), logger),
		Claims:      claim.NewHandler(claims, logger),
		Fields:      field.NewHandler(fields, logger),
		Crops:       crop.NewHandler(crops, logger),
		Schemes:     scheme.NewHandler(scheme.NewService(schemerepo.NewRepo(db), logger), logger),
		Dashboard:   dashboard.NewHandler(dashboard.NewService(fields, crops, claims, logger), logger),
	}
}
