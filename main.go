package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jobber/auth-api/app"
	"jobber/auth-api/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		if errors.Is(err, config.ErrMissingSecret) {
			fmt.Println("WARNING: You haven't set a JWT secret. Please set JWT_TOKEN or jwt.secret in config.toml.\nA random one you can use:\n\n" + config.GenSecret())
			os.Exit(1)
		}

		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		panic(err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		zap.L().Error("Server stopped", zap.Error(err))
	}
}
