// Package main is the entry point for the drinks API
package main

import (
	"github.com/coffeeshop/drinks/cmd"
	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	cmd.Execute(cfg)
}
