package main

import (
	"log"

	"github.com/nofendian17/marketscanner/internal/app"
	"github.com/nofendian17/marketscanner/internal/config"
)

func main() {
	cfg := config.LoadFromEnv()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}
