package main

import (
	"log"

	"github.com/ashwnn/forward-factor/app"
	"github.com/ashwnn/forward-factor/config"
)

func main() {
	// Load config from .env file
	cfg := config.LoadFromEnv()

	// Create and start app
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}
