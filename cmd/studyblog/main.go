// Command studyblog runs the blog service. Configuration comes from
// environment variables (optionally via a .env file).
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/seralp/studyblog"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := studyblog.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	app, err := studyblog.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
