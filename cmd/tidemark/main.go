package main

import (
	"log"

	"github.com/tidemark/tidemark/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ tidemark failed to start: %v", err)
	}
}
