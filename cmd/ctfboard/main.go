package main

import (
	"log"

	"github.com/MrSnakeDoc/ctfboard/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ ctfboard failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ ctfboard failed: %v", err)
	}
}
