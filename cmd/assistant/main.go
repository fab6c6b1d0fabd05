package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/aaaa47080/stock-agent-sub003/internal/cli"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cli.Execute()
}
