package main

import (
	"os"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// Local env files are optional. Variables already set in the environment win.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
