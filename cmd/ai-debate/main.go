package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Provider API keys conventionally live in .env during development.
	// A missing file is fine; the environment may already be set.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := newRootCmd(log).Execute(); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
