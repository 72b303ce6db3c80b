package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Errorf("gremlin-%s: %v", Version, err)
		os.Exit(1)
	}
}
