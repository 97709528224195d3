package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tesoro-project/tesoro/cmd/tesoro"
	_ "github.com/tesoro-project/tesoro/pkg/logger"
)

// Values for version are injected by the build.
var (
	VERSION = ""
)

func main() {
	start := time.Now()
	log.Trace().Msgf("Top of execution - %s", start.UTC())
	tesoro.Execute(VERSION)
	log.Trace().Msgf("Execution finished - %s", time.Since(start))
}
