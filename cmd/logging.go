package cmd

import (
	"github.com/urfave/cli"

	"github.com/Carmen-Shannon/oxy-sg/engine/log"
)

var logger = log.New("oxy-sg")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
