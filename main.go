package main

import (
	"github.com/mbolis/surveydesk/cli"
	"github.com/mbolis/surveydesk/log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal("main:", err)
	}
}
