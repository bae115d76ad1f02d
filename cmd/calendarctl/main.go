package main

import (
	"github.com/qhrc-dev/team-calendar/backend/internal/cli"
)

func main() {
	cli.Execute()
}
