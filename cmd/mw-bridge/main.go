package main

import (
	"os"

	"horse.fit/mw-bridge/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
