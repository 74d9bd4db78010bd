package main

import (
	"fmt"
	"os"

	// distrolessイメージにはタイムゾーンDBがないため、統計のtzパラメータ用に埋め込む
	_ "time/tzdata"

	"github.com/hitoshi/soullog/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
