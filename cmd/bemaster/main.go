package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/guille1999utp/bemaster-part-2/internal/app"
)

func main() {
	ctx := context.Background()
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bemaster exited")
	}
}
