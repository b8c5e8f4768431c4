// Command server runs the Opacity archive-sharing HTTP service.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/server"
	"github.com/dmitrijs2005/opacity/internal/server/config"
)

func main() {
	log.Printf("opacity version:%d build_date:%s", common.Version, common.BuildDate)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	app.Run(ctx)
}
