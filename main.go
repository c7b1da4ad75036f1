package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/HeyGuihi/CrioloWhatsApp/app/client/gateway"
	"github.com/HeyGuihi/CrioloWhatsApp/app/client/openai"
	"github.com/HeyGuihi/CrioloWhatsApp/app/config"
	"github.com/HeyGuihi/CrioloWhatsApp/app/server"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/calendar"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/campaign"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/dispatch"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/history"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/negotiate"
	"github.com/HeyGuihi/CrioloWhatsApp/app/util/mylog"
	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg.Log); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, openai.NewClient)
	do.Provide(di, gateway.NewClient)
	do.Provide(di, calendar.New)
	do.Provide(di, history.New)
	do.Provide(di, negotiate.New)
	do.Provide(di, dispatch.New)
	do.Provide(di, campaign.New)
	do.Provide(di, server.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go func() {
		if err := do.MustInvoke[*server.Server](di).Run(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-appCtx.Done()
}
