// hostcheck pings the host bridge and prints a few seconds of its event
// stream.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/park285/chesscraft-go/internal/hostlink"
)

func main() {
	_ = godotenv.Load()
	baseURL := strings.TrimSpace(os.Getenv("HOST_BASE_URL"))
	wsURL := strings.TrimSpace(os.Getenv("HOST_WS_URL"))
	token := strings.TrimSpace(os.Getenv("HOST_TOKEN"))

	if baseURL == "" {
		log.Fatal("HOST_BASE_URL is required")
	}

	client := hostlink.NewClient(baseURL,
		hostlink.WithToken(token),
		hostlink.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg, err := client.GetConfig(ctx)
	if err != nil {
		log.Printf("/config error: %v", err)
	} else {
		log.Printf("/config ok: server=%s version=%s worlds=%s online=%d", cfg.ServerName, cfg.Version, strings.Join(cfg.Worlds, ","), cfg.Online)
	}

	if wsURL == "" {
		log.Println("HOST_WS_URL not set; skipping event stream check")
		return
	}

	ev := hostlink.NewEvents(wsURL, token, 0, func(e hostlink.Event) {
		fmt.Printf("event type=%s player=%s world=%s at=%s args=%q\n", e.Type, e.Player, e.World, e.Pos(), e.Args)
	})
	ev.OnStateChange(func(s hostlink.State) {
		log.Printf("events state: %s", s)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ev.Connect(cctx); err != nil {
		log.Printf("events connect error: %v", err)
		return
	}

	// watch for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ev.Close(context.Background())
}
