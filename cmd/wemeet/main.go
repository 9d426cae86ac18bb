package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/ziyoura/wemeet-client/internal/config"
	"github.com/ziyoura/wemeet-client/internal/conn"
	"github.com/ziyoura/wemeet-client/internal/identity"
	"github.com/ziyoura/wemeet-client/internal/location"
	"github.com/ziyoura/wemeet-client/internal/room"
	"github.com/ziyoura/wemeet-client/internal/transport"
	"github.com/ziyoura/wemeet-client/internal/transport/gobws"
	"github.com/ziyoura/wemeet-client/internal/transport/gws"
)

func main() {
	pin := flag.String("pin", "", "4-digit room pin code")
	name := flag.String("name", "", "Display name for the room")
	transportName := flag.String("transport", "gorilla", "WebSocket library: gorilla or gobwas")
	share := flag.Bool("share", false, "Share a simulated walking route")
	lat := flag.Float64("lat", 31.2304, "Route start latitude")
	lon := flag.Float64("lon", 121.4737, "Route start longitude")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *pin == "" {
		log.Fatal("Room pin is required. Use -pin flag")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Load()

	userID, err := identity.DeviceID(cfg.DeviceIDPath)
	if err != nil {
		log.Fatalf("Failed to load device identity: %v", err)
	}
	id, err := identity.Pair(*pin, *name, userID)
	if err != nil {
		log.Fatalf("Failed to pair: %v", err)
	}

	var dialer transport.Dialer
	switch *transportName {
	case "gorilla":
		dialer = gws.Dialer{}
	case "gobwas":
		dialer = gobws.Dialer{}
	default:
		log.Fatalf("Unknown transport %q (want gorilla or gobwas)", *transportName)
	}

	session := room.NewSession(room.Config{
		Identity: id,
		Dialer:   dialer,
		Endpoint: transport.Endpoint{
			BaseURL: cfg.ServerURL,
			Origin:  cfg.Origin,
			Load:    cfg.LoadValue,
		},
		Conn: conn.Options{
			HeartbeatInterval: cfg.HeartbeatInterval,
			HeartbeatTimeout:  cfg.HeartbeatTimeout,
			RetryInterval:     cfg.RetryInterval,
		},
	})
	defer session.Close()

	if err := session.Connect(); err != nil {
		log.Printf("Initial connect failed, retrying in the background: %v", err)
	}
	session.Join()
	log.Printf("Joined room %s as %s (%s)", id.PinCode, id.DisplayName, id.UserID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go printMessages(ctx, session)
	go printPresence(ctx, session)

	if *share {
		route := location.Route{Points: walkingRoute(*lat, *lon)}
		watcher := location.NewWatcher(route, session, nil)
		go func() {
			if err := watcher.Run(ctx, cfg.LocationInterval); err != nil {
				log.Printf("Location sharing stopped: %v", err)
			}
		}()
	}

	fmt.Println("Type your messages (or 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}
		session.SendChatMessage(text)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Error reading input: %v", err)
	}

	session.Leave()
	log.Println("Left the room")
}

func printMessages(ctx context.Context, session *room.Session) {
	sub := session.Messages().Subscribe()
	printed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case history := <-sub:
			for ; printed < len(history); printed++ {
				m := history[printed]
				fmt.Printf("[%s] %s: %s\n", m.Time, m.SenderName, m.Body)
			}
		}
	}
}

func printPresence(ctx context.Context, session *room.Session) {
	sub := session.Presence().Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case users := <-sub:
			for _, u := range users {
				fmt.Printf("*** %s is at (%.4f, %.4f) ***\n", u.Username, u.Latitude, u.Longitude)
			}
		}
	}
}

// walkingRoute fakes a short stroll around the starting point.
func walkingRoute(lat, lon float64) []location.Position {
	const step = 0.0005
	return []location.Position{
		{Latitude: lat, Longitude: lon},
		{Latitude: lat + step, Longitude: lon},
		{Latitude: lat + step, Longitude: lon + step},
		{Latitude: lat, Longitude: lon + step},
	}
}
