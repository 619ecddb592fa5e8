// Package main provides a smoke and stress testing tool for the sync SDK:
// it signs in, loads the timeline, subscribes to the change feed and
// optionally hammers the message table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"worklink/internal/config"
	"worklink/internal/controller"
	"worklink/internal/platform"
	"worklink/internal/session"
	"worklink/internal/sync"
)

// Metrics tracks the test results.
type Metrics struct {
	Loads        int64
	LoadFailures int64
	MessagesSent int64
	SendFailures int64
	FeedReloads  int64
}

var metrics Metrics

func main() {
	email := flag.String("email", "admin@example.com", "Test user email")
	password := flag.String("password", "password123", "Test user password")
	partner := flag.String("partner", "", "Partner user id for chat traffic")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	sendEvery := flag.Duration("send-every", 2*time.Second, "Message send interval (0 disables)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, err := platform.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create platform client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := session.NewProvider(client)
	identity, err := provider.SignIn(ctx, *email, *password)
	if err != nil {
		log.Fatalf("Sign-in failed: %v", err)
	}
	log.Printf("Signed in as %s (%s)", identity.Name, identity.ID)

	if err := client.Feed.Connect(ctx, provider.AccessToken()); err != nil {
		log.Printf("WARNING: change feed unavailable: %v", err)
	}
	defer func() { _ = client.Feed.Close() }()

	timeline := controller.NewTimeline(client.Records)
	defer timeline.Close()
	if err := timeline.LoadFeed(ctx, nil); err != nil {
		log.Fatalf("Timeline load failed: %v", err)
	}
	log.Printf("Timeline loaded: %d posts, state=%s",
		len(timeline.Posts.Values()), timeline.Posts.State())

	postsListener := timeline.PostsListener(client.Feed)
	if err := postsListener.Start(ctx, identity); err != nil {
		log.Printf("WARNING: posts listener failed: %v", err)
	}
	defer postsListener.Stop()

	// Count reloads triggered by feed events.
	_, err = client.Feed.Subscribe("posts", "", func(platform.ChangeEvent) {
		atomic.AddInt64(&metrics.FeedReloads, 1)
	})
	if err != nil {
		log.Printf("WARNING: feed counter subscription failed: %v", err)
	}

	var chat *controller.Chat
	if *partner != "" {
		chat = controller.NewChat(client.Records, identity.ID)
		defer chat.Close()
		if err := chat.OpenDirect(ctx, *partner); err != nil {
			log.Fatalf("Chat load failed: %v", err)
		}
		log.Printf("Chat with %s loaded: %d messages", *partner, len(chat.Messages.Values()))

		chatListener := chat.Listener(client.Feed)
		if err := chatListener.Start(ctx, identity); err != nil {
			log.Printf("WARNING: chat listener failed: %v", err)
		}
		defer chatListener.Stop()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(reloadInterval(*sendEvery))
	defer ticker.Stop()
	deadline := time.After(*duration)

	seq := 0
	for running := true; running; {
		select {
		case <-deadline:
			log.Println("Test duration reached")
			running = false
		case <-interrupt:
			log.Println("Interrupted by user")
			running = false
		case <-ticker.C:
			seq++
			runTick(ctx, timeline, chat, *partner, seq, *sendEvery)
		}
	}

	printMetrics()
}

func reloadInterval(sendEvery time.Duration) time.Duration {
	if sendEvery > 0 {
		return sendEvery
	}
	return 5 * time.Second
}

func runTick(ctx context.Context, timeline *controller.Timeline, chat *controller.Chat, partner string, seq int, sendEvery time.Duration) {
	if err := timeline.Posts.Reload(ctx); err != nil {
		atomic.AddInt64(&metrics.LoadFailures, 1)
	} else {
		atomic.AddInt64(&metrics.Loads, 1)
	}

	if chat == nil || sendEvery <= 0 {
		return
	}
	msg := fmt.Sprintf("synctest message %d at %s", seq, time.Now().Format(time.RFC3339))
	if _, err := chat.SendDirect(ctx, partner, msg, ""); err != nil {
		atomic.AddInt64(&metrics.SendFailures, 1)
		if err == sync.ErrOperationInFlight {
			return
		}
		log.Printf("send failed: %v", err)
		return
	}
	atomic.AddInt64(&metrics.MessagesSent, 1)
}

func printMetrics() {
	log.Println("=== Results ===")
	log.Printf("Loads:         %d", atomic.LoadInt64(&metrics.Loads))
	log.Printf("Load failures: %d", atomic.LoadInt64(&metrics.LoadFailures))
	log.Printf("Messages sent: %d", atomic.LoadInt64(&metrics.MessagesSent))
	log.Printf("Send failures: %d", atomic.LoadInt64(&metrics.SendFailures))
	log.Printf("Feed events:   %d", atomic.LoadInt64(&metrics.FeedReloads))
}
