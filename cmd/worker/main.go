package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classtrack/internal/config"
	"classtrack/internal/mailer"
	"classtrack/internal/queue"
	"classtrack/internal/store"
)

// Worker consumes queued notification messages and delivers email.
// Delivery failures are logged and dropped; they never feed back into the
// operation that queued them.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:mail")
	}

	var sender mailer.Sender
	if cfg.SendGridKey != "" {
		sender = mailer.NewSendGrid(cfg.SendGridKey, cfg.MailName, cfg.MailFrom)
		log.Println("mail delivery via SendGrid")
	} else {
		sender = mailer.Console{}
		log.Println("SENDGRID_API_KEY not set, logging mail to console")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "credential_email" {
			continue
		}

		var m mailer.Message
		if err := json.Unmarshal(msg.Body, &m); err != nil {
			log.Printf("bad mail message body: %v", err)
			continue
		}

		if err := sender.Send(ctx, m); err != nil {
			log.Printf("mail to %s failed: %v", m.ToEmail, err)
			continue
		}
		log.Printf("mail to %s sent", m.ToEmail)
	}

	log.Println("worker stopped")
}
