package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/ewjiang/mindbridge/internal/config"
	"github.com/ewjiang/mindbridge/internal/db"
	"github.com/ewjiang/mindbridge/internal/email"
	"github.com/ewjiang/mindbridge/internal/models"
	"github.com/ewjiang/mindbridge/internal/triage"
)

type alertMsg struct {
	AlertID   string `json:"alert_id"`
	UserID    uint64 `json:"user_id"`
	RiskLevel string `json:"risk_level"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	repo := triage.NewRepo(gdb)

	smtp := email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m alertMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.AlertID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := notifyAlert(ctx, gdb, repo, smtp, cfg.AlertEmailTo, m.AlertID); err != nil {
					log.Printf("worker=%d alert=%s user=%d level=%s failed cost=%s err=%v",
						workerID, m.AlertID, m.UserID, m.RiskLevel, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed alert=%s err=%v", workerID, m.AlertID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func notifyAlert(ctx context.Context, gdb *gorm.DB, repo *triage.Repo, smtp email.SMTPConfig, to, alertID string) error {
	alert, err := repo.GetAlertByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("load alert: %w", err)
	}
	if alert.Notified {
		return nil
	}

	if to == "" {
		// No clinician address configured; the alert stays visible in the
		// dashboard, so deliver is a no-op rather than a retry loop.
		log.Printf("alert %s: ALERT_EMAIL_TO not set, skipping email", alertID)
		return repo.MarkAlertNotified(ctx, alertID)
	}

	var user models.User
	if err := gdb.WithContext(ctx).First(&user, alert.UserID).Error; err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	subject := fmt.Sprintf("[MindBridge] HIGH risk alert %s", alert.ID)
	body := "A HIGH risk message was detected.\n\n" +
		"Alert ID: " + alert.ID + "\n" +
		"User: " + anonymize(user.Username) + "\n" +
		"Detected at: " + alert.CreatedAt.Format(time.RFC3339) + "\n\n" +
		"Trigger message:\n" + alert.TriggerMessage + "\n\n" +
		"Please review the alert in the dashboard and resolve it once handled.\n"

	if err := email.SendText(smtp, to, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return repo.MarkAlertNotified(ctx, alertID)
}

func anonymize(username string) string {
	if len(username) <= 4 {
		return username
	}
	return username[:4] + "..."
}
