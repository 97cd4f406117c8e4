package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Danielbarber11/aivan/internal/ai"
	"github.com/Danielbarber11/aivan/internal/config"
	"github.com/Danielbarber11/aivan/internal/db"
	"github.com/Danielbarber11/aivan/internal/project"
	"github.com/Danielbarber11/aivan/internal/store/rabbitmq"
)

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
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	repo := project.NewRepo(gdb)

	titler := ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)

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

	// declare the same topology as the publisher; mismatched args fail the
	// channel with a precondition error
	if _, err := ch.QueueDeclare(cfg.RabbitQueue+".dlq", true, false, false, false, nil); err != nil {
		log.Fatalf("dlq declare: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitQueue+".retry", true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue,
	}); err != nil {
		log.Fatalf("retry queue declare: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
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

	log.Printf("title worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var job rabbitmq.TitleJob
				if err := json.Unmarshal(d.Body, &job); err != nil || job.ProjectID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleTitleJob(ctx, titler, repo, job); err != nil {
					log.Printf("worker=%d job project=%s failed cost=%s err=%v", workerID, job.ProjectID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed project=%s err=%v", workerID, job.ProjectID, err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("title worker shutting down")
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

// handleTitleJob generates a display name for a project once. An unusable
// title spends the one-shot flag without renaming, so the job never loops.
func handleTitleJob(ctx context.Context, titler ai.Titler, repo *project.Repo, job rabbitmq.TitleJob) error {
	title, err := titler.GenerateTitle(ctx, job.Prompt, job.CodeSnippet)
	if err != nil {
		// best effort: the project keeps its default name
		log.Printf("title generation failed project=%s err=%v", job.ProjectID, err)
		return repo.MarkTitled(ctx, job.UserID, job.ProjectID)
	}

	title = strings.TrimSpace(title)
	if title == "" || strings.EqualFold(title, strings.TrimSpace(job.Prompt)) {
		return repo.MarkTitled(ctx, job.UserID, job.ProjectID)
	}
	if len(title) > 60 {
		title = title[:60]
	}

	return repo.SetName(ctx, job.UserID, job.ProjectID, title)
}
