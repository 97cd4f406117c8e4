package main

import (
	"log"

	"github.com/Danielbarber11/aivan/internal/config"
	"github.com/Danielbarber11/aivan/internal/db"
	"github.com/Danielbarber11/aivan/internal/httpapi"
	"github.com/Danielbarber11/aivan/internal/httpapi/handlers"
	"github.com/Danielbarber11/aivan/internal/models"
	"github.com/Danielbarber11/aivan/internal/project"
	"github.com/Danielbarber11/aivan/internal/store/rabbitmq"
	"github.com/Danielbarber11/aivan/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(&models.User{}, &project.Project{}); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	// titles are best effort; the server runs without the queue
	var titlePub handlers.TitlePublisher
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("rabbit publisher unavailable, auto-titling disabled: %v", err)
	} else {
		defer pub.Close()
		titlePub = pub
	}

	r := httpapi.NewRouter(gdb, cfg, rds, titlePub)

	log.Printf("server listening addr=%s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
