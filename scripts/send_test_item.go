package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/RoGogDBD/items/internal/config"
	itemskafka "github.com/RoGogDBD/items/internal/kafka"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type importMessage struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

func main() {
	count := flag.Int("count", 1, "Number of test items to send")
	invalid := flag.Bool("invalid", false, "Send items that fail validation (ends up in DLQ)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.ImportTopic == "" {
		log.Fatal("Kafka brokers or import topic not configured")
	}

	w := itemskafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.ImportTopic)
	defer func() {
		if err := w.Close(); err != nil {
			log.Errorf("kafka writer close error: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := 0; i < *count; i++ {
		key := uuid.New().String()
		msg := importMessage{
			Name:        fmt.Sprintf("Test Item %d", i+1),
			Description: "Imported from send_test_item " + key[:8],
			Price:       decimal.New(int64(1999+i*100), -2),
		}
		if *invalid {
			msg.Name = "x"
			msg.Price = decimal.Zero
		}

		value, err := json.Marshal(msg)
		if err != nil {
			log.Fatalf("Failed to marshal item: %v", err)
		}

		if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
			log.Fatalf("Failed to send message: %v", err)
		}
		log.WithField("key", key).Infof("Message %d sent successfully", i+1)
	}
}
