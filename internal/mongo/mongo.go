package mongo

import (
	"context"
	"log"
	"time"

	"workfit-event-service-golang/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	Client   *mongo.Client
	Database *mongo.Database
)

func InitMongo() {
	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("[MONGO] Failed to connect: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("[MONGO] Ping failed: %v", err)
	}

	Client = client
	Database = client.Database(cfg.MongoDatabase)
	log.Println("[MONGO] Connected successfully to", cfg.MongoURI)
}

func CloseMongo() {
	if Client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := Client.Disconnect(ctx); err != nil {
			log.Printf("[MONGO] Error closing connection: %v", err)
		} else {
			log.Println("[MONGO] Connection closed")
		}
	}
}
