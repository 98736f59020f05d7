package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fjod/shoestore/internal/config"
	"github.com/fjod/shoestore/internal/domain"
	"github.com/fjod/shoestore/internal/repository"
	log "github.com/sirupsen/logrus"
)

func main() {
	file := flag.String("file", "data/shoes.json", "JSON array of listings to insert")
	drop := flag.Bool("drop", false, "drop the shoes collection before inserting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatalf("Failed to open %s: %v", *file, err)
	}
	defer f.Close()

	shoes, err := readListings(f)
	if err != nil {
		logger.Fatalf("Failed to read listings: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName, repository.DefaultPoolConfig())
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Client().Disconnect(context.Background())

	if *drop {
		if err := db.Collection(repository.ShoesCollection).Drop(ctx); err != nil {
			logger.Fatalf("Failed to drop %s: %v", repository.ShoesCollection, err)
		}
		logger.WithField("collection", repository.ShoesCollection).Info("collection dropped")
	}

	inserted, err := repository.NewMongoCatalogLoader(db).InsertShoes(ctx, shoes)
	if err != nil {
		logger.Fatalf("Failed to insert listings: %v", err)
	}
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalf("Failed to create indexes: %v", err)
	}

	logger.WithFields(log.Fields{
		"inserted": inserted,
		"database": cfg.MongoDBName,
	}).Info("seed complete")
}

func readListings(r io.Reader) ([]domain.Shoe, error) {
	var shoes []domain.Shoe
	if err := json.NewDecoder(r).Decode(&shoes); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	for i, s := range shoes {
		if s.Brand == "" {
			return nil, fmt.Errorf("listing %d has no brand", i)
		}
		if s.Price < 0 {
			return nil, fmt.Errorf("listing %d has a negative price", i)
		}
	}
	return shoes, nil
}
