package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/samirrijal/picplace/internal/adapters/postgres"
	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/pkg/config"
	"github.com/samirrijal/picplace/internal/pkg/logging"
)

const usage = `usage:
  migrate up
  migrate down
  migrate seed <id> <name> <lat> <lon>
  migrate delete <id>`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load("picplace-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), postgres.PoolOptions{})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up", "down":
		if err := postgres.Migrate(ctx, db, os.Args[1]); err != nil {
			log.Fatalf("migrate %s: %v", os.Args[1], err)
		}
		log.Printf("migrations %s applied", os.Args[1])
	case "seed":
		place, err := parsePlace(os.Args[2:])
		if err != nil {
			log.Fatalf("seed: %v\n%s", err, usage)
		}
		if err := postgres.NewPlaceRepo(db).Upsert(ctx, place); err != nil {
			log.Fatalf("seed: %v", err)
		}
		fmt.Printf("OK  place %s (%s) at %.6f, %.6f\n", place.ID, place.Name, place.Location.Lat, place.Location.Lon)
	case "delete":
		if len(os.Args) != 3 {
			log.Fatal(usage)
		}
		if err := postgres.NewPlaceRepo(db).Delete(ctx, os.Args[2]); err != nil {
			log.Fatalf("delete: %v", err)
		}
		fmt.Printf("OK  place %s deleted\n", os.Args[2])
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
}

func parsePlace(args []string) (*domain.Place, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("expected 4 arguments, got %d", len(args))
	}
	lat, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q", args[2])
	}
	lon, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q", args[3])
	}
	pt := domain.GeoPoint{Lat: lat, Lon: lon}
	if !pt.Valid() {
		return nil, fmt.Errorf("coordinate %s out of range", pt)
	}
	return &domain.Place{ID: args[0], Name: args[1], Location: pt}, nil
}
