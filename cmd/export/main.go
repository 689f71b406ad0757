// export writes the completed assessments for one child (or all children)
// to an XLSX workbook.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/lernblick/lernblick/internal/common"
	"github.com/lernblick/lernblick/internal/export"
	repo "github.com/lernblick/lernblick/internal/repository"
)

func main() {
	var (
		out     = flag.String("out", "assessments.xlsx", "output workbook path")
		childID = flag.String("child", "", "child UUID (default: all children)")
	)
	flag.Parse()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Println("ERROR: DB_URL env var is required")
		os.Exit(2)
	}

	child := uuid.Nil
	if *childID != "" {
		parsed, err := uuid.Parse(*childID)
		if err != nil {
			log.Fatalf("invalid -child %q: %v", *childID, err)
		}
		child = parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.Default()
	pool, err := repo.Open(ctx, common.DatabaseConfig{
		DSN:             dbURL,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, logger)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer pool.Close()

	svc := export.NewService(repo.NewResultRepository(pool, logger), logger)
	raw, err := svc.ExportAssessmentsXLSX(ctx, child)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		log.Fatalf("writing %s: %v", *out, err)
	}
	log.Printf("wrote %s (%d bytes)", *out, len(raw))
}
