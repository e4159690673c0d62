package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sonrisadental/booking-api/internal/appointment"
	"github.com/sonrisadental/booking-api/internal/db"
)

// Seeds a couple of weeks of demo appointments so the booking form has
// occupied slots to grey out.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedAppointments(context.Background(), pool, 14, 3); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

// seedAppointments books perDay random slots on each of the next days
// calendar days, skipping Sundays (the clinic is closed).
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, days, perDay int) error {
	services := []appointment.ServiceType{
		appointment.ServiceLimpieza,
		appointment.ServiceConsulta,
		appointment.ServiceBlanqueamiento,
		appointment.ServiceExtraccion,
		appointment.ServiceOrtodoncia,
		appointment.ServiceEndodoncia,
	}

	today := time.Now()
	inserted := 0

	for d := 1; d <= days; d++ {
		date := today.AddDate(0, 0, d)
		if date.Weekday() == time.Sunday {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		slots := pickSlots(perDay)
		for _, slot := range slots {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			phone := fmt.Sprintf("+503%08d", gofakeit.Number(60000000, 79999999))
			service := services[gofakeit.Number(0, len(services)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, name, email, phone, service, date, slot, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, 'confirmed', now())
				ON CONFLICT DO NOTHING
			`, id, name, email, phone, service, date.Format("2006-01-02"), slot)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
			inserted++
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Printf("appointments seeded: %d", inserted)
	return nil
}

func pickSlots(n int) []string {
	all := make([]string, len(appointment.Slots))
	copy(all, appointment.Slots)
	gofakeit.ShuffleStrings(all)
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}
