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

	"github.com/carebridge/telehealth-booking/internal/db"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

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

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctorKeys, err := seedDoctors(context.Background(), pool, 100)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 9000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSlots(context.Background(), pool, doctorKeys, 14); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	keys := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		key := uuid.New()
		name := gofakeit.Name()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (key, public_id, account_id, name, specialization, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, key, fmt.Sprintf("doc-%04d", i+1), fmt.Sprintf("account-%04d", i+1), name, spec, gofakeit.Sentence(12))
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return keys, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, display_name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, fmt.Sprintf("patient-%05d", i+1), gofakeit.Name(), gofakeit.Email(), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedSlots gives every doctor an hourly 09:00 to 16:00 schedule for the
// next `days` days.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, doctorKeys []uuid.UUID, days int) error {
	log.Printf("seeding slots for %d doctors over %d days", len(doctorKeys), days)

	times := make([]string, 0, 8)
	for hour := 9; hour <= 16; hour++ {
		times = append(times, fmt.Sprintf("%02d:00", hour))
	}

	for _, key := range doctorKeys {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for d := 0; d < days; d++ {
			date := time.Now().AddDate(0, 0, d).Format(slot.DateLayout)
			for _, t := range times {
				limit := 1
				if gofakeit.Number(0, 9) == 0 {
					limit = gofakeit.Number(2, 4)
				}
				_, err := tx.Exec(ctx, `
					INSERT INTO slots (doctor_key, slot_date, slot_time, is_available, is_booked, patient_limit, current_bookings, created_at, updated_at)
					VALUES ($1, $2, $3, true, false, $4, 0, now(), now())
					ON CONFLICT (doctor_key, slot_date, slot_time) DO NOTHING
				`, key, date, t, limit)
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("slots seeded")
	return nil
}
