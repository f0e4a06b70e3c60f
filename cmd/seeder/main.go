//cmd/seeder/main.go
package main

import (
    "fmt"
    "log"
    "os"

    "github.com/joho/godotenv"

    "github.com/textpulse/sms-backend/internal/db"
)

func main() {
    _ = godotenv.Load()

    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" {
        log.Fatal("DATABASE_URL is not set")
    }

    conn, err := db.Open(dsn)
    if err != nil {
        log.Fatal(err)
    }
    defer conn.Close()

    if err := db.Migrate(conn); err != nil {
        log.Fatalf("migration failed: %v", err)
    }

    seedFiles := []string{
        "seed/contacts.sql",
        "seed/campaigns.sql",
    }

    for _, file := range seedFiles {
        content, err := os.ReadFile(file)
        if err != nil {
            log.Fatalf("failed to read %s: %v", file, err)
        }

        if _, err := conn.Exec(string(content)); err != nil {
            log.Fatalf("failed to execute %s: %v", file, err)
        }
        fmt.Printf("Seeded: %s\n", file)
    }

    fmt.Println("Database seeding completed successfully!")
}
