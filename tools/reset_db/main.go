package main

import (
	"database/sql"
	"fmt"
	"log"

	"imin-server/config"
	dbPkg "imin-server/pkg/db"

	_ "github.com/go-sql-driver/mysql"
)

// tables 按依赖顺序排列，子表在前
var tables = []string{
	"messages",
	"thread_members",
	"threads",
	"content_reports",
	"user_blocks",
	"presence",
	"friend_requests",
	"circle_members",
	"circles",
	"users",
}

func main() {
	cfg := config.LoadConfig()
	if cfg.Database.Driver != "mysql" {
		log.Fatalf("reset_db only supports the mysql driver, got %q", cfg.Database.Driver)
	}

	dsn, err := dbPkg.DSN(cfg.Database)
	if err != nil {
		log.Fatalf("Build DSN failed: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Database connection test failed: %v", err)
	}

	fmt.Println("Database connected successfully")
	fmt.Printf("Database: %s\n", cfg.Database.Database)

	fmt.Printf("\nWARNING: This operation will CLEAR ALL DATA in tables %v!\n", tables)
	fmt.Print("Type 'YES' to confirm: ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "YES" {
		fmt.Println("Operation cancelled")
		return
	}

	_, _ = db.Exec("SET FOREIGN_KEY_CHECKS=0")
	defer func() { _, _ = db.Exec("SET FOREIGN_KEY_CHECKS=1") }()

	failed := 0
	for _, table := range tables {
		fmt.Printf("Clearing table %s... ", table)
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			failed++
			fmt.Printf("Failed: %v\n", err)
		} else {
			fmt.Println("Success")
		}
	}

	if failed > 0 {
		fmt.Printf("\nDatabase reset finished with %d failed table(s)\n", failed)
		return
	}
	fmt.Println("\nDatabase reset completed!")
	fmt.Println("All table data cleared, table structure preserved")
}
