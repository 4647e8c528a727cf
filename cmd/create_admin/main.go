package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	_ "github.com/lib/pq"

	"github.com/fixora/authapi/application/usecase/user_management"
	"github.com/fixora/authapi/domain/entity"
	"github.com/fixora/authapi/infrastructure/adapter/postgres"
	"github.com/fixora/authapi/infrastructure/config"
	"github.com/fixora/authapi/infrastructure/service/password"
)

func main() {
	username := flag.String("username", "admin", "admin username")
	email := flag.String("email", "admin@localhost.dev", "admin email")
	userPassword := flag.String("password", "", "admin password (must satisfy the password policy)")
	firstName := flag.String("first-name", "System", "first name")
	lastName := flag.String("last-name", "Administrator", "last name")
	flag.Parse()

	if *userPassword == "" {
		log.Fatal("-password is required")
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	createUser := user_management.NewCreateUserUseCase(
		postgres.NewUserRepositoryAdapter(db),
		password.NewBcryptPasswordService(cfg.BcryptCost),
	)

	admin, err := createUser.Execute(ctx, user_management.CreateUserRequest{
		Username:  *username,
		Email:     *email,
		Password:  *userPassword,
		FirstName: *firstName,
		LastName:  *lastName,
		Role:      entity.RoleAdmin,
	})
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	log.Printf("Admin user %s created with id %s", admin.Username, admin.ID)
}
