package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/database"
	"github.com/qs3c/namma_kumta_server/internal/model"
	"github.com/qs3c/namma_kumta_server/internal/repository"
)

var (
	email  = flag.String("email", "", "Email of the account to change")
	revoke = flag.Bool("revoke", false, "Demote the account back to a regular user")
)

// 注册接口只创建普通用户，管理员通过该命令授予
func main() {
	flag.Parse()
	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote -email user@example.com [-revoke]")
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	role := model.RoleAdmin
	if *revoke {
		role = model.RoleUser
	}

	if err := repository.NewUserRepository(db).SetRoleByEmail(*email, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("No account registered with %s", *email)
		}
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("%s is now %s (takes effect on next login)\n", repository.NormalizeEmail(*email), role)
}
