package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"imin-server/config"
	"imin-server/pkg/jwt"
)

// 为本地开发签发令牌，签名参数取自 config/config.yaml 与环境变量
func main() {
	userID := flag.String("user", "", "user id (token subject)")
	name := flag.String("name", "", "display name claim")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to jwt.expireTime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	cfg := config.LoadConfig()
	if *ttl > 0 {
		cfg.JWT.ExpireTime = *ttl
	}

	token, err := jwt.NewJWTService(cfg.JWT).GenerateToken(*userID, *name, *email)
	if err != nil {
		log.Fatalf("sign token failed: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", time.Now().Add(cfg.JWT.ExpireTime).Format(time.RFC3339))
}
