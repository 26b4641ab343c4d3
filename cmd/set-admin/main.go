package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
)

func main() {
	uid := flag.String("uid", "", "target firebase uid")
	revoke := flag.Bool("revoke", false, "remove the admin claim instead of granting it")
	flag.Parse()
	if *uid == "" {
		log.Fatal("uid is required: -uid=xxxxx")
	}
	_ = godotenv.Load()

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		log.Fatalf("firebase.NewApp: %v", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("app.Auth: %v", err)
	}

	claims := map[string]interface{}{
		"admin": true,
		"role":  "admin",
	}
	if *revoke {
		claims = nil
	}

	if err := authClient.SetCustomUserClaims(ctx, *uid, claims); err != nil {
		log.Fatalf("SetCustomUserClaims: %v", err)
	}
	// existing ID tokens keep the old claims until they refresh
	if err := authClient.RevokeRefreshTokens(ctx, *uid); err != nil {
		log.Printf("RevokeRefreshTokens: %v", err)
	}

	if *revoke {
		fmt.Println("ok: admin claims removed for", *uid)
		return
	}
	fmt.Println("ok: admin claims set for", *uid)
}
