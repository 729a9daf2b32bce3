package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"scamdrill/config"
	"scamdrill/utils"
)

func main() {
	participant := flag.String("participant", "", "Participant name (required)")
	operator := flag.Bool("operator", false, "Issue an operator token (can edit scenarios)")
	configPath := flag.String("config", "config/config.yml", "Path to config file")
	flag.Parse()

	if *participant == "" {
		fmt.Println("Error: participant is required")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tokens := utils.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	token, err := tokens.Issue(*participant, *operator)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println(token)
}
