package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/chess-coach/internal/advisor"
	appcfg "github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/rules"
)

// advisorcheck sends one analysis prompt and prints the reply, for checking
// credentials and model access without starting the server.
func main() {
	fen := flag.String("fen", "", "position to analyse (default: start position)")
	flag.Parse()

	_ = appcfg.LoadDotEnv()
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.APIKey == "" {
		log.Fatal("API_KEY is required")
	}

	if *fen == "" {
		*fen = rules.New().FEN()
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}
	prompt, err := cat.Render("prompt.advice", map[string]any{"FEN": *fen, "PGN": "", "LastMove": "none"})
	if err != nil {
		log.Fatalf("prompt error: %v", err)
	}

	client := advisor.NewClient(cfg.APIKey,
		advisor.WithBaseURL(cfg.AdvisorBaseURL),
		advisor.WithModel(cfg.AdvisorModel),
		advisor.WithTimeout(cfg.AdvisorTimeout()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.AdvisorTimeout()+5*time.Second)
	defer cancel()
	start := time.Now()
	text, err := client.Generate(ctx, advisor.Request{Turns: []advisor.Turn{{Role: advisor.RoleUser, Text: prompt}}})
	if err != nil {
		log.Printf("generate error: %v", err)
		os.Exit(1)
	}
	log.Printf("model=%s elapsed=%s", client.Model(), time.Since(start).Round(time.Millisecond))
	fmt.Println(text)
}
