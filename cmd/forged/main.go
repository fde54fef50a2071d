// cmd/forged/main.go
//
// Entry point for forged, the generation backend the TUI talks to. It serves
// the intent, policy, and example routes over HTTP. With OPENAI_API_KEY set
// it generates through the OpenAI API; without it, a scripted offline client
// answers with canned policies so the workflow stays usable end to end.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/policyforge/policyforge/internal/backend"
	"github.com/policyforge/policyforge/internal/config"
	"github.com/policyforge/policyforge/internal/logbook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "forged: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := config.InitForgeDir(cwd); err != nil {
		return err
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		return err
	}

	book, err := logbook.New(cfg.SessionLogPath())
	if err != nil {
		book = nil
	}
	defer book.Close()

	llm, err := buildLLM(cfg, book)
	if err != nil {
		return err
	}
	generator, err := backend.NewGenerator(llm)
	if err != nil {
		return err
	}
	server, err := backend.NewServer(cfg.ListenAddr(), generator, backend.WithServerLogbook(book))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("forged listening on %s\n", server.Addr())

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildLLM(cfg *config.Config, book *logbook.Logbook) (backend.LLMClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		book.Warn("OPENAI_API_KEY not set, using the scripted offline client")
		fmt.Println("forged: OPENAI_API_KEY not set, serving scripted policies")
		return backend.ScriptedClient{}, nil
	}
	return backend.NewOpenAIClient(backend.LLMSettings{
		Model:   cfg.Project.LLM.Model,
		APIKey:  apiKey,
		BaseURL: cfg.Project.LLM.BaseURL,
	})
}
