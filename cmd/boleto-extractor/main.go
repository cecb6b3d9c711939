package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/boleto-extractor/internal/boleto"
	"github.com/zombor/boleto-extractor/internal/extraction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("boleto-extractor")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		extractorType = fs.StringLong("extractor", "gemini", "Extractor backend: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var; clients may also send one per request)")
		geminiModel   = fs.StringLong("gemini-model", extraction.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BOLETO_EXTRACTOR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Build the extractor factory. The credential is resolved per batch:
	// a key sent with the request wins, otherwise the server default is
	// used. The gemini factory refuses to build a client with no key at
	// all, so a batch without a credential never reaches the network.
	var factory boleto.ExtractorFactory
	switch *extractorType {
	case "gemini":
		defaultKey := *geminiKey
		if defaultKey == "" {
			defaultKey = os.Getenv("GEMINI_API_KEY")
		}
		slog.Info("Using Gemini extractor", "model", *geminiModel)
		model := *geminiModel
		factory = func(apiKey string) (extraction.Extractor, error) {
			if apiKey == "" {
				apiKey = defaultKey
			}
			return extraction.NewGemini(apiKey, model)
		}
	case "ollama":
		slog.Info("Using Ollama extractor", "url", *ollamaURL, "model", *ollamaModel)
		baseURL, model := *ollamaURL, *ollamaModel
		factory = func(string) (extraction.Extractor, error) {
			return extraction.NewOllama(baseURL, model)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}

	// Initialize service and server
	service := boleto.NewService(factory)

	basicAuth := boleto.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := boleto.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
