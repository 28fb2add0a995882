package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/classify"
	"github.com/vcaboara/job-lead-finder-sub000/internal/config"
	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/factory"
	"github.com/vcaboara/job-lead-finder-sub000/internal/logging"
	"github.com/vcaboara/job-lead-finder-sub000/internal/sanitize"
	"github.com/vcaboara/job-lead-finder-sub000/internal/utils"
)

var (
	// Assist provider flags
	assistEnabled = flag.Bool("assist", false, "Consult an LLM assist provider for unclassified emails")
	provider      = flag.String("provider", "openai", "Assist provider (openai, gemini, bedrock)")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	from := msg.Header.Get("From")
	to := msg.Header.Get("To")
	subject := msg.Header.Get("Subject")

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}
	body := string(bodyBytes)

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", from)
	fmt.Printf("To: %s\n", to)
	fmt.Printf("Subject: %s\n", subject)
	fmt.Printf("Body length: %d bytes\n", len(body))
	fmt.Printf("\n")

	// Classify with the rule engine
	textProcessor := utils.NewTextProcessor(logger)
	engine := classify.NewEngine(logger, textProcessor)

	startTime := time.Now()
	result := engine.Classify(context.Background(), subject, sanitize.HTML(body), from)
	duration := time.Since(startTime)

	// Optionally consult an assist provider when the rules come up empty
	if result.Category == core.CategoryUnclassified && *assistEnabled {
		result = consultAssist(cfg, logger, textProcessor, from, to, subject, body, result)
	}

	// Print results
	fmt.Printf("=== Results ===\n")
	fmt.Printf("Category: %s\n", result.Category)
	fmt.Printf("Confidence: %.4f\n", result.Confidence)
	if result.Company != "" {
		fmt.Printf("Company: %s\n", result.Company)
	}
	if result.JobTitle != "" {
		fmt.Printf("Job title: %s\n", result.JobTitle)
	}
	if result.ApplicationURL != "" {
		fmt.Printf("Application URL: %s\n", result.ApplicationURL)
	}
	if result.Excerpt != "" {
		fmt.Printf("Excerpt: %s\n", result.Excerpt)
	}
	fmt.Printf("Timed out: %t\n", result.TimedOut)
	fmt.Printf("Processing time: %v\n", duration)
}

// consultAssist runs the configured LLM provider as a second opinion
func consultAssist(
	cfg *config.Config,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	from, to, subject, body string,
	ruleResult *core.ClassificationResult,
) *core.ClassificationResult {
	assistFactory := factory.NewAssistFactory(cfg, logger, textProcessor)
	client, err := assistFactory.CreateAssistClient()
	if err != nil {
		logger.Fatal("Failed to create assist client", zap.Error(err))
	}
	if client == nil {
		return ruleResult
	}
	defer func() {
		if closer, ok := client.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close assist client", zap.Error(err))
			}
		}
	}()

	email, err := core.NewInboundEmail("cli", from, to, subject, body, "", time.Now())
	if err != nil {
		logger.Warn("Email fails ingestion checks, skipping assist", zap.Error(err))
		return ruleResult
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	assistResult, err := client.ClassifyEmail(ctx, email)
	if err != nil {
		logger.Warn("Assist classification failed", zap.Error(err))
		return ruleResult
	}
	fmt.Printf("Assist provider: %s\n", cfg.GetString("assist.provider"))
	return assistResult
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("assist.enabled", *assistEnabled)
	v.Set("assist.provider", *provider)

	switch *provider {
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
	}

	return config.NewFromViper(v)
}
