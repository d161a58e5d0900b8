package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
	"github.com/wheelhouse-ai/wheelhouse/internal/agent/providers"
	"github.com/wheelhouse-ai/wheelhouse/internal/catalog"
	"github.com/wheelhouse-ai/wheelhouse/internal/config"
	"github.com/wheelhouse-ai/wheelhouse/internal/observability"
	"github.com/wheelhouse-ai/wheelhouse/internal/tools/booking"
	"github.com/wheelhouse-ai/wheelhouse/internal/tools/faq"
	"github.com/wheelhouse-ai/wheelhouse/internal/tools/vehicles"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

// showroomInstructions is the default system prompt used when the config
// leaves agent.instructions empty.
const showroomInstructions = `You are Wheelhouse, a friendly and knowledgeable car showroom assistant.

You help customers explore the vehicle lineup, compare models, answer questions
about warranty, service, and financing, and book test drives.

Guidelines:
- Use the search_vehicles tool to look up vehicles before stating specs or prices.
- Use compare_vehicles when the customer asks to compare models.
- Use search_faq for warranty, service, insurance, and financing questions.
- Use book_test_drive only after confirming the vehicle, the customer's name,
  phone number, city, and preferred date.
- Prices are in lakh INR (ex-showroom). Be upfront that on-road prices vary by city.
- Keep answers concise. Never invent specs or prices that the tools did not return.`

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return runChat(cmd.Context(), configPath)
		},
	}
}

func runChat(parent context.Context, configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.Observability.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()
		logger.Info("serving metrics", "addr", cfg.Observability.MetricsAddr)
	}

	tracer, shutdownTracer, err := observability.NewTracer(ctx, observability.TraceConfig{
		ServiceName:    "wheelhouse",
		ServiceVersion: version,
		Endpoint:       cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutCtx)
	}()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	instructions := cfg.Agent.Instructions
	if instructions == "" {
		instructions = showroomInstructions
	}

	conv, err := agent.NewConversation(provider, registry, agent.LoopConfig{
		Model:        cfg.LLM.Model,
		Instructions: instructions,
		MaxRounds:    cfg.Agent.MaxRounds,
		MaxTokens:    cfg.LLM.MaxTokens,
		Executor:     agent.ExecutorConfig{ToolTimeout: cfg.Agent.ToolTimeout},
		Hook:         observability.AskHook(tracer, metrics, logger, provider.Name()),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Wheelhouse %s (%s). Type a message, or 'exit' to quit.\n\n", version, provider.Name())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		updates, err := conv.Ask(ctx, input)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		render(updates)

		if ctx.Err() != nil {
			break
		}
	}
	fmt.Println("\nGoodbye!")
	return scanner.Err()
}

func buildProvider(cfg *config.Config) (agent.Provider, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		apiKey := cfg.LLM.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:  apiKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
	default:
		apiKey := cfg.LLM.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return providers.NewOpenAIProviderWithBaseURL(apiKey, cfg.LLM.BaseURL), nil
	}
}

func buildRegistry(cfg *config.Config) (*agent.ToolRegistry, error) {
	store, err := catalog.Load(cfg.Catalog.Paths...)
	if err != nil {
		return nil, err
	}
	faqIndex, err := faq.Load(cfg.FAQ.Path)
	if err != nil {
		return nil, err
	}

	registry := agent.NewToolRegistry()
	registry.MustRegister(&vehicles.SearchTool{Store: store})
	registry.MustRegister(&vehicles.DetailsTool{Store: store})
	registry.MustRegister(&vehicles.CompareTool{Store: store})
	registry.MustRegister(&faq.Tool{Index: faqIndex})
	registry.MustRegister(&booking.Tool{Book: booking.NewBook()})
	return registry, nil
}

// render drains one Ask update channel, printing assistant text as it
// streams and tool results as they complete.
func render(updates <-chan agent.TurnUpdate) {
	printed := map[string]int{}   // message ID -> chars of content already printed
	reported := map[string]bool{} // tool call ID -> result line already printed
	lineOpen := false

	printDelta := func(msg *models.Message) {
		if msg == nil || msg.ID == "" {
			return
		}
		n := printed[msg.ID]
		if len(msg.Content) > n {
			if n == 0 {
				fmt.Print("bot> ")
			}
			fmt.Print(msg.Content[n:])
			printed[msg.ID] = len(msg.Content)
			lineOpen = true
		}
	}

	var finalErr error
	sawFinal := false
	for up := range updates {
		if up.Err != nil {
			finalErr = up.Err
			continue
		}
		if up.Turn == nil {
			continue
		}
		for _, step := range up.Turn.Steps {
			printDelta(&step.Message)
			for _, res := range step.Results {
				if res.Status == models.ToolStatusPending || reported[res.ID] {
					continue
				}
				if lineOpen {
					fmt.Println()
					lineOpen = false
				}
				marker := "✓"
				if res.Status == models.ToolStatusFailure {
					marker = "✗"
				}
				fmt.Printf("  [%s %s]\n", marker, res.Name)
				reported[res.ID] = true
			}
		}
		if up.Turn.Final != nil {
			printDelta(up.Turn.Final)
			sawFinal = true
		}
	}

	if sawFinal || lineOpen {
		fmt.Println()
	}
	if finalErr != nil {
		fmt.Fprintln(os.Stderr, "error:", finalErr)
	}
	fmt.Println()
}
