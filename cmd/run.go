package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/velora-ai/velora/internal/evaluation"
	"github.com/velora-ai/velora/internal/gemini"
	"github.com/velora-ai/velora/internal/interview"
	"github.com/velora-ai/velora/internal/loader"
	"github.com/velora-ai/velora/internal/logger"
	"github.com/velora-ai/velora/internal/session"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	storeDriverMemory   = "memory"
	storeDriverPostgres = "postgres"
)

var interviewPrompt = promptui.Select{
	Label: "Some requirements are missing from the CV. Run a validation interview?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the CV against the offer and, if needed, run the validation interview",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before starting the interview")
	runCmd.Flags().String("session-id", "", "resume or name the interview session. Default is a random id.")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting velora", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	offerText, err := loader.Document("offer", config.OfferFile)
	if err != nil {
		logger.Fatal("loading the offer", zap.Error(err))
	}

	cvText, err := loader.Document("cv", config.CVFile)
	if err != nil {
		logger.Fatal("loading the cv", zap.Error(err))
	}

	client, err := newGeminiClient(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal(
			"building the gemini client",
			zap.Error(err),
			zap.String("hint", "set ai.gemini.api-key-file in the configuration file or the GEMINI_API_KEY_FILE environment variable"),
		)
	}

	evaluator := evaluation.New(client, evaluationLogger(logger, client.Model()), maxLogLength(config.AI))

	logger.Info("evaluating the cv against the offer")

	result, err := evaluator.Evaluate(ctx, offerText, cvText)
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}

	printReport("Initial evaluation", result)

	if result.Discarded {
		logger.Info("exiting", zap.String("reason", "candidate discarded by a mandatory requirement"))
		return
	}

	if len(result.NotFoundRequirements) == 0 {
		logger.Info("exiting", zap.String("reason", "no missing requirements to validate"))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		_, action, err := interviewPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	store, closeStore, err := buildStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("building the session store", zap.Error(err))
	}
	defer closeStore()

	interviewer, err := interview.New(&interview.Config{SerializeSessions: true}, &interview.Deps{
		Gateway: client,
		Scorer:  evaluator,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("building the interviewer", zap.Error(err))
	}

	final, err := runInterview(ctx, cmd, interviewer, result.NotFoundRequirements, offerText, cvText, logger)
	if err != nil {
		logger.Fatal("interview failed", zap.Error(err))
	}

	printReport("Final evaluation", final)

	dump, err := json.MarshalIndent(final, "", "  ")
	if err == nil {
		fmt.Printf("\n%s\n", dump)
	}
}

// runInterview drives the interactive loop: greeting, one prompt per answer,
// and the closing re-evaluation once the model signals termination.
func runInterview(ctx context.Context, cmd *cobra.Command, interviewer *interview.Interviewer, gaps []string, offerText, cvText string, logger *zap.Logger) (*evaluation.Result, error) {
	sessionID := strings.TrimSpace(cmd.Flag("session-id").Value.String())
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger.Info("starting the interview",
		zap.String("session_id", sessionID),
		zap.Strings("missing_requirements", gaps),
	)

	greeting, err := interviewer.Start(ctx, sessionID, gaps)
	switch {
	case errors.Is(err, interview.ErrDuplicateSession):
		return nil, fmt.Errorf("session %q already exists, pass a fresh --session-id", sessionID)
	case err != nil:
		return nil, err
	}

	fmt.Printf("\nRecruiter: %s\n", interview.StripEndToken(greeting))

	answerPrompt := promptui.Prompt{Label: "Candidato"}

	for {
		answer, err := answerPrompt.Run()
		if err != nil {
			return nil, err
		}

		reply, err := interviewer.Submit(ctx, sessionID, answer)
		if err != nil {
			return nil, err
		}

		fmt.Printf("\nRecruiter: %s\n", interview.StripEndToken(reply))

		if strings.Contains(reply, interview.EndToken) {
			break
		}
	}

	logger.Info("interview over, re-evaluating with the transcript", zap.String("session_id", sessionID))

	return interviewer.Finalize(ctx, sessionID, offerText, cvText)
}

func newGeminiClient(ctx context.Context, config *AIConfig, logger *zap.Logger) (*gemini.Client, error) {
	if config == nil || config.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(config.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.Provider)
	}

	apiKey, err := loader.Secret("gemini api key", "", config.Gemini.APIKeyFile)
	if err != nil {
		return nil, err
	}

	return gemini.NewClient(ctx, apiKey, config.Gemini.Model, config.Gemini.MaxRetries, logger)
}

// buildStore picks the session backend. The returned closer releases the
// database handle for the postgres driver and is a no-op otherwise.
func buildStore(ctx context.Context, config *StoreConfig, logger *zap.Logger) (interview.Store, func(), error) {
	driver := storeDriverMemory
	if config != nil && strings.TrimSpace(config.Driver) != "" {
		driver = strings.TrimSpace(strings.ToLower(config.Driver))
	}

	switch driver {
	case storeDriverMemory:
		return session.NewMemoryStore(), func() {}, nil

	case storeDriverPostgres:
		dsn := strings.TrimSpace(config.DatabaseURL)
		if dsn == "" {
			return nil, nil, errors.New("store.database-url is required for the postgres driver (or set VELORA_DATABASE_URL)")
		}

		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}

		store := session.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}

		logger.Info("using the postgres session store")
		return store, func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

func evaluationLogger(base *zap.Logger, model string) *zap.Logger {
	return logger.WithCommonFields(base, "gemini", model)
}

func maxLogLength(config *AIConfig) int {
	if config == nil || config.Gemini == nil {
		return 0
	}
	return config.Gemini.MaxLogLength
}

func printReport(title string, result *evaluation.Result) {
	decision := "continue"
	if result.Discarded {
		decision = "discarded"
	}

	fmt.Printf("\n%s\n", title)
	fmt.Printf("  score:     %d\n", result.Score)
	fmt.Printf("  decision:  %s\n", decision)
	printRequirements("  matching", result.MatchingRequirements)
	printRequirements("  unmatching", result.UnmatchingRequirements)
	printRequirements("  not found in CV", result.NotFoundRequirements)
	if result.Explanation != "" {
		fmt.Printf("  explanation: %s\n", result.Explanation)
	}
}

func printRequirements(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, item := range items {
		fmt.Printf("    - %s\n", item)
	}
}
