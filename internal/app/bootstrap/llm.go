package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/Rithvickkr/DOBBE-assignment/internal/config"
	"github.com/Rithvickkr/DOBBE-assignment/internal/conversation"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// NeedsAWS reports whether any configured component talks to AWS.
func NeedsAWS(cfg *appconfig.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.NotifyQueue == "sqs" ||
		cfg.EmailProvider == "ses" ||
		cfg.LLMProvider == "bedrock" ||
		(cfg.LLMProvider == "gemini" && strings.TrimSpace(cfg.BedrockModelID) != "")
}

// BuildLLMClient selects the agent's model from LLM_PROVIDER. Gemini falls
// back to Bedrock when a Bedrock model is also configured. awsCfg may be nil
// when NeedsAWS is false. The returned closer is never nil.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	bedrock := func() (*conversation.BedrockLLMClient, error) {
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: bedrock requires aws config")
		}
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required")
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID), nil
	}

	switch cfg.LLMProvider {
	case "gemini":
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, err
		}
		closer := func() { _ = gemini.Close() }
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			logger.Info("using gemini LLM", "model", cfg.GeminiModelID)
			return gemini, closer, nil
		}
		fallback, err := bedrock()
		if err != nil {
			closer()
			return nil, noop, err
		}
		logger.Info("using gemini LLM with bedrock fallback", "model", cfg.GeminiModelID, "fallback_model", cfg.BedrockModelID)
		return conversation.NewFallbackLLMClient(gemini, fallback, logger), closer, nil
	case "bedrock":
		client, err := bedrock()
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using bedrock LLM", "model", cfg.BedrockModelID)
		return client, noop, nil
	case "", "stub":
		logger.Warn("no LLM provider configured; using stub LLM")
		return conversation.StubLLMClient{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
