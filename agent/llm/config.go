// Package llm holds the chat model configuration for the collections agent.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Collections-Call/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gpt-4"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"512"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	VerifyOnStartup    bool          `envconfig:"VERIFY_ON_STARTUP" split_words:"true" default:"false"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: llm model is required", contractx.ErrValidation)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: llm temperature must be in [0,2], got %v", contractx.ErrValidation, c.Temperature)
	}
	if c.MaxCompletionToken <= 0 {
		return fmt.Errorf("%w: llm max completion token must be > 0", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouter() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// NewChatModel builds the collector model, verifying the model id against the
// endpoint first when VerifyOnStartup is set.
func NewChatModel(ctx context.Context, c Config) (einomodel.ToolCallingChatModel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	orCfg := c.OpenRouter()

	if c.VerifyOnStartup {
		if err := openrouterx.VerifyModel(ctx, openrouterx.NewClient(orCfg), orCfg.Model); err != nil {
			return nil, err
		}
		log.Info().Str("model", orCfg.Model).Msg("llm model verified")
	}

	return orCfg.New(ctx)
}
