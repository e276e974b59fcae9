package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Collections-Call/agent/call"
	"github.com/tanpawarit/Chative-Collections-Call/agent/llm"
	promptx "github.com/tanpawarit/Chative-Collections-Call/agent/prompt"
	"github.com/tanpawarit/Chative-Collections-Call/agent/record"
	"github.com/tanpawarit/Chative-Collections-Call/agent/transport"
	configx "github.com/tanpawarit/Chative-Collections-Call/pkg/config"
	_ "github.com/tanpawarit/Chative-Collections-Call/pkg/logger/autoload"
)

type AppConfig struct {
	RecordDriver string `envconfig:"RECORD_DRIVER" default:"firestore"`
}

// envLoader reads only the selected record backend's settings.
type envLoader struct{}

func (envLoader) Firestore() (record.FirestoreConfig, error) {
	cfg, err := configx.New[record.FirestoreConfig]("FIREBASE")
	if err != nil {
		return record.FirestoreConfig{}, err
	}
	return *cfg, nil
}

func (envLoader) Postgres() (record.PostgresConfig, error) {
	cfg, err := configx.New[record.PostgresConfig]("POSTGRES")
	if err != nil {
		return record.PostgresConfig{}, err
	}
	return *cfg, nil
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llm.Config]("LLM")
	agentCfg := configx.MustNew[promptx.Config]("AGENT")
	transportCfg := configx.MustNew[transport.Config]("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatModel, err := llm.NewChatModel(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chat model")
	}

	store, err := record.Open(ctx, appCfg.RecordDriver, envLoader{})
	if err != nil {
		log.Fatal().Err(err).Str("driver", appCfg.RecordDriver).Msg("failed to open record store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close record store")
		}
	}()

	controller, err := call.NewController(ctx, store, chatModel, promptx.NewBuilder(*agentCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build call controller")
	}

	server, err := transport.NewServer(*transportCfg, controller)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build call transport")
	}

	log.Info().
		Str("driver", appCfg.RecordDriver).
		Str("model", llmCfg.Model).
		Str("agent", agentCfg.AgentName).
		Msg("collections agent starting")

	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("call transport stopped")
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), transportCfg.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := controller.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("close open calls")
	}
	log.Info().Msg("collections agent stopped")
}
