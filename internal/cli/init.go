// Package cli holds the bootstrap shared by the camera-sim binaries:
// building the capture source and the enhancement client from configuration,
// native file pickers, and fatal reporting of credential problems.
package cli

import (
	"context"

	"github.com/fpang/camera-sim/internal/auth"
	"github.com/fpang/camera-sim/internal/config"
	"github.com/fpang/camera-sim/internal/enhance"
	"github.com/rs/zerolog/log"
)

// InitEnhancer resolves the API key and creates the enhancement client.
// A missing key is not fatal: the client is returned disabled and captures
// are kept unenhanced. With cfg.ValidateKey the key is checked and any
// failure exits.
func InitEnhancer(ctx context.Context, cfg *config.Config) *enhance.Client {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		if !auth.IsNoKey(err) {
			log.Warn().Err(err).Msg("Failed to retrieve API key")
		}
		apiKey = ""
	}

	client, err := enhance.NewClient(ctx, apiKey, cfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	if cfg.ValidateKey {
		if err := client.Validate(ctx); err != nil {
			HandleValidationError(err)
		}
		log.Info().Msg("API key validation complete")
	}
	return client
}
