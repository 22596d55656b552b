package mpu

import (
	"github.com/leandrodaf/mpuart/internal/clock"
	"github.com/leandrodaf/mpuart/internal/eventpool"
	"github.com/leandrodaf/mpuart/internal/logger"
	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// applyDefaultOptions sets default values for ClientOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify ClientOptions.
//
// Returns:
//   - contracts.ClientOptions: A structure containing the finalized options with defaults applied.
//   - error: An error if there was an issue applying the options.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		options.Config = &contracts.Config{}
	}
	cfg := options.Config

	// Set defaults if options are not provided
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 && cfg.LogLevel != "" {
		options.LogLevel = logger.ParseLevel(cfg.LogLevel)
	}
	if options.LogFilePath == "" {
		options.LogFilePath = cfg.LogFile
	}
	if options.LogFilePath != "" {
		options.Logger.SetDestination(contracts.FileLog, options.LogFilePath)
	}

	if cfg.Backend == "" {
		cfg.Backend = BackendSim
	}
	if options.Allocator == nil {
		options.Allocator = eventpool.New(cfg.PoolSize)
	}
	if options.Clock == nil {
		options.Clock = clock.New()
	}
	if options.HostConfig == nil {
		options.HostConfig = &contracts.HostConfig{ClientName: "MPU-401 bridge"}
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
