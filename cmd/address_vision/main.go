package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/app/provider"
	"address_vision/internal/app/service"
	"address_vision/internal/infrastructure/configloader"
	"address_vision/internal/infrastructure/contract"
	"address_vision/internal/infrastructure/ens"
	"address_vision/internal/infrastructure/httpclient"
	clientprovider "address_vision/internal/infrastructure/network/client"
	networkdefinition "address_vision/internal/infrastructure/network/definition"
	"address_vision/internal/infrastructure/restapi"
	"address_vision/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "config/config.yml"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := configloader.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	appLogger := logger.NewSlogAdapter()
	logger.Info("Address vision starting", "config", configPath, "tracked_networks", cfg.Networks.Tracked)

	chains := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Networks.Tracked, cfg.Networks.RPCOverrides)
	readers := clientprovider.NewEVMClientProvider(cfg, appLogger)

	ensChain, ok := networkdefinition.Lookup(cfg.ENS.Network, cfg.Networks.RPCOverrides)
	if !ok {
		logger.Fatal("Unknown ENS network", "network", cfg.ENS.Network)
	}
	ensReader, err := readers.GetReader(ensChain)
	if err != nil {
		logger.Fatal("Failed to connect to the ENS network", "network", ensChain.Name, "error", err)
	}
	names := ens.NewResolver(ensReader, cfg.ENS.RegistryAddress, !cfg.ENS.SkipReverseVerification, zapLogger)
	avatars := httpclient.NewAvatarClient(cfg.ENS.AvatarBaseURL, millis(cfg.ENS.RequestTimeoutMillis), zapLogger)

	adapters := service.SourceAdapters{
		Tokens:   tokenSource(cfg, zapLogger),
		Nfts:     httpclient.NewOpenSeaClient(cfg.OpenSea, zapLogger),
		NftLimit: cfg.Aggregation.NftFetchLimit,
		Poaps:    httpclient.NewPOAPClient(cfg.POAP, zapLogger),
		Social:   httpclient.NewEFPClient(cfg.EFP, zapLogger),
		Contract: contract.NewProber(readers, contract.DefaultPatterns, zapLogger),
	}
	if cfg.Tokens.PriceFallback {
		dexscreener := httpclient.NewDEXScreenerClient(
			cfg.DEXScreener.BaseURL,
			millis(cfg.DEXScreener.RequestTimeoutMillis),
			zapLogger,
			cfg.TokenPriceSvc.MaxTokensPerBatchRequest,
		)
		adapters.Prices = service.NewTokenPriceService(dexscreener, appLogger, cfg)
		logger.Info("DEXScreener price fallback enabled")
	}

	aggregator, err := service.NewAggregator(cfg.Aggregation, chains)
	if err != nil {
		logger.Fatal("Invalid aggregation settings", "error", err)
	}

	sessionCfg := service.SessionConfig{Concurrency: cfg.Performance.MaxConcurrentRoutines}
	if probeChain, ok := chains.GetChainByIdentifier(cfg.Networks.ContractProbeChain); ok {
		sessionCfg.ContractChain = &probeChain
	} else {
		logger.Warn("Contract probe chain is not tracked, contract introspection disabled", "network", cfg.Networks.ContractProbeChain)
	}

	session := service.NewLookupSession(
		service.NewQueryNormalizer(cfg.Query),
		service.NewIdentityResolver(names, avatars, appLogger),
		aggregator,
		chains,
		service.NewSourceSet(cfg.Sources, adapters, appLogger),
		sessionCfg,
		appLogger,
	)
	history := provider.NewHistoryProvider(cfg.History.MaxEntries, appLogger)
	session.OnIdentityResolved(provider.RecordIdentityEvents(history))

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := restapi.SetupRouter(restapi.NewLookupHandler(session, history, appLogger), cfg.Server.AllowedOrigins, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan

	logger.Info("Shutdown signal received, stopping HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	session.Close()
	logger.Info("Address vision stopped")
}

func tokenSource(cfg *configloader.Config, zapLogger *zap.Logger) port.TokenBalanceSource {
	if cfg.Tokens.Provider == "moralis" {
		logger.Info("Using Moralis token balances")
		return httpclient.NewMoralisClient(cfg.Moralis, zapLogger)
	}
	logger.Info("Using Alchemy token balances")
	return httpclient.NewAlchemyClient(cfg.Alchemy, zapLogger)
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
