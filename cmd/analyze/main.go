package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"

	"github.com/chessreview/api/internal/analysis"
	"github.com/chessreview/api/internal/config"
	"github.com/chessreview/api/internal/engine"
	"github.com/chessreview/api/internal/logx"
	"github.com/chessreview/api/internal/store"
)

// Report is the JSON document written to stdout.
type Report struct {
	Moves   []analysis.MoveRecord `json:"moves"`
	Summary analysis.GameSummary  `json:"summary"`
}

func main() {
	var (
		pgnPath    = flag.String("pgn", "", "path to the PGN file to analyze")
		colorName  = flag.String("color", "white", "user color (white|black)")
		depth      = flag.Int("depth", 0, "engine search depth (overrides config)")
		enginePath = flag.String("engine", "", "engine executable (overrides discovery)")
		poolSize   = flag.Int("pool-size", 0, "number of engine instances (overrides config)")
		configPath = flag.String("config", "", "YAML config file")
		cachePath  = flag.String("eval-cache", "", "evaluation cache file (.csv or .csv.zst)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := logx.NewLogger(level)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if envPath := os.Getenv("STOCKFISH_PATH"); envPath != "" {
		cfg.Engine.Path = envPath
	}
	if *enginePath != "" {
		cfg.Engine.Path = *enginePath
	}
	if *poolSize > 0 {
		cfg.Engine.PoolSize = *poolSize
	}
	if *depth > 0 {
		cfg.Analysis.Depth = *depth
	}
	if *cachePath != "" {
		cfg.Analysis.EvalCache = *cachePath
	}

	if *pgnPath == "" {
		logger.Fatal().Msg("-pgn is required")
	}

	userColor := chess.White
	switch *colorName {
	case "white":
	case "black":
		userColor = chess.Black
	default:
		logger.Fatal().Str("color", *colorName).Msg("color must be white or black")
	}

	pgnText, err := os.ReadFile(*pgnPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("read pgn")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := engine.NewPool(engine.Config{
		EnginePath: cfg.Engine.Path,
		Size:       cfg.Engine.PoolSize,
		Threads:    cfg.Engine.Threads,
		HashMB:     cfg.Engine.HashMB,
		Logger:     logger,
	})
	if err := pool.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("engine pool init")
	}
	defer pool.Shutdown()

	var evaluator analysis.Evaluator = pool
	cache := store.NewEvalCache()
	if cfg.Analysis.EvalCache != "" {
		if n, err := cache.LoadFromFile(cfg.Analysis.EvalCache); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn().Err(err).Msg("load eval cache")
			}
		} else {
			logger.Info().Int("evals", n).Str("path", cfg.Analysis.EvalCache).Msg("eval cache loaded")
		}
		evaluator = analysis.CachingEvaluator{Inner: pool, Cache: cache}
	}

	records, err := analysis.AnalyzeGame(ctx, evaluator, string(pgnText), userColor, cfg.Analysis.Depth)
	if err != nil {
		pool.Shutdown()
		logger.Fatal().Err(err).Msg("analyze game")
	}
	summary := analysis.Summarize(records)

	for _, rec := range records {
		logger.Debug().
			Int("ply", rec.Ply).
			Str("san", rec.SAN).
			Str("phase", string(analysis.PhaseByMoveNumber(rec.MoveNumber))).
			Int("cp_loss", rec.CPLoss).
			Str("class", string(rec.Classification)).
			Msg("move")
	}

	if cfg.Analysis.EvalCache != "" {
		if err := cache.SaveToFile(cfg.Analysis.EvalCache); err != nil {
			logger.Warn().Err(err).Msg("save eval cache")
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Report{Moves: records, Summary: summary}); err != nil {
		logger.Fatal().Err(err).Msg("encode report")
	}
}
