// Package store holds the on-disk evaluation cache.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/chessreview/api/internal/engine"
)

// EvalCache is an in-memory cache of engine evaluations keyed by position
// and search depth, with optional zstd-compressed CSV persistence.
type EvalCache struct {
	mu    sync.RWMutex
	evals map[string]engine.Evaluation
}

// NewEvalCache creates an empty eval cache.
func NewEvalCache() *EvalCache {
	return &EvalCache{evals: make(map[string]engine.Evaluation)}
}

// FEN text never contains '|'.
func cacheKey(fen string, depth int) string {
	return fmt.Sprintf("%s|%d", fen, depth)
}

func (c *EvalCache) Get(fen string, depth int) (engine.Evaluation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	eval, ok := c.evals[cacheKey(fen, depth)]
	return eval, ok
}

func (c *EvalCache) Put(fen string, depth int, eval engine.Evaluation) {
	c.mu.Lock()
	c.evals[cacheKey(fen, depth)] = eval
	c.mu.Unlock()
}

// Len returns the number of cached evaluations.
func (c *EvalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.evals)
}

// LoadFromFile loads evaluations from a CSV file (.zst compression
// supported). Returns the number of rows loaded.
func (c *EvalCache) LoadFromFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return 0, err
		}
		defer zr.Close()
		reader = zr
	}

	rows := csv.NewReader(reader)
	rows.FieldsPerRecord = 6

	// Skip header
	if _, err := rows.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		row, err := rows.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}

		depth, err := strconv.Atoi(row[1])
		if err != nil {
			continue
		}
		value, err := strconv.Atoi(row[3])
		if err != nil {
			continue
		}
		kind := engine.ScoreCentipawn
		if row[2] == "mate" {
			kind = engine.ScoreMate
		}
		eval := engine.Evaluation{Kind: kind, Value: value, BestMove: row[4]}
		if row[5] != "" {
			eval.PV = strings.Fields(row[5])
		}
		c.evals[cacheKey(row[0], depth)] = eval
		count++
	}
	return count, nil
}

// SaveToFile writes the cache as CSV, zstd-compressed when the path ends in
// .zst.
func (c *EvalCache) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var writer io.Writer = f
	var zw *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		zw, err = zstd.NewWriter(f)
		if err != nil {
			return err
		}
		writer = zw
	}

	rows := csv.NewWriter(writer)
	if err := rows.Write([]string{"fen", "depth", "kind", "value", "bestmove", "pv"}); err != nil {
		return err
	}

	c.mu.RLock()
	for key, eval := range c.evals {
		fen, depth, ok := strings.Cut(key, "|")
		if !ok {
			continue
		}
		row := []string{
			fen,
			depth,
			eval.Kind.String(),
			strconv.Itoa(eval.Value),
			eval.BestMove,
			strings.Join(eval.PV, " "),
		}
		if err := rows.Write(row); err != nil {
			c.mu.RUnlock()
			return err
		}
	}
	c.mu.RUnlock()

	rows.Flush()
	if err := rows.Error(); err != nil {
		return err
	}
	if zw != nil {
		return zw.Close()
	}
	return nil
}
