package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/powertrader/powertrader/internal/events"
	"github.com/powertrader/powertrader/internal/exchange"
	"github.com/powertrader/powertrader/internal/logger"
	"github.com/powertrader/powertrader/internal/monitoring"
	"github.com/powertrader/powertrader/internal/paths"
	"github.com/powertrader/powertrader/internal/pattern"
	"github.com/powertrader/powertrader/internal/store"
)

// Trainer lifecycle states published through trainer_status.json.
const (
	StateTraining    = "TRAINING"
	StateInterrupted = "INTERRUPTED"
	StateFinished    = "FINISHED"
)

// KillerCheckInterval is how many progress callbacks pass between
// checks of the killer file during a weight-adjustment pass.
const KillerCheckInterval = 50

// ErrKilled signals a cooperative stop requested through killer.txt.
var ErrKilled = errors.New("training stopped by killer file")

// Status is the trainer's externally visible state.
type Status struct {
	State     string `json:"state"`
	Coin      string `json:"coin"`
	Timeframe string `json:"timeframe"`
	Timestamp int64  `json:"timestamp"`
}

// Checkpoint records where training last stood so a restart resumes
// instead of starting over. Saved at the start of every timeframe.
type Checkpoint struct {
	Coin      string `json:"coin"`
	TFIndex   int    `json:"tf_index"`
	Timestamp int64  `json:"timestamp"`
}

// Progress is the GUI-facing progress snapshot.
type Progress struct {
	Coin      string  `json:"coin"`
	Timeframe string  `json:"timeframe"`
	Position  int     `json:"position"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Timestamp int64   `json:"timestamp"`
}

// Runner trains every coin and timeframe in order, checkpointing as it
// goes and honoring the killer file between and inside passes.
type Runner struct {
	BaseDir string
	Market  exchange.MarketDataClient
	Log     *logger.Logger
	Bus     *events.Bus
	Health  *monitoring.HealthChecker

	// HistoryLimit caps how many candles are fetched per timeframe.
	// Zero means the full paginated history.
	HistoryLimit int

	now func() time.Time
}

// NewRunner wires a trainer run over the given market feed.
func NewRunner(baseDir string, market exchange.MarketDataClient, log *logger.Logger, bus *events.Bus, health *monitoring.HealthChecker) *Runner {
	return &Runner{
		BaseDir: baseDir,
		Market:  market,
		Log:     log,
		Bus:     bus,
		Health:  health,
		now:     time.Now,
	}
}

// Run trains all coins across all timeframes. A prior checkpoint fast
// forwards past already-finished work; the killer file interrupts
// cleanly with memories saved.
func (r *Runner) Run(ctx context.Context, coins []string) error {
	cp := r.loadCheckpoint()
	tfOffset := 0
	skipping := cp != nil

	for _, coin := range coins {
		coin = strings.ToUpper(strings.TrimSpace(coin))
		if coin == "" {
			continue
		}
		if skipping {
			if coin != cp.Coin {
				r.Log.Info("Resume: skipping already-trained coin %s", coin)
				continue
			}
			skipping = false
			tfOffset = cp.TFIndex
			r.Log.Info("Resuming %s at timeframe index %d", coin, tfOffset)
		}

		started := r.now()
		if err := r.trainCoin(ctx, coin, tfOffset); err != nil {
			if errors.Is(err, ErrKilled) || errors.Is(err, context.Canceled) {
				r.writeStatus(StateInterrupted, coin, "")
				return err
			}
			// A coin-wide failure still should not abandon the rest.
			r.Log.Error("Training %s failed: %v", coin, err)
			r.Health.RecordError("trainer", err.Error())
		} else {
			r.Bus.Publish(events.TrainingCompleted{
				Coin:              coin,
				TimeframesTrained: len(pattern.Timeframes) - tfOffset,
				DurationSeconds:   r.now().Sub(started).Seconds(),
				Timestamp:         float64(r.now().Unix()),
			})
		}
		tfOffset = 0
	}

	r.clearCheckpoint()
	r.writeLastTrainingTime()
	r.writeStatus(StateFinished, "", "")
	r.Log.Info("Training run complete for %d coins", len(coins))
	return nil
}

func (r *Runner) trainCoin(ctx context.Context, coin string, tfOffset int) error {
	cp := paths.NewCoinPaths(r.BaseDir, coin)
	if err := cp.EnsureDir(); err != nil {
		return fmt.Errorf("coin dir for %s: %w", coin, err)
	}

	for tfIdx := tfOffset; tfIdx < len(pattern.Timeframes); tfIdx++ {
		tf := pattern.Timeframes[tfIdx]

		if r.killerRequested() {
			return ErrKilled
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		r.saveCheckpoint(Checkpoint{Coin: coin, TFIndex: tfIdx, Timestamp: r.now().Unix()})
		r.writeStatus(StateTraining, coin, tf)
		r.Health.Heartbeat("trainer")

		if err := r.trainTimeframe(ctx, cp, coin, tf); err != nil {
			if errors.Is(err, ErrKilled) || errors.Is(err, context.Canceled) {
				return err
			}
			// One bad timeframe (thin history, transient venue trouble)
			// must not sink the whole run.
			r.Log.Error("Training %s %s failed: %v", coin, tf, err)
			r.Health.RecordError("trainer", err.Error())
			continue
		}
	}
	return nil
}

func (r *Runner) trainTimeframe(ctx context.Context, cp paths.CoinPaths, coin, tf string) error {
	limit := r.HistoryLimit
	if limit <= 0 {
		limit = exchange.MaxHistoryCandles
	}

	candles, err := exchange.GetAllKlines(ctx, r.Market, coin, tf, limit)
	if err != nil {
		return fmt.Errorf("fetch %s %s: %w", coin, tf, err)
	}
	if len(candles) <= pattern.PatternLength+1 {
		return fmt.Errorf("not enough history for %s %s: %d candles", coin, tf, len(candles))
	}
	r.Log.Info("Training %s %s on %d candles", coin, tf, len(candles))

	closePcts, highPcts, lowPcts := NormalizeCandles(candles)

	mem := LoadMemory(cp, tf)
	fresh := mem.IsEmpty()
	if fresh {
		mem = BuildPatterns(closePcts, highPcts, lowPcts)
		r.Log.Info("Built %d fresh patterns for %s %s", mem.Size(), coin, tf)
	}

	callbackCount := 0
	killed := false
	mem, err = AdjustWeights(mem, closePcts, highPcts, lowPcts, func(pos, total int) error {
		r.writeProgress(coin, tf, pos, total)
		r.Health.Heartbeat("trainer")

		callbackCount++
		if callbackCount%KillerCheckInterval == 0 && r.killerRequested() {
			killed = true
			return ErrKilled
		}
		return ctx.Err()
	})

	// Whatever was learned so far is worth keeping, interrupted or not.
	if saveErr := SaveMemory(cp, tf, mem); saveErr != nil {
		r.Log.Error("Saving memory for %s %s: %v", coin, tf, saveErr)
		if err == nil {
			err = saveErr
		}
	}
	if killed {
		r.Log.Warning("Killer file detected during %s %s, memory saved", coin, tf)
	}
	return err
}

// killerRequested reports whether killer.txt currently says "yes".
func (r *Runner) killerRequested() bool {
	raw := store.ReadText(r.killerPath(), "")
	return strings.EqualFold(strings.TrimSpace(raw), "yes")
}

func (r *Runner) writeStatus(state, coin, tf string) {
	st := Status{State: state, Coin: coin, Timeframe: tf, Timestamp: r.now().Unix()}
	if err := store.WriteJSON(r.statusPath(), st); err != nil {
		r.Log.Error("Writing trainer status: %v", err)
	}
}

func (r *Runner) writeProgress(coin, tf string, pos, total int) {
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(pos) / float64(total)
	}
	p := Progress{Coin: coin, Timeframe: tf, Position: pos, Total: total, Percent: pct, Timestamp: r.now().Unix()}
	if err := store.WriteJSON(r.progressPath(), p); err != nil {
		r.Log.Error("Writing trainer progress: %v", err)
	}
}

func (r *Runner) loadCheckpoint() *Checkpoint {
	var cp Checkpoint
	if err := store.ReadJSON(r.checkpointPath(), &cp); err != nil {
		return nil
	}
	if cp.Coin == "" {
		return nil
	}
	if cp.TFIndex < 0 || cp.TFIndex >= len(pattern.Timeframes) {
		cp.TFIndex = 0
	}
	return &cp
}

func (r *Runner) saveCheckpoint(cp Checkpoint) {
	if err := store.WriteJSON(r.checkpointPath(), cp); err != nil {
		r.Log.Error("Writing trainer checkpoint: %v", err)
	}
}

func (r *Runner) clearCheckpoint() {
	os.Remove(r.checkpointPath())
}

func (r *Runner) writeLastTrainingTime() {
	ts := strconv.FormatInt(r.now().Unix(), 10)
	if err := store.WriteText(r.lastTrainingPath(), ts); err != nil {
		r.Log.Error("Writing last training time: %v", err)
	}
}

func (r *Runner) statusPath() string {
	return filepath.Join(r.BaseDir, paths.TrainerStatusFilename)
}
func (r *Runner) progressPath() string {
	return filepath.Join(r.BaseDir, paths.TrainerProgressFilename)
}
func (r *Runner) checkpointPath() string {
	return filepath.Join(r.BaseDir, paths.CheckpointFilename)
}
func (r *Runner) lastTrainingPath() string {
	return filepath.Join(r.BaseDir, paths.LastTrainingTimeFilename)
}
func (r *Runner) killerPath() string {
	return filepath.Join(r.BaseDir, paths.KillerFilename)
}

// LoadMemory reads the stored memory for one coin and timeframe.
// Missing files produce an empty memory with the default threshold.
func LoadMemory(cp paths.CoinPaths, tf string) *pattern.Memory {
	threshold := store.ReadSignal(cp.ThresholdFile(tf), pattern.InitialThreshold)
	return pattern.ParseMemoryText(
		store.ReadText(cp.MemoryFile(tf), ""),
		store.ReadText(cp.WeightFile(tf), ""),
		store.ReadText(cp.WeightHighFile(tf), ""),
		store.ReadText(cp.WeightLowFile(tf), ""),
		threshold,
	)
}

// SaveMemory writes all five files for one coin and timeframe.
func SaveMemory(cp paths.CoinPaths, tf string, m *pattern.Memory) error {
	if err := store.WriteText(cp.MemoryFile(tf), pattern.EncodeMemoryText(m)); err != nil {
		return err
	}
	if err := store.WriteText(cp.WeightFile(tf), pattern.EncodeWeights(m.Weights)); err != nil {
		return err
	}
	if err := store.WriteText(cp.WeightHighFile(tf), pattern.EncodeWeights(m.WeightsHigh)); err != nil {
		return err
	}
	if err := store.WriteText(cp.WeightLowFile(tf), pattern.EncodeWeights(m.WeightsLow)); err != nil {
		return err
	}
	return store.WriteSignal(cp.ThresholdFile(tf), m.Threshold)
}

// HasAnyMemory reports whether at least one memory file exists for the
// given coins. Used as a freshness fallback when the last-training-time
// file is absent.
func HasAnyMemory(baseDir string, coins []string) bool {
	for _, coin := range coins {
		cp := paths.NewCoinPaths(baseDir, coin)
		for _, tf := range pattern.Timeframes {
			if _, err := os.Stat(cp.MemoryFile(tf)); err == nil {
				return true
			}
		}
	}
	return false
}

// LastTrainingTime returns when training last completed, or the zero
// time when no run has finished yet.
func LastTrainingTime(baseDir string) time.Time {
	raw := strings.TrimSpace(store.ReadText(filepath.Join(baseDir, paths.LastTrainingTimeFilename), ""))
	if raw == "" {
		return time.Time{}
	}
	// Accept both unix seconds and a float (older writers).
	if sec, err := strconv.ParseFloat(raw, 64); err == nil && sec > 0 {
		return time.Unix(int64(sec), 0)
	}
	return time.Time{}
}

// ForceRetrain wipes every training artifact so the next run starts
// from scratch: run-state files plus all memories, weights and
// thresholds for the given coins.
func ForceRetrain(baseDir string, coins []string) {
	for _, name := range []string{
		paths.LastTrainingTimeFilename,
		paths.TrainerStatusFilename,
		paths.CheckpointFilename,
		paths.TrainerProgressFilename,
		paths.KillerFilename,
	} {
		os.Remove(filepath.Join(baseDir, name))
	}
	for _, coin := range coins {
		cp := paths.NewCoinPaths(baseDir, coin)
		for _, tf := range pattern.Timeframes {
			os.Remove(cp.MemoryFile(tf))
			os.Remove(cp.WeightFile(tf))
			os.Remove(cp.WeightHighFile(tf))
			os.Remove(cp.WeightLowFile(tf))
			os.Remove(cp.ThresholdFile(tf))
		}
	}
}
