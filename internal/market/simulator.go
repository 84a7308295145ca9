// Package market generates synthetic price movement for sectors.
//
// Each tick walks every sector's price with a blend of trend bias, a sine
// wave for smooth curves, momentum, and noise, then appends a candle point
// and recomputes the change metrics. The whole tick persists through a
// single atomic update on the sectors collection, so concurrent ticks (or
// a tick racing a seed) never lose writes.
package market

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/store"
	"github.com/maxmarket/maxd/internal/types"
)

// Trend directions a sector can be in.
const (
	trendUp       = "up"
	trendDown     = "down"
	trendVolatile = "volatile"
)

// trendState tracks per-sector walk state between ticks. It is
// process-local; a restart just re-rolls the trend.
type trendState struct {
	trend     string
	wavePhase float64
	momentum  float64
}

// Simulator advances sector prices. Safe for concurrent use.
type Simulator struct {
	sectors      store.Collection[types.Sector]
	agents       store.Collection[types.Agent]
	candleWindow int
	now          func() time.Time

	mu     sync.Mutex
	rng    *rand.Rand
	trends map[string]*trendState
}

// NewSimulator creates a Simulator over the given store. candleWindow caps
// the number of retained candle points per sector (0 means keep all).
func NewSimulator(s *store.Store, candleWindow int) *Simulator {
	return &Simulator{
		sectors:      store.NewCollection[types.Sector](s, store.CollectionSectors),
		agents:       store.NewCollection[types.Agent](s, store.CollectionAgents),
		candleWindow: candleWindow,
		now:          time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		trends:       make(map[string]*trendState),
	}
}

// Tick advances every sector one step and persists the result atomically.
// Returns the number of sectors updated.
func (s *Simulator) Tick(ctx context.Context) (int, error) {
	now := s.now().UTC()
	label := now.Format("15:04")

	return store.Update(ctx, s.sectors,
		func(docs []types.Sector) ([]types.Sector, int, error) {
			if len(docs) == 0 {
				return docs, 0, store.ErrNoChange
			}
			for i := range docs {
				s.advance(&docs[i], label)
			}
			debug.Logf("market: ticked %d sectors at %s", len(docs), label)
			return docs, len(docs), nil
		})
}

// advance walks one sector's price and updates its derived metrics.
func (s *Simulator) advance(sec *types.Sector, label string) {
	basePrice := sec.CurrentPrice
	if len(sec.CandleData) > 0 {
		basePrice = sec.CandleData[len(sec.CandleData)-1].Value
	}
	if basePrice <= 0 {
		basePrice = 100.0
	}

	newPrice := s.nextPrice(sec.ID, basePrice)

	oldPrice := sec.CurrentPrice
	if oldPrice <= 0 {
		oldPrice = basePrice
	}
	sec.Change = newPrice - oldPrice
	if oldPrice > 0 {
		sec.ChangePercent = sec.Change / oldPrice * 100.0
	}
	sec.CurrentPrice = newPrice

	s.mu.Lock()
	sec.Volume = 1000 + s.rng.Intn(9001)
	s.mu.Unlock()

	sec.CandleData = append(sec.CandleData, types.CandlePoint{Time: label, Value: newPrice})
	if s.candleWindow > 0 && len(sec.CandleData) > s.candleWindow {
		sec.CandleData = sec.CandleData[len(sec.CandleData)-s.candleWindow:]
	}
}

// nextPrice combines trend bias, wave smoothing, momentum, and noise.
// Prices are floored at 0.01.
func (s *Simulator) nextPrice(sectorID string, basePrice float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.trends[sectorID]
	if !ok {
		st = &trendState{
			trend:     s.pickTrend(),
			wavePhase: s.rng.Float64() * 2 * math.Pi,
		}
		s.trends[sectorID] = st
	}

	var trendDirection float64
	switch st.trend {
	case trendUp:
		trendDirection = 1.0
	case trendDown:
		trendDirection = -1.0
	default:
		trendDirection = 1.0
		if s.rng.Intn(2) == 0 {
			trendDirection = -1.0
		}
	}

	st.wavePhase += 0.1
	if st.wavePhase > 2*math.Pi {
		st.wavePhase -= 2 * math.Pi
	}
	waveInfluence := math.Sin(st.wavePhase) * 0.3
	momentumFactor := st.momentum * 0.2
	randomChange := (s.rng.Float64() - 0.5) // [-0.5, 0.5)

	changePercent := trendDirection*0.2 + waveInfluence + momentumFactor + randomChange*0.3
	st.momentum = st.momentum*0.7 + changePercent*0.3

	// Occasionally flip the trend so no sector walks one way forever.
	if s.rng.Float64() < 0.1 {
		st.trend = s.pickTrend()
	}

	newPrice := basePrice * (1 + changePercent/100.0)
	return math.Max(0.01, newPrice)
}

func (s *Simulator) pickTrend() string {
	switch s.rng.Intn(3) {
	case 0:
		return trendUp
	case 1:
		return trendDown
	default:
		return trendVolatile
	}
}

// RotateAgents shuffles a fraction of agents between activity states and
// drifts their trade counters, so the market looks alive between real agent
// work. Roughly one in five agents changes per call.
func (s *Simulator) RotateAgents(ctx context.Context) (int, error) {
	statuses := []types.AgentStatus{types.AgentActive, types.AgentIdle, types.AgentProcessing}

	return store.Update(ctx, s.agents,
		func(docs []types.Agent) ([]types.Agent, int, error) {
			rotated := 0
			s.mu.Lock()
			for i := range docs {
				if docs[i].Status == types.AgentOffline {
					continue
				}
				if s.rng.Float64() >= 0.2 {
					continue
				}
				next := statuses[s.rng.Intn(len(statuses))]
				if next == docs[i].Status {
					continue
				}
				docs[i].Status = next
				if next == types.AgentProcessing {
					docs[i].Trades++
					docs[i].Performance += (s.rng.Float64() - 0.45) * 0.5
				}
				rotated++
			}
			s.mu.Unlock()
			if rotated == 0 {
				return docs, 0, store.ErrNoChange
			}
			debug.Logf("market: rotated %d agents", rotated)
			return docs, rotated, nil
		})
}

// Backfill generates a day's worth of history for sectors that have none.
// Sectors that already carry candle data are left alone.
func (s *Simulator) Backfill(ctx context.Context, points int) (int, error) {
	if points <= 0 {
		points = 288
	}
	start := s.now().UTC().Add(-time.Duration(points) * 5 * time.Minute)

	return store.Update(ctx, s.sectors,
		func(docs []types.Sector) ([]types.Sector, int, error) {
			filled := 0
			for i := range docs {
				if len(docs[i].CandleData) > 0 {
					continue
				}
				for p := 0; p < points; p++ {
					label := start.Add(time.Duration(p) * 5 * time.Minute).Format("15:04")
					s.advance(&docs[i], label)
				}
				filled++
			}
			if filled == 0 {
				return docs, 0, store.ErrNoChange
			}
			debug.Logf("market: backfilled %d candle points for %d sectors", points, filled)
			return docs, filled, nil
		})
}
