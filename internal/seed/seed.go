// Package seed populates an empty storage directory with a starter market:
// six sectors, a bench of agents per sector, and discussions carrying
// checklists in every lifecycle stage. A YAML fixture file can override the
// built-in dataset.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/maxmarket/maxd/internal/debug"
	"github.com/maxmarket/maxd/internal/store"
	"github.com/maxmarket/maxd/internal/types"
)

var sectorDefs = []struct {
	ID, Name, Symbol string
}{
	{"tech", "Technology", "TECH"},
	{"healthcare", "Healthcare", "HLTH"},
	{"finance", "Financial", "FINC"},
	{"energy", "Energy", "ENRG"},
	{"consumer", "Consumer Goods", "CSGD"},
	{"industrial", "Industrial", "INDU"},
}

var agentRoles = []string{"trader", "analyst", "manager", "advisor", "arbitrage", "general"}

var discussionTitles = []string{
	"Market Outlook Discussion",
	"Sector Analysis Roundtable",
	"Trading Strategy Session",
	"Risk Assessment Meeting",
	"Performance Review",
	"Market Trends Analysis",
	"Investment Opportunities",
	"Sector Performance Review",
}

var messageTemplates = []string{
	"I think we should consider the recent market trends in our analysis.",
	"The data suggests a potential shift in sector dynamics.",
	"We need to reassess our risk tolerance given current conditions.",
	"I recommend a more conservative approach based on recent volatility.",
	"The technical indicators point to a bullish trend.",
	"We should diversify our portfolio to mitigate risks.",
	"Market sentiment appears to be shifting towards growth sectors.",
	"I've analyzed the historical data and see some interesting patterns.",
}

// Options controls what the seeder generates.
type Options struct {
	AgentsPerSector      int
	DiscussionsPerSector int
	Force                bool   // overwrite non-empty collections
	FixtureFile          string // optional YAML override
}

// Result counts what a seed run wrote.
type Result struct {
	Sectors     int
	Agents      int
	Discussions int
	Skipped     bool
}

// ErrAlreadySeeded is returned when sectors already exist and Force is off.
var ErrAlreadySeeded = fmt.Errorf("storage already seeded")

// Seeder writes the starter dataset through the store.
type Seeder struct {
	sectors     store.Collection[types.Sector]
	agents      store.Collection[types.Agent]
	discussions store.Collection[types.Discussion]
	now         func() time.Time
	rng         *rand.Rand
}

func New(s *store.Store) *Seeder {
	return &Seeder{
		sectors:     store.NewCollection[types.Sector](s, store.CollectionSectors),
		agents:      store.NewCollection[types.Agent](s, store.CollectionAgents),
		discussions: store.NewCollection[types.Discussion](s, store.CollectionDiscussions),
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run generates and persists the dataset. Idempotent: a second run against a
// seeded directory returns ErrAlreadySeeded unless opts.Force is set.
func (sd *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	if opts.AgentsPerSector <= 0 {
		opts.AgentsPerSector = 5
	}
	if opts.DiscussionsPerSector <= 0 {
		opts.DiscussionsPerSector = 3
	}

	existing, err := sd.sectors.Read(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(existing) > 0 && !opts.Force {
		return Result{Skipped: true}, ErrAlreadySeeded
	}

	var fx *fixture
	if opts.FixtureFile != "" {
		fx, err = loadFixture(opts.FixtureFile)
		if err != nil {
			return Result{}, err
		}
	}

	sectors := sd.buildSectors(fx)
	agents := sd.buildAgents(sectors, opts.AgentsPerSector, fx)
	discussions := sd.buildDiscussions(sectors, agents, opts.DiscussionsPerSector)

	if err := sd.sectors.Write(ctx, sectors); err != nil {
		return Result{}, err
	}
	if err := sd.agents.Write(ctx, agents); err != nil {
		return Result{}, err
	}
	if err := sd.discussions.Write(ctx, discussions); err != nil {
		return Result{}, err
	}

	debug.Logf("seed: wrote %d sectors, %d agents, %d discussions",
		len(sectors), len(agents), len(discussions))
	return Result{
		Sectors:     len(sectors),
		Agents:      len(agents),
		Discussions: len(discussions),
	}, nil
}

func (sd *Seeder) buildSectors(fx *fixture) []types.Sector {
	defs := sectorDefs
	if fx != nil && len(fx.Sectors) > 0 {
		defs = defs[:0:0]
		for _, fs := range fx.Sectors {
			defs = append(defs, struct{ ID, Name, Symbol string }{fs.ID, fs.Name, fs.Symbol})
		}
	}

	now := sd.now().UTC()
	sectors := make([]types.Sector, 0, len(defs))
	for _, def := range defs {
		basePrice := 100 + sd.rng.Float64()*900
		change := -50 + sd.rng.Float64()*100
		sectors = append(sectors, types.Sector{
			ID:            def.ID,
			Name:          def.Name,
			Symbol:        def.Symbol,
			CreatedAt:     now,
			CurrentPrice:  basePrice,
			Change:        change,
			ChangePercent: change / basePrice * 100,
			Volume:        100000 + sd.rng.Intn(9900001),
		})
	}
	return sectors
}

func (sd *Seeder) buildAgents(sectors []types.Sector, perSector int, fx *fixture) []types.Agent {
	if fx != nil && fx.AgentsPerSector > 0 {
		perSector = fx.AgentsPerSector
	}

	statuses := []types.AgentStatus{types.AgentActive, types.AgentIdle, types.AgentProcessing}
	now := sd.now().UTC()
	agents := make([]types.Agent, 0, len(sectors)*perSector)
	for _, sec := range sectors {
		for i := 0; i < perSector; i++ {
			role := agentRoles[sd.rng.Intn(len(agentRoles))]
			agents = append(agents, types.Agent{
				ID:          uuid.NewString(),
				Name:        fmt.Sprintf("%s Agent %d", capitalize(role), i+1),
				Role:        role,
				Status:      statuses[sd.rng.Intn(len(statuses))],
				Performance: -10 + sd.rng.Float64()*25,
				Trades:      sd.rng.Intn(101),
				SectorID:    sec.ID,
				Personality: sd.personalityFor(role),
				CreatedAt:   now.AddDate(0, 0, -sd.rng.Intn(31)),
			})
		}
	}
	return agents
}

// personalityFor assigns role-typed traits; unknown roles get random ones.
func (sd *Seeder) personalityFor(role string) types.AgentPersonality {
	pick := func(opts ...string) string { return opts[sd.rng.Intn(len(opts))] }
	switch role {
	case "trader":
		return types.AgentPersonality{
			RiskTolerance:      pick("Medium", "High", "Aggressive"),
			DecisionStyle:      pick("Analytical", "Intuitive"),
			CommunicationStyle: "direct",
		}
	case "analyst":
		return types.AgentPersonality{
			RiskTolerance:      pick("Low", "Medium"),
			DecisionStyle:      "Analytical",
			CommunicationStyle: "detailed",
		}
	case "manager":
		return types.AgentPersonality{
			RiskTolerance:      "Medium",
			DecisionStyle:      "Balanced",
			CommunicationStyle: "authoritative",
		}
	case "advisor":
		return types.AgentPersonality{
			RiskTolerance:      pick("Low", "Medium"),
			DecisionStyle:      "Conservative",
			CommunicationStyle: "persuasive",
		}
	case "arbitrage":
		return types.AgentPersonality{
			RiskTolerance:      "Low",
			DecisionStyle:      "Analytical",
			CommunicationStyle: "technical",
		}
	default:
		return types.AgentPersonality{
			RiskTolerance:      pick("Low", "Medium", "High", "Aggressive"),
			DecisionStyle:      pick("Analytical", "Intuitive", "Balanced", "Conservative"),
			CommunicationStyle: "neutral",
		}
	}
}

func (sd *Seeder) buildDiscussions(sectors []types.Sector, agents []types.Agent, perSector int) []types.Discussion {
	bySector := make(map[string][]types.Agent)
	for _, a := range agents {
		bySector[a.SectorID] = append(bySector[a.SectorID], a)
	}

	statuses := []types.Status{
		types.StatusCreated, types.StatusInProgress, types.StatusDecided, types.StatusClosed,
	}

	now := sd.now().UTC()
	var discussions []types.Discussion
	for _, sec := range sectors {
		roster := bySector[sec.ID]
		if len(roster) == 0 {
			continue
		}
		for i := 0; i < perSector; i++ {
			createdAt := now.AddDate(0, 0, -sd.rng.Intn(8))
			updatedAt := createdAt.Add(time.Duration(1+sd.rng.Intn(48)) * time.Hour)
			status := statuses[i%len(statuses)]

			d := types.Discussion{
				ID:        uuid.NewString(),
				SectorID:  sec.ID,
				Title:     discussionTitles[sd.rng.Intn(len(discussionTitles))],
				Status:    status,
				CreatedAt: createdAt,
				UpdatedAt: updatedAt,
			}

			count := 3 + sd.rng.Intn(6)
			if count > len(roster) {
				count = len(roster)
			}
			for j := 0; j < count; j++ {
				agent := roster[j]
				d.AgentIDs = append(d.AgentIDs, agent.ID)
				d.Messages = append(d.Messages, types.Message{
					ID:           uuid.NewString(),
					DiscussionID: d.ID,
					AgentID:      agent.ID,
					AgentName:    agent.Name,
					Content:      messageTemplates[sd.rng.Intn(len(messageTemplates))],
					Timestamp:    createdAt.Add(time.Duration(5+sd.rng.Intn(60*(j+1))) * time.Minute),
				})
			}

			// Decided and closed discussions must carry a checklist; others
			// get one pending item so the watchdog has work on a fresh seed.
			d.Checklist = []types.ChecklistItem{{
				ID:        uuid.NewString(),
				Title:     "Execute " + sec.Name + " strategy adjustment",
				Status:    types.ChecklistPending,
				CreatedAt: createdAt,
				UpdatedAt: updatedAt,
			}}
			switch status {
			case types.StatusDecided:
				d.Checklist[0].Status = types.ChecklistApproved
				decidedAt := updatedAt
				d.DecidedAt = &decidedAt
			case types.StatusClosed:
				d.Checklist[0].Status = types.ChecklistApproved
				decidedAt := updatedAt
				closedAt := updatedAt.Add(time.Hour)
				d.DecidedAt = &decidedAt
				d.ClosedAt = &closedAt
			}

			discussions = append(discussions, d)
		}
	}
	return discussions
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// fixture is the YAML override schema for maxd seed --file.
type fixture struct {
	Sectors []struct {
		ID     string `yaml:"id"`
		Name   string `yaml:"name"`
		Symbol string `yaml:"symbol"`
	} `yaml:"sectors"`
	AgentsPerSector int `yaml:"agentsPerSector"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for _, sec := range fx.Sectors {
		if sec.ID == "" || sec.Symbol == "" {
			return nil, fmt.Errorf("fixture %s: every sector needs an id and symbol", path)
		}
	}
	return &fx, nil
}
