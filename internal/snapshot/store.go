// Package snapshot persists the agent graphs after every aggregation round.
//
// Each Save call exports the graph to its JSON GraphDefinition and stores it
// as one row keyed by run, generation and agent. A run is identified by a
// UUID generated when the Store is created.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/fedtpg/learn"
	"github.com/BaSui01/fedtpg/mutator"
	"github.com/BaSui01/fedtpg/tpg"
)

// ErrNotFound is returned when no snapshot matches a query.
var ErrNotFound = errors.New("snapshot: not found")

// GraphSnapshot is one stored graph.
type GraphSnapshot struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"size:36;not null;index:idx_graph_snapshots_run,priority:1"`
	Generation uint64 `gorm:"not null;index:idx_graph_snapshots_run,priority:2"`
	Agent      int    `gorm:"not null;index:idx_graph_snapshots_run,priority:3"`
	Vertices   int
	Edges      int
	Roots      int
	Definition string `gorm:"type:text;not null"`
	CreatedAt  time.Time
}

// TableName 指定表名
func (GraphSnapshot) TableName() string { return "graph_snapshots" }

// QueryRecorder records query latencies. *metrics.Collector implements it.
type QueryRecorder interface {
	RecordDBQuery(database, operation string, duration time.Duration)
}

// Store implements learn.Snapshotter on top of gorm.
type Store struct {
	db       *gorm.DB
	runID    string
	logger   *zap.Logger
	recorder QueryRecorder
}

var _ learn.Snapshotter = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRunID overrides the generated run id, for example to resume a run.
func WithRunID(id string) Option {
	return func(s *Store) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQueryRecorder reports the duration of every query.
func WithQueryRecorder(r QueryRecorder) Option {
	return func(s *Store) { s.recorder = r }
}

// NewStore creates a store writing to db. Call Migrate once before use.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		runID:  uuid.NewString(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "snapshot_store"), zap.String("run_id", s.runID))
	return s
}

// RunID returns the identifier shared by every snapshot of this store.
func (s *Store) RunID() string { return s.runID }

// Migrate creates or updates the snapshot table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&GraphSnapshot{}); err != nil {
		return fmt.Errorf("migrate snapshots: %w", err)
	}
	return nil
}

func (s *Store) observe(operation string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordDBQuery("snapshots", operation, time.Since(start))
	}
}

// Save exports g and stores it for (generation, agent).
func (s *Store) Save(ctx context.Context, generation uint64, agent learn.AgentID, g *tpg.Graph) error {
	def := tpg.Export(g)
	def.Name = fmt.Sprintf("agent-%d", agent)
	def.Metadata = map[string]string{
		"run_id":     s.runID,
		"generation": strconv.FormatUint(generation, 10),
	}
	body, err := def.ToJSON()
	if err != nil {
		return fmt.Errorf("snapshot agent %d: %w", agent, err)
	}

	row := GraphSnapshot{
		RunID:      s.runID,
		Generation: generation,
		Agent:      int(agent),
		Vertices:   g.NbVertices(),
		Edges:      g.NbEdges(),
		Roots:      len(mutator.RootTeams(g)),
		Definition: body,
	}
	start := time.Now()
	err = s.db.WithContext(ctx).Create(&row).Error
	s.observe("insert", start)
	if err != nil {
		return fmt.Errorf("snapshot agent %d: %w", agent, err)
	}

	s.logger.Debug("graph snapshot saved",
		zap.Uint64("generation", generation),
		zap.Int("agent", int(agent)),
		zap.Int("vertices", row.Vertices),
		zap.Int("edges", row.Edges),
	)
	return nil
}

// List returns the snapshots of runID ordered by generation then agent.
func (s *Store) List(ctx context.Context, runID string) ([]GraphSnapshot, error) {
	var rows []GraphSnapshot
	start := time.Now()
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("generation ASC").Order("agent ASC").
		Find(&rows).Error
	s.observe("select", start)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return rows, nil
}

// Latest returns the most recent snapshot of agent in runID.
func (s *Store) Latest(ctx context.Context, runID string, agent learn.AgentID) (*GraphSnapshot, error) {
	var row GraphSnapshot
	start := time.Now()
	err := s.db.WithContext(ctx).
		Where("run_id = ? AND agent = ?", runID, int(agent)).
		Order("generation DESC").
		First(&row).Error
	s.observe("select", start)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: run %s agent %d", ErrNotFound, runID, agent)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &row, nil
}

// Graph rebuilds the stored graph.
func (gs *GraphSnapshot) Graph() (*tpg.Graph, error) {
	def, err := tpg.FromJSON(gs.Definition)
	if err != nil {
		return nil, err
	}
	return tpg.Import(def)
}
