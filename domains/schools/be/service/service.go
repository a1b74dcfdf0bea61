package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencampus-io/campus-saas/platform/go/persistence"
	"github.com/opencampus-io/campus-saas/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrNotFound     = errors.New("school not found")
	ErrConflictCode = errors.New("school code already registered")
)

// Status captures where a school is in its lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// School is one directory entry. The directory lives in the shared admin
// database; each school's own data lives in its dedicated database.
type School struct {
	ID           uuid.UUID
	Code         string // normalized, used for database routing
	DisplayCode  string // as registered, used for external IDs
	Name         string
	DatabaseName string
	Status       Status
	CreatedAt    time.Time
}

// RegisterInput represents a school registration request.
type RegisterInput struct {
	Code string
	Name string
}

// Repository abstracts directory persistence.
type Repository interface {
	Create(ctx context.Context, s School) (School, error)
	Get(ctx context.Context, code string) (School, error)
	List(ctx context.Context) ([]School, error)
	SetStatus(ctx context.Context, code string, status Status) error
}

// DBProvisioner prepares a school's dedicated database. Idempotent.
type DBProvisioner interface {
	Provision(ctx context.Context, code string) (persistence.ProvisionResult, error)
}

// SequenceAllocator mints the next per-school counter for an entity type.
type SequenceAllocator interface {
	Next(ctx context.Context, code string, entity string) (int64, error)
}

// Service provides school directory operations and user-ID minting.
type Service struct {
	repo        Repository
	provisioner DBProvisioner
	sequencer   SequenceAllocator
	logger      *zap.Logger
}

// New constructs a Service with required dependencies.
func New(repo Repository, provisioner DBProvisioner, sequencer SequenceAllocator, logger *zap.Logger) *Service {
	if repo == nil {
		panic("schools repo is required")
	}
	if provisioner == nil {
		panic("db provisioner is required")
	}
	if sequencer == nil {
		panic("sequence allocator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, provisioner: provisioner, sequencer: sequencer, logger: logger}
}

// Register creates a directory entry and provisions the school's database.
// On provisioning failure the entry is kept in pending state; Reprovision is
// the recovery path.
func (s *Service) Register(ctx context.Context, input RegisterInput) (School, error) {
	normalized, err := tenant.NormalizeCode(input.Code)
	if err != nil {
		return School{}, err
	}
	databaseName, err := tenant.DatabaseName(input.Code)
	if err != nil {
		return School{}, err
	}

	created, err := s.repo.Create(ctx, School{
		ID:           uuid.New(),
		Code:         normalized,
		DisplayCode:  strings.TrimSpace(input.Code),
		Name:         strings.TrimSpace(input.Name),
		DatabaseName: databaseName,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return School{}, err
	}

	ctx = withSchoolSpace(ctx, created)
	if _, err := s.provisioner.Provision(ctx, created.Code); err != nil {
		s.logger.Error("school provisioning failed",
			zap.String("school", created.Code),
			zap.Error(err),
		)
		return created, err
	}

	if err := s.repo.SetStatus(ctx, created.Code, StatusActive); err != nil {
		return created, err
	}
	created.Status = StatusActive

	s.logger.Info("school registered",
		zap.String("school", created.Code),
		zap.String("database", created.DatabaseName),
	)
	return created, nil
}

// Reprovision re-runs idempotent provisioning for an existing school and
// activates it on success.
func (s *Service) Reprovision(ctx context.Context, code string) (persistence.ProvisionResult, error) {
	normalized, err := tenant.NormalizeCode(code)
	if err != nil {
		return persistence.ProvisionResult{}, err
	}
	school, err := s.repo.Get(ctx, normalized)
	if err != nil {
		return persistence.ProvisionResult{}, err
	}

	ctx = withSchoolSpace(ctx, school)
	result, err := s.provisioner.Provision(ctx, normalized)
	if err != nil {
		return persistence.ProvisionResult{}, err
	}

	if err := s.repo.SetStatus(ctx, normalized, StatusActive); err != nil {
		return result, err
	}
	return result, nil
}

// Get returns the directory entry for a code (any casing).
func (s *Service) Get(ctx context.Context, code string) (School, error) {
	normalized, err := tenant.NormalizeCode(code)
	if err != nil {
		return School{}, err
	}
	return s.repo.Get(ctx, normalized)
}

// List returns all directory entries.
func (s *Service) List(ctx context.Context) ([]School, error) {
	return s.repo.List(ctx)
}

// MintUserID allocates the next counter for the role on the school's own
// database and renders the external identifier using the school's display
// code. The counter is burned even if the caller's subsequent insert fails.
func (s *Service) MintUserID(ctx context.Context, code string, role tenant.Role) (string, error) {
	normalized, err := tenant.NormalizeCode(code)
	if err != nil {
		return "", err
	}
	school, err := s.repo.Get(ctx, normalized)
	if err != nil {
		return "", err
	}

	ctx = withSchoolSpace(ctx, school)
	n, err := s.sequencer.Next(ctx, school.Code, string(role))
	if err != nil {
		return "", err
	}
	return tenant.FormatID(school.DisplayCode, role, n), nil
}

// withSchoolSpace attaches the school's routing metadata to the context so
// downstream persistence calls and their logs can see which tenant they
// serve.
func withSchoolSpace(ctx context.Context, s School) context.Context {
	return tenant.WithSpace(ctx, tenant.Space{
		Code:         s.Code,
		DisplayCode:  s.DisplayCode,
		DatabaseName: s.DatabaseName,
	})
}
