// Package setup performs the console's configuration operations against Kafka Connect,
// ksqlDB and the schema registry: provisioning the source, the database targets tables,
// per-database sinks and the targets of an account. Every step is reported to a Notifier.
package setup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/edgeflare/replica/pkg/connect"
	"github.com/edgeflare/replica/pkg/ksql"
	"github.com/edgeflare/replica/pkg/names"
	"github.com/edgeflare/replica/pkg/notify"
	"github.com/edgeflare/replica/pkg/registry"
	"github.com/go-playground/validator"
	"go.uber.org/zap"
)

// Connectors manages Kafka Connect connectors.
type Connectors interface {
	Create(ctx context.Context, name string, config connect.Config) error
	Delete(ctx context.Context, name string) error
}

// Statements runs ksqlDB statements.
type Statements interface {
	Execute(ctx context.Context, stmt string) ([]json.RawMessage, error)
	Targets(ctx context.Context, accountID int) ([]string, error)
}

// Schemas registers subject schemas.
type Schemas interface {
	CreateSchema(ctx context.Context, subject string, schema any) (int, error)
}

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeExists  Outcome = "exists"
	OutcomeDeleted Outcome = "deleted"
	OutcomeAbsent  Outcome = "absent"
	OutcomeFailed  Outcome = "failed"
)

// Step is one resource change of an operation.
type Step struct {
	Kind     string   `json:"kind"`
	Resource string   `json:"resource"`
	Outcome  Outcome  `json:"outcome"`
	Error    string   `json:"error,omitempty"`
	Blockers []string `json:"blockers,omitempty"`
}

// Report collects the steps an operation ran, in order. A failed step ends the operation.
type Report struct {
	Operation string `json:"operation"`
	Steps     []Step `json:"steps"`
}

// Failed reports whether any step failed.
func (r *Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// Service runs setup operations.
type Service struct {
	connectors Connectors
	statements Statements
	schemas    Schemas
	notifier   notify.Notifier
	logger     *zap.Logger
	validate   *validator.Validate
	cluster    connect.Cluster
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCluster sets the Kafka and schema registry endpoints written into connector configs.
func WithCluster(c connect.Cluster) Option {
	return func(s *Service) { s.cluster = c }
}

func NewService(connectors Connectors, statements Statements, schemas Schemas, opts ...Option) *Service {
	s := &Service{
		connectors: connectors,
		statements: statements,
		schemas:    schemas,
		notifier:   notify.Nop,
		logger:     zap.NewNop(),
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subjects name the resource family in notifications.
const (
	subjectSource  = "source"
	subjectTargets = "database targets"
	subjectSink    = "sink"

	kindSchema    = "Schema"
	kindTable     = "KSQL Table"
	kindConnector = "Connector"
)

type run struct {
	s      *Service
	report *Report
}

func (s *Service) begin(op string) *run {
	return &run{s: s, report: &Report{Operation: op}}
}

func (r *run) notify(ctx context.Context, n notify.Notification) {
	if err := r.s.notifier.Notify(ctx, n); err != nil {
		r.s.logger.Warn("notification delivery failed", zap.String("title", n.Title), zap.Error(err))
	}
}

func (r *run) record(step Step) {
	r.report.Steps = append(r.report.Steps, step)
	r.s.logger.Info("setup step",
		zap.String("operation", r.report.Operation),
		zap.String("kind", step.Kind),
		zap.String("resource", step.Resource),
		zap.String("outcome", string(step.Outcome)),
	)
}

// create runs fn; an "already exists" answer counts as done.
func (r *run) create(ctx context.Context, subject, kind, resource string, fn func() error) error {
	err := fn()
	switch {
	case err == nil:
		r.record(Step{Kind: kind, Resource: resource, Outcome: OutcomeCreated})
		r.notify(ctx, notify.Success("Successfully Created "+kind, fmt.Sprintf("The %s %s was created.", subject, lower(kind))))
		return nil
	case errors.Is(err, ksql.ErrAlreadyExists), errors.Is(err, connect.ErrAlreadyExists):
		r.record(Step{Kind: kind, Resource: resource, Outcome: OutcomeExists})
		r.notify(ctx, notify.Warn(kind+" Already Exists", fmt.Sprintf("The %s %s already exists.", subject, lower(kind))))
		return nil
	default:
		r.record(Step{Kind: kind, Resource: resource, Outcome: OutcomeFailed, Error: err.Error()})
		r.notify(ctx, notify.Danger("Failure Creating "+kind,
			fmt.Sprintf("Unexpected error occurred while creating %s %s.", subject, lower(kind))))
		return fmt.Errorf("create %s %s: %w", lower(kind), resource, err)
	}
}

// drop runs fn; a "does not exist" answer counts as done.
func (r *run) drop(ctx context.Context, subject, kind, resource string, fn func() error) error {
	err := fn()
	var needToDrop *ksql.NeedToDropError
	switch {
	case err == nil:
		r.record(Step{Kind: kind, Resource: resource, Outcome: OutcomeDeleted})
		r.notify(ctx, notify.Success("Successfully Deleted "+kind, fmt.Sprintf("The %s %s was deleted.", subject, lower(kind))))
		return nil
	case errors.Is(err, ksql.ErrNotExists), errors.Is(err, connect.ErrNotExists):
		r.record(Step{Kind: kind, Resource: resource, Outcome: OutcomeAbsent})
		r.notify(ctx, notify.Success(kind+" Already Does Not Exist", fmt.Sprintf("The %s %s already does not exist.", subject, lower(kind))))
		return nil
	case errors.As(err, &needToDrop):
		r.record(Step{Kind: kind, Resource: resource, Outcome: OutcomeFailed, Error: err.Error(), Blockers: needToDrop.Items})
		r.notify(ctx, notify.Danger("Failure Deleting "+kind, fmt.Sprintf(
			"Unable to drop %s %s. The following items first need to be dropped: %s.",
			subject, lower(kind), strings.Join(needToDrop.Items, ", "))))
		return fmt.Errorf("drop %s %s: %w", lower(kind), resource, err)
	default:
		r.record(Step{Kind: kind, Resource: resource, Outcome: OutcomeFailed, Error: err.Error()})
		r.notify(ctx, notify.Danger("Failure Deleting "+kind,
			fmt.Sprintf("Unexpected error occurred while deleting %s %s.", subject, lower(kind))))
		return fmt.Errorf("drop %s %s: %w", lower(kind), resource, err)
	}
}

func lower(kind string) string {
	if kind == kindTable {
		return "KSQL table"
	}
	return strings.ToLower(kind)
}

func (s *Service) exec(ctx context.Context, stmt string) func() error {
	return func() error {
		_, err := s.statements.Execute(ctx, stmt)
		return err
	}
}

// SetupSource registers the source value schema, creates the source KSQL table and starts
// the source connector.
func (s *Service) SetupSource(ctx context.Context, in SourceSetup) (*Report, error) {
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}
	r := s.begin("setup source")

	if err := r.create(ctx, subjectSource, kindSchema, names.SourceSubject, func() error {
		_, err := s.schemas.CreateSchema(ctx, names.SourceSubject, registry.SourceSchema())
		return err
	}); err != nil {
		return r.report, err
	}
	if err := r.create(ctx, subjectSource, kindTable, names.SourceTable, s.exec(ctx, ksql.CreateSourceTable())); err != nil {
		return r.report, err
	}
	err := r.create(ctx, subjectSource, kindConnector, names.SourceConnector, func() error {
		return s.connectors.Create(ctx, names.SourceConnector, connect.SourceConfig(in.Database(), in.PollInterval, s.cluster))
	})
	return r.report, err
}

// TeardownSource deletes the source connector and drops the source KSQL table.
func (s *Service) TeardownSource(ctx context.Context) (*Report, error) {
	r := s.begin("teardown source")
	if err := r.drop(ctx, subjectSource, kindConnector, names.SourceConnector, func() error {
		return s.connectors.Delete(ctx, names.SourceConnector)
	}); err != nil {
		return r.report, err
	}
	err := r.drop(ctx, subjectSource, kindTable, names.SourceTable, s.exec(ctx, ksql.DropTable(names.SourceTable)))
	return r.report, err
}

// SetupTargets creates the account targets table and its queryable copy.
func (s *Service) SetupTargets(ctx context.Context) (*Report, error) {
	r := s.begin("setup targets")
	if err := r.create(ctx, subjectTargets, kindTable, names.TargetsTable, s.exec(ctx, ksql.CreateTargetsTable())); err != nil {
		return r.report, err
	}
	err := r.create(ctx, subjectTargets, kindTable, names.TargetsTableQueryable, s.exec(ctx, ksql.CreateTargetsQueryable()))
	return r.report, err
}

// TeardownTargets drops the queryable targets table, then the targets table.
func (s *Service) TeardownTargets(ctx context.Context) (*Report, error) {
	r := s.begin("teardown targets")
	if err := r.drop(ctx, subjectTargets, kindTable, names.TargetsTableQueryable, s.exec(ctx, ksql.DropTable(names.TargetsTableQueryable))); err != nil {
		return r.report, err
	}
	err := r.drop(ctx, subjectTargets, kindTable, names.TargetsTable, s.exec(ctx, ksql.DropTable(names.TargetsTable)))
	return r.report, err
}

// SetupSink creates the sink's KSQL table and its JDBC sink connector.
func (s *Service) SetupSink(ctx context.Context, in SinkSetup) (*Report, error) {
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}
	r := s.begin("setup sink")
	name := in.ConnectorName()

	if err := r.create(ctx, subjectSink, kindTable, name, s.exec(ctx, ksql.CreateSinkTable(in.Hostname, in.Name, in.Table))); err != nil {
		return r.report, err
	}
	err := r.create(ctx, subjectSink, kindConnector, name, func() error {
		return s.connectors.Create(ctx, name, connect.SinkConfig(in.Database(), in.Table, s.cluster))
	})
	return r.report, err
}

// TeardownSink deletes the sink connector and drops the sink KSQL table.
func (s *Service) TeardownSink(ctx context.Context, host, db, table string) (*Report, error) {
	if host == "" || db == "" || table == "" {
		return nil, &ValidationError{Fields: missing(map[string]string{"Hostname": host, "Name": db, "Table": table})}
	}
	r := s.begin("teardown sink")
	name := names.Sink(host, db, table)

	if err := r.drop(ctx, subjectSink, kindConnector, name, func() error {
		return s.connectors.Delete(ctx, name)
	}); err != nil {
		return r.report, err
	}
	err := r.drop(ctx, subjectSink, kindTable, name, s.exec(ctx, ksql.DropTable(name)))
	return r.report, err
}

// AssignTargets replaces the database targets of an account.
func (s *Service) AssignTargets(ctx context.Context, in TargetAssignment) (*Report, error) {
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}
	r := s.begin("assign targets")
	resource := fmt.Sprintf("%s/%d", names.TargetsTable, in.AccountID)

	if _, err := s.statements.Execute(ctx, ksql.InsertTargets(in.AccountID, in.Targets)); err != nil {
		r.record(Step{Kind: kindTable, Resource: resource, Outcome: OutcomeFailed, Error: err.Error()})
		r.notify(ctx, notify.Danger("Failed to Configure Target", "Unexpected error occurred."))
		return r.report, fmt.Errorf("assign targets of account %d: %w", in.AccountID, err)
	}
	r.record(Step{Kind: kindTable, Resource: resource, Outcome: OutcomeCreated})
	r.notify(ctx, notify.Success("Successfully Configured Target",
		fmt.Sprintf("The database target for account %d was successfully configured.", in.AccountID)))
	return r.report, nil
}

// Targets returns the database targets currently assigned to an account.
func (s *Service) Targets(ctx context.Context, accountID int) ([]string, error) {
	if accountID < 1 {
		return nil, &ValidationError{Fields: map[string]string{"AccountID": "min"}}
	}
	return s.statements.Targets(ctx, accountID)
}

func missing(fields map[string]string) map[string]string {
	out := make(map[string]string)
	for f, v := range fields {
		if v == "" {
			out[f] = "required"
		}
	}
	return out
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}
