package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/books_ledger/models")

type EngineOptions struct {
	Store    Store
	Settings config.LedgerSettings
	Locker   utils.Locker
	Audit    AuditNotifier
	// Cache is optional; it only serves GetBalance reads.
	Cache  BalanceCache
	Logger *logrus.Logger
	Clock  func() time.Time
}

// Engine wires the ledger components around one store, locker and policy.
type Engine struct {
	Stock       *StockLedger
	Assemblies  *AssemblyEngine
	Documents   *DocumentBalanceTracker
	Receivables *AllocationEngine
	Payables    *AllocationEngine
	Parties     *PartyBalanceCalculator
	CreditNotes *CreditNoteRegister

	opts EngineOptions
}

func NewEngine(opts EngineOptions) *Engine {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = config.GetLogger()
	}
	if opts.Locker == nil {
		opts.Locker = utils.NewLocalLocker()
	}
	if opts.Audit == nil {
		opts.Audit = NewLogAuditNotifier(opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	defaults := config.DefaultLedgerSettings()
	if opts.Settings.LockTTL <= 0 {
		opts.Settings.LockTTL = defaults.LockTTL
	}
	if opts.Settings.OperationTimeout <= 0 {
		opts.Settings.OperationTimeout = defaults.OperationTimeout
	}

	deps := ledgerDeps{
		store:    opts.Store,
		settings: opts.Settings,
		locker:   opts.Locker,
		audit:    opts.Audit,
		logger:   opts.Logger,
		clock:    opts.Clock,
	}
	stock := &StockLedger{ledgerDeps: deps, cache: opts.Cache}
	documents := &DocumentBalanceTracker{ledgerDeps: deps}
	return &Engine{
		Stock:       stock,
		Assemblies:  &AssemblyEngine{ledgerDeps: deps, stock: stock},
		Documents:   documents,
		Receivables: newAllocationEngine(deps, documents, PartyTypeCustomer),
		Payables:    newAllocationEngine(deps, documents, PartyTypeSupplier),
		Parties:     &PartyBalanceCalculator{ledgerDeps: deps},
		CreditNotes: &CreditNoteRegister{ledgerDeps: deps},
		opts:        opts,
	}
}

// WithSettings returns an engine over the same store and locker running
// under a different policy.
func (e *Engine) WithSettings(settings config.LedgerSettings) *Engine {
	opts := e.opts
	opts.Settings = settings
	return NewEngine(opts)
}

func (e *Engine) Settings() config.LedgerSettings {
	return e.opts.Settings
}

func (e *Engine) Store() Store {
	return e.opts.Store
}

// Allocations picks the receivable or payable allocation engine.
func (e *Engine) Allocations(partyType PartyType) *AllocationEngine {
	if partyType == PartyTypeSupplier {
		return e.Payables
	}
	return e.Receivables
}

type ledgerDeps struct {
	store    Store
	settings config.LedgerSettings
	locker   utils.Locker
	audit    AuditNotifier
	logger   *logrus.Logger
	clock    func() time.Time
}

// start opens a span, applies the operation timeout and pins a correlation
// id on the context. The returned func must be called with the final error.
func (d *ledgerDeps) start(ctx context.Context, name string) (context.Context, func(error)) {
	correlationId := utils.CorrelationIdFromContextOrNew(ctx)
	ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("ledger.business_id", businessId),
		attribute.String("ledger.correlation_id", correlationId),
	))
	ctx, cancel := context.WithTimeout(ctx, d.settings.OperationTimeout)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if !isExpectedError(err) {
				config.LogError(d.logger, "models", name, "ledger operation failed", nil, err)
			}
		}
		cancel()
		span.End()
	}
}

func (d *ledgerDeps) lock(ctx context.Context, keys ...string) (func(), error) {
	return d.locker.Obtain(ctx, keys, d.settings.LockTTL)
}

// notify is fire-and-forget: a failing notifier is logged and ignored.
func (d *ledgerDeps) notify(ctx context.Context, businessId string, action AuditAction, entityType string, entityId int, description string) {
	if d.audit == nil {
		return
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	event := AuditEvent{
		BusinessId:    businessId,
		Actor:         utils.ActorFromContext(ctx),
		UserId:        userId,
		Action:        action,
		EntityType:    entityType,
		EntityId:      entityId,
		Description:   description,
		CorrelationId: utils.CorrelationIdFromContextOrNew(ctx),
		OccurredAt:    d.clock(),
	}
	if err := d.audit.Notify(context.WithoutCancel(ctx), event); err != nil {
		config.LogError(d.logger, "models", "notify", "audit notifier failed", event, err)
	}
}

func businessIdFrom(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", utils.ErrorBusinessIdRequired
	}
	return businessId, nil
}

func dateOrNow(date *time.Time, clock func() time.Time) time.Time {
	if date != nil && !date.IsZero() {
		return *date
	}
	return clock()
}

// isExpectedError reports domain and input errors that callers handle;
// anything else is logged as a failure.
func isExpectedError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientComponent) ||
		errors.Is(err, ErrAssemblyNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidReferenceType) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrDuplicateDocument) ||
		errors.Is(err, utils.ErrorRecordNotFound) ||
		errors.Is(err, utils.ErrorBusinessIdRequired) ||
		errors.As(err, &validationErrors)
}

func actorAndCorrelation(ctx context.Context) (string, string) {
	return utils.ActorFromContext(ctx), utils.CorrelationIdFromContextOrNew(ctx)
}
