package viewsearch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/auth"
	"github.com/hugr-lab/viewsearch/catalog"
	"github.com/hugr-lab/viewsearch/filter"
	"github.com/hugr-lab/viewsearch/internal/recovery"
	"github.com/hugr-lab/viewsearch/snapshot"
)

// Config contains configuration for an Engine.
type Config struct {
	// Catalog provides the search views.
	// REQUIRED: MUST NOT be nil.
	Catalog catalog.Catalog

	// Analyzers resolves analyzer names used by views and predicates.
	// OPTIONAL: a catalog holding only the identity analyzer if nil.
	Analyzers *analysis.Catalog

	// Strict rejects phrase and geo predicates whose analyzer is not
	// configured for the field. When false they fall back to evaluation
	// against stored documents.
	Strict bool

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses the level of Logger.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// Registerer receives the engine metrics.
	// OPTIONAL: metrics are not registered anywhere if nil.
	Registerer prometheus.Registerer

	// Workers bounds concurrent document analysis per view writer.
	// OPTIONAL: defaults to runtime.GOMAXPROCS(0).
	Workers int

	// Auth provides authentication for ServerOptions.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	Auth auth.Authenticator

	// Authorizer decides which views an identity may search.
	// OPTIONAL: If nil, every view is searchable.
	Authorizer auth.ViewAuthorizer

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	// Recommended: 16MB for large Arrow batches.
	MaxMessageSize int
}

// Standard errors returned by the viewsearch package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid engine config")

	// ErrDataSourceNotFound indicates the named view does not exist.
	ErrDataSourceNotFound = errors.New("data source not found")

	// ErrBadParameter indicates a structurally invalid predicate.
	ErrBadParameter = filter.ErrBadParameter

	// ErrNoSnapshot is returned by a Find search when the transaction holds
	// no snapshot of the view.
	ErrNoSnapshot = errors.New("no snapshot bound to transaction")

	// ErrNoTransaction indicates the context carries no transaction id.
	ErrNoTransaction = snapshot.ErrNoTransaction

	// ErrTransactionNotFound indicates an unknown transaction id.
	ErrTransactionNotFound = snapshot.ErrTransactionNotFound

	// ErrTransactionEnded indicates the transaction was committed or aborted.
	ErrTransactionEnded = snapshot.ErrTransactionEnded

	// ErrInternal indicates a panic was recovered while compiling a predicate
	// or committing documents.
	ErrInternal = recovery.ErrPanic
)

// validateConfig checks that required Config fields are valid.
func validateConfig(config Config) error {
	if config.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	if config.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	return nil
}

func configLogger(config Config) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}
