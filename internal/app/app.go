// Package app is the application layer between the CLI and vsync.SyncService.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vsync/internal/archive"
	"vsync/internal/config"
	"vsync/internal/database"
	"vsync/internal/encryption"
	"vsync/internal/fs"
	"vsync/internal/model"
	"vsync/internal/reconcile"
	"vsync/internal/server"
	"vsync/internal/staging"
	"vsync/internal/store"
	"vsync/internal/vsync"
)

// ErrPassphraseRequired means the vault is encrypted and Pull was called
// without a passphrase.
var ErrPassphraseRequired = errors.New("passphrase required to decrypt snapshot")

// App constructs the sync engine from config and records every operation in
// the history database. The caller must call Close when done.
type App struct {
	cfg       *config.Config
	db        database.Database
	encryptor vsync.Encryptor
	logger    vsync.Logger
	clock     vsync.Clock
	opID      string
	logFile   *os.File
}

// Option adjusts how an App is built.
type Option func(*options)

type options struct {
	stderr io.Writer
	clock  vsync.Clock
	ids    vsync.IDGenerator
}

// WithStderr sets where log lines are mirrored besides the log file.
// nil disables mirroring.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithClock overrides the clock used for durations and history timestamps.
func WithClock(c vsync.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator overrides the operation ID source.
func WithIDGenerator(g vsync.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// New creates an App from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{stderr: os.Stderr, clock: vsync.RealClock{}, ids: vsync.UUIDGenerator{}}
	for _, opt := range opts {
		opt(&o)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, o.clock)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	opID := o.ids.New()
	logger, logFile, err := newLogger(cfg.LogDir, opID, level, o.stderr)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{
		cfg:       cfg,
		db:        db,
		encryptor: enc,
		logger:    &slogAdapter{l: logger},
		clock:     o.clock,
		opID:      opID,
		logFile:   logFile,
	}, nil
}

// OpID returns the ID this invocation logs and records under.
func (a *App) OpID() string { return a.opID }

// Encrypted reports whether snapshots are sealed, in which case Pull needs a
// passphrase.
func (a *App) Encrypted() bool { return a.encryptor != nil }

// Push archives the configured vault root and uploads it.
func (a *App) Push(ctx context.Context, notify vsync.Notifier) error {
	root, id, err := a.target()
	if err != nil {
		return err
	}

	op, err := a.begin(vsync.VerbPush, id)
	if err != nil {
		return err
	}

	svc, err := a.service(ctx, root)
	if err == nil {
		err = svc.Push(ctx, id, root, notify)
	}
	a.finish(op, err, "")
	return err
}

// Pull fetches the snapshot and reconciles it into the configured vault
// root. passphrase is only used when encryption is configured.
func (a *App) Pull(ctx context.Context, passphrase string, notify vsync.Notifier) (*vsync.ReconcileReport, error) {
	root, id, err := a.target()
	if err != nil {
		return nil, err
	}

	var decrypt vsync.DecryptionContext
	if a.encryptor != nil {
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		if decrypt, err = a.encryptor.Unlock(passphrase); err != nil {
			return nil, fmt.Errorf("unlocking private key: %w", err)
		}
	}

	op, err := a.begin(vsync.VerbPull, id)
	if err != nil {
		return nil, err
	}

	var report *vsync.ReconcileReport
	svc, err := a.service(ctx, root)
	if err == nil {
		report, err = svc.Pull(ctx, id, root, decrypt, notify)
	}

	detail := ""
	if report != nil {
		detail = fmt.Sprintf("deleted=%d written=%d pruned=%d failures=%d",
			report.Deleted, report.Written, report.Pruned, len(report.Failures))
	}
	a.finish(op, err, detail)
	return report, err
}

// History returns the most recent operations, newest first.
func (a *App) History(limit int) ([]*model.SyncOperation, error) {
	ops, err := a.db.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return ops, nil
}

// SetupKeys generates the encryption key pair, sealing the private key with
// passphrase.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption type is %q; set [encryption] type = \"age\" first", a.cfg.Encryption.Type)
	}
	return a.encryptor.Setup(passphrase)
}

// Serve runs the snapshot server in front of the configured store until ctx
// is cancelled.
func (a *App) Serve(ctx context.Context) error {
	st, err := store.NewStoreFromConfig(ctx, a.cfg.Store)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	blobs, ok := st.(server.BlobStore)
	if !ok {
		return fmt.Errorf("store type %q cannot back a snapshot server", a.cfg.Store.Type)
	}
	if err := st.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("validating store: %w", err)
	}

	signer, ok := st.(server.URLSigner)
	if !ok {
		if a.cfg.Server.SigningKey == "" {
			return fmt.Errorf("server signing_key is required for store type %q", a.cfg.Store.Type)
		}
		signer, err = server.NewHMACSigner(a.cfg.Server.PublicURL, []byte(a.cfg.Server.SigningKey), a.clock)
		if err != nil {
			return err
		}
	}

	srv, err := server.New(blobs, signer, server.OptionsFromConfig(a.cfg.Server), a.logger, a.clock)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}

// Close closes the history database and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// target returns the vault root and identity from config.
func (a *App) target() (string, vsync.VaultIdentity, error) {
	if a.cfg.Sync.Root == "" {
		return "", "", fmt.Errorf("no vault root configured (set [sync] root or pass --root)")
	}
	root, err := vsync.ResolveRoot(a.cfg.Sync.Root)
	if err != nil {
		return "", "", err
	}
	id := vsync.VaultIdentity(a.cfg.VaultIdentity())
	if err := id.Validate(); err != nil {
		return "", "", err
	}
	return root, id, nil
}

// service wires a SyncService for the vault at root.
func (a *App) service(ctx context.Context, root string) (*vsync.SyncService, error) {
	excl, err := fs.LoadExclusionSet(root, append([]string{a.cfg.CredentialFile()}, a.cfg.Sync.Exclude...))
	if err != nil {
		return nil, fmt.Errorf("loading exclusions: %w", err)
	}

	storeCfg := a.cfg.Store
	if storeCfg.Type == "http" && storeCfg.AuthToken == "" {
		token, err := readCredential(filepath.Join(root, a.cfg.CredentialFile()))
		if err != nil {
			return nil, err
		}
		storeCfg.AuthToken = token
	}
	st, err := store.NewStoreFromConfig(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	stg, err := staging.NewProviderFromConfig(a.cfg.Staging)
	if err != nil {
		return nil, fmt.Errorf("creating staging provider: %w", err)
	}

	walker := fs.NewWalker(a.logger)
	return vsync.NewSyncService(vsync.SyncDeps{
		Walker:     walker,
		Archiver:   archive.NewArchiver(walker, a.logger),
		Extractor:  archive.NewExtractor(a.logger, a.cfg.Sync.Workers),
		Reconciler: reconcile.NewReconciler(a.logger, a.cfg.Sync.Workers),
		Store:      st,
		Staging:    stg,
		Exclusions: excl,
		Encryptor:  a.encryptor,
		Logger:     a.logger,
		Clock:      a.clock,
	}), nil
}

// readCredential returns the trimmed token in path, or "" if the file does
// not exist.
func readCredential(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credential file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (a *App) begin(verb vsync.Verb, id vsync.VaultIdentity) (*Operation, error) {
	op := NewOperation(a.opID, string(verb), string(id))
	rec, err := a.db.CreateOperation(op.OpID, op.Verb, op.Vault)
	if err != nil {
		return nil, fmt.Errorf("recording operation: %w", err)
	}
	op.ID = rec.ID
	return op, nil
}

// finish records the outcome. History failures are only logged.
func (a *App) finish(op *Operation, err error, detail string) {
	op.Finish(err, detail)
	if !op.Persisted() {
		return
	}
	if ferr := a.db.FinishOperation(op.ID, op.Status, op.Detail); ferr != nil {
		a.logger.Warn("recording operation result", "error", ferr)
	}
}
