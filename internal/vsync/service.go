package vsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SyncService is the orchestration layer that runs the two user-facing
// operations: push (archive + upload) and pull (fetch + reconcile).
//
// Phases of an operation are strictly sequential. The service holds no state
// between operations; concurrent operations against the same vault are not
// coordinated.
type SyncService struct {
	walker     Walker
	archiver   Archiver
	extractor  Extractor
	reconciler Reconciler
	store      SnapshotStore
	staging    StagingProvider
	exclusions ExclusionSet
	encryptor  Encryptor
	logger     Logger
	clock      Clock
}

// SyncDeps are the collaborators of a SyncService. Encryptor may be nil, in
// which case blobs travel as plain zip archives. Exclusions may be nil.
type SyncDeps struct {
	Walker     Walker
	Archiver   Archiver
	Extractor  Extractor
	Reconciler Reconciler
	Store      SnapshotStore
	Staging    StagingProvider
	Exclusions ExclusionSet
	Encryptor  Encryptor
	Logger     Logger
	Clock      Clock
}

// NewSyncService creates a new SyncService with the provided dependencies.
func NewSyncService(deps SyncDeps) *SyncService {
	s := &SyncService{
		walker:     deps.Walker,
		archiver:   deps.Archiver,
		extractor:  deps.Extractor,
		reconciler: deps.Reconciler,
		store:      deps.Store,
		staging:    deps.Staging,
		exclusions: deps.Exclusions,
		encryptor:  deps.Encryptor,
		logger:     deps.Logger,
		clock:      deps.Clock,
	}
	if s.logger == nil {
		s.logger = NewNopLogger()
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	return s
}

// Push archives the tree at root and uploads it as the snapshot for id,
// replacing whatever snapshot was there.
func (s *SyncService) Push(ctx context.Context, id VaultIdentity, root string, notify Notifier) error {
	if notify == nil {
		notify = NopNotifier{}
	}
	if err := id.Validate(); err != nil {
		return err
	}
	root, err := ResolveRoot(root)
	if err != nil {
		return err
	}

	s.logger.Info("push started", "vault", id, "root", root)

	var blob ArchiveBlob
	err = s.phase(VerbPush, PhaseZipping, notify, func() error {
		built, err := s.archiver.Build(root, s.exclusions)
		if err != nil {
			return err
		}
		blob, err = s.seal(built)
		return err
	})
	if err != nil {
		return err
	}

	err = s.phase(VerbPush, PhaseUploading, notify, func() error {
		if err := s.store.Upload(ctx, id, bytes.NewReader(blob), int64(len(blob))); err != nil {
			return asTransportError("upload", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("push complete", "vault", id, "bytes", len(blob))
	return nil
}

// Pull fetches the snapshot for id and reconciles it into the tree at root:
// local files missing from the snapshot are deleted, every snapshot file is
// written. decrypt is required when the service has an encryptor.
func (s *SyncService) Pull(ctx context.Context, id VaultIdentity, root string, decrypt DecryptionContext, notify Notifier) (*ReconcileReport, error) {
	if notify == nil {
		notify = NopNotifier{}
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	root, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	if s.encryptor != nil && decrypt == nil {
		return nil, fmt.Errorf("snapshot is encrypted but no passphrase was provided")
	}

	s.logger.Info("pull started", "vault", id, "root", root)

	var blob ArchiveBlob
	err = s.phase(VerbPull, PhaseDownloading, notify, func() error {
		var buf bytes.Buffer
		if err := s.store.Fetch(ctx, id, &buf); err != nil {
			return asTransportError("fetch", id, err)
		}
		var err error
		blob, err = s.open(buf.Bytes(), decrypt)
		return err
	})
	if err != nil {
		return nil, err
	}

	var area StagingArea
	defer func() {
		if area == nil {
			return
		}
		if err := area.Close(); err != nil {
			s.logger.Warn("removing staging area", "path", area.Path(), "error", err)
		}
	}()

	err = s.phase(VerbPull, PhaseExtracting, notify, func() error {
		var err error
		area, err = s.staging.Create()
		if err != nil {
			return fmt.Errorf("creating staging area: %w", err)
		}
		return s.extractor.Extract(ctx, blob, area.Path())
	})
	if err != nil {
		return nil, err
	}
	blob = nil

	var report *ReconcileReport
	err = s.phase(VerbPull, PhaseSyncing, notify, func() error {
		local, err := CollectSnapshot(s.walker.Walk(root, area.Path()))
		if err != nil {
			return fmt.Errorf("scanning local tree: %w", err)
		}
		staged, err := CollectSnapshot(s.walker.Walk(area.Path()))
		if err != nil {
			return fmt.Errorf("scanning staging area: %w", err)
		}

		diff := Diff(local, staged, s.exclusions)
		s.logger.Debug("diff computed", "delete", diff.ToDelete.Len(), "write", diff.ToWrite.Len())

		report, err = s.reconciler.Apply(ctx, diff, root, area.Path())
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, f := range report.Failures {
		s.logger.Warn("path not reconciled", "op", f.Op, "path", f.Path, "error", f.Err)
	}
	s.logger.Info("pull complete", "vault", id,
		"deleted", report.Deleted, "written", report.Written,
		"pruned", report.Pruned, "failures", len(report.Failures))
	return report, nil
}

// phase runs fn bracketed by started/succeeded/failed notifications.
func (s *SyncService) phase(verb Verb, phase Phase, notify Notifier, fn func() error) error {
	notify.Notify(Event{Verb: verb, Phase: phase, Status: StatusStarted})
	start := s.clock.Now()

	if err := fn(); err != nil {
		s.logger.Error("phase failed", "verb", verb, "phase", phase, "error", err)
		notify.Notify(Event{Verb: verb, Phase: phase, Status: StatusFailed, Err: err})
		return err
	}

	s.logger.Debug("phase complete", "verb", verb, "phase", phase, "duration", s.clock.Now().Sub(start))
	notify.Notify(Event{Verb: verb, Phase: phase, Status: StatusSucceeded})
	return nil
}

// seal encrypts blob when an encryptor is configured.
func (s *SyncService) seal(blob ArchiveBlob) (ArchiveBlob, error) {
	if s.encryptor == nil {
		return blob, nil
	}
	var out bytes.Buffer
	if err := s.encryptor.Encrypt(bytes.NewReader(blob), &out); err != nil {
		return nil, fmt.Errorf("encrypting archive: %w", err)
	}
	return out.Bytes(), nil
}

// open reverses seal.
func (s *SyncService) open(data []byte, decrypt DecryptionContext) (ArchiveBlob, error) {
	if s.encryptor == nil {
		return data, nil
	}
	var out bytes.Buffer
	if err := decrypt.Decrypt(bytes.NewReader(data), &out); err != nil {
		return nil, fmt.Errorf("decrypting archive: %w", err)
	}
	return out.Bytes(), nil
}

// ResolveRoot returns the absolute form of a vault root, failing with
// *TraversalError if it is not an accessible directory.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &TraversalError{Root: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &TraversalError{Root: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &TraversalError{Root: abs, Err: fmt.Errorf("not a directory")}
	}
	return abs, nil
}

func asTransportError(op string, id VaultIdentity, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Identity: id, Err: err}
}
