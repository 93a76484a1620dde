package session

import (
	"context"
	"easierless/internal/core/errors"
	"easierless/internal/engine/imports"
	"easierless/internal/shared/observability"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Document is an open editor document.
type Document struct {
	Path string
	Text string
	Kind imports.DocumentKind
}

// Outcome labels how an auto-import request ended.
type Outcome string

const (
	OutcomeInserted        Outcome = "inserted"
	OutcomeAlreadyImported Outcome = "already_imported"
	OutcomeLocked          Outcome = "locked"
	OutcomeNoSource        Outcome = "no_source"
	OutcomeFailed          Outcome = "failed"
)

// AutoImportResult describes one auto-import request.
type AutoImportResult struct {
	Outcome   Outcome
	Target    string
	Insertion imports.Insertion
}

// AutoImport inserts an import of the root file owning symbol into doc
// unless it is already imported or the same insertion is in flight. The
// per document and target lock is released UnlockDelay after the edit,
// whether or not the edit succeeded.
func (s *Session) AutoImport(ctx context.Context, doc Document, symbol string) (res AutoImportResult, err error) {
	ctx, span := observability.Tracer.Start(ctx, "session.AutoImport", trace.WithAttributes(
		attribute.String("symbol", symbol),
	))
	defer span.End()
	defer func() {
		observability.AutoImportsTotal.WithLabelValues(string(res.Outcome)).Inc()
		span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	}()

	gen := s.Current()
	target, ok := gen.Table.SourceOf(symbol)
	if !ok {
		return AutoImportResult{Outcome: OutcomeNoSource}, nil
	}
	res.Target = target

	docPath := filepath.Clean(doc.Path)
	if docPath == filepath.Clean(target) {
		res.Outcome = OutcomeAlreadyImported
		return res, nil
	}
	ins, needed := gen.Analyzer.PlanInsertion(doc.Text, docPath, doc.Kind, target)
	if !needed {
		res.Outcome = OutcomeAlreadyImported
		return res, nil
	}
	res.Insertion = ins

	key := lockKey(docPath, target)
	if !s.tryLock(key) {
		res.Outcome = OutcomeLocked
		return res, nil
	}
	defer s.unlockAfter(key, s.opts.UnlockDelay)

	if err := s.insert(ctx, docPath, ins); err != nil {
		err = errors.AddContext(err, errors.CtxSymbol, symbol)
		span.RecordError(err)
		slog.Warn("auto-import failed", "error", err)
		s.notifyWarn(fmt.Sprintf("Could not import %s: %v", filepath.Base(target), err))
		res.Outcome = OutcomeFailed
		return res, err
	}

	slog.Debug("auto-import inserted", "document", docPath, "specifier", ins.Specifier, "offset", ins.Offset)
	s.notifyInfo(fmt.Sprintf("Imported %s", ins.Specifier))
	res.Outcome = OutcomeInserted
	return res, nil
}

func (s *Session) insert(ctx context.Context, docPath string, ins imports.Insertion) error {
	if s.deps.Editor == nil {
		return errors.AddContext(errors.New(errors.CodeInsertion, "no document editor available"), errors.CtxPath, docPath)
	}
	if err := s.deps.Editor.InsertText(ctx, docPath, ins.Offset, ins.Text); err != nil {
		if errors.IsCode(err, errors.CodeInsertion) {
			return err
		}
		return errors.AddContext(errors.Wrap(err, errors.CodeInsertion, "insert import statement"), errors.CtxPath, docPath)
	}
	return nil
}

func lockKey(docPath, target string) string {
	return docPath + "::" + target
}

func (s *Session) tryLock(key string) bool {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if _, held := s.locks[key]; held {
		return false
	}
	s.locks[key] = struct{}{}
	return true
}

func (s *Session) unlockAfter(key string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.locksMu.Lock()
		delete(s.locks, key)
		s.locksMu.Unlock()
	})
}

// Locked reports whether an insertion of target into docPath is in flight.
func (s *Session) Locked(docPath, target string) bool {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	_, held := s.locks[lockKey(filepath.Clean(docPath), target)]
	return held
}

func (s *Session) notifyInfo(msg string) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Info(msg)
	}
}

func (s *Session) notifyWarn(msg string) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Warn(msg)
	}
}
