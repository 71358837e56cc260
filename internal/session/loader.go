package session

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"smsview/internal/backup"
	"smsview/internal/constants"
	apperrors "smsview/internal/errors"
	"smsview/internal/metrics"
	"smsview/internal/models"
	"smsview/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/blake2b"
)

// ErrNoFile is returned when a load is requested without a file. Nothing changes.
var ErrNoFile = errors.New("no file selected")

// Journal receives one event per finished load.
type Journal interface {
	Record(ctx context.Context, event *models.LoadEvent) error
}

// Loader reads a backup file and replaces the session's messages with its content.
type Loader struct {
	session  *Session
	journal  Journal
	logger   *apperrors.Logger
	maxBytes atomic.Int64
}

// Option configures a Loader
type Option func(*Loader)

// WithJournal records every finished load in j.
func WithJournal(j Journal) Option {
	return func(l *Loader) { l.journal = j }
}

// WithMaxUploadMB caps how much of a file is read.
func WithMaxUploadMB(mb int) Option {
	return func(l *Loader) { l.SetMaxUploadMB(mb) }
}

func NewLoader(session *Session, logger *logrus.Logger, opts ...Option) *Loader {
	l := &Loader{
		session: session,
		logger:  apperrors.NewLogger(logger),
	}
	l.maxBytes.Store(int64(constants.DefaultMaxUploadMB) << 20)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetMaxUploadMB changes the size cap for loads started afterwards.
// Non-positive values are ignored.
func (l *Loader) SetMaxUploadMB(mb int) {
	if mb > 0 {
		l.maxBytes.Store(int64(mb) << 20)
	}
}

// MaxUploadBytes returns the current size cap.
func (l *Loader) MaxUploadBytes() int64 {
	return l.maxBytes.Load()
}

// Load reads r completely, normalizes it and replaces the session's messages.
// A load that finishes after a newer one has started is discarded and
// reported with Applied=false. On error the session is left untouched.
func (l *Loader) Load(ctx context.Context, name string, r io.Reader) (*models.LoadResult, error) {
	if r == nil {
		return nil, ErrNoFile
	}
	return l.LoadAt(ctx, l.session.Begin(), name, r)
}

// LoadAt is Load for a generation taken earlier with Session.Begin. Callers
// that receive the file slowly (an HTTP upload) take the token when the
// selection is made so that a later, faster selection still wins. A nil
// reader abandons gen and returns ErrNoFile.
func (l *Loader) LoadAt(ctx context.Context, gen uint64, name string, r io.Reader) (*models.LoadResult, error) {
	if r == nil {
		l.session.Abandon(gen)
		return nil, ErrNoFile
	}

	if name != "" {
		name = filepath.Base(filepath.ToSlash(name))
	}

	ctx, span := tracing.StartSpan(ctx, "backup.load",
		attribute.Int64("backup.generation", int64(gen)),
	)
	defer span.End()

	result := &models.LoadResult{Generation: gen, FileName: name}

	data, err := l.read(name, r)
	if err != nil {
		l.fail(ctx, result, models.LoadStatusReadFailure, err)
		return nil, err
	}
	sum := blake2b.Sum256(data)
	result.SizeBytes = int64(len(data))
	result.Digest = hex.EncodeToString(sum[:])

	started := time.Now()
	msgs, err := backup.Normalize(string(data))
	metrics.RecordTimer(metrics.BackupNormalizeDuration, time.Since(started), nil, "Time spent normalizing a backup")
	metrics.RecordValue(metrics.BackupSizeBytes, float64(len(data)), nil, "Size of loaded backups")
	if err != nil {
		l.fail(ctx, result, models.LoadStatusParseFailure, err)
		return nil, err
	}
	result.MessageCount = len(msgs)

	result.Applied = l.session.Commit(gen, msgs)
	if result.Applied {
		result.Status = models.LoadStatusApplied
		metrics.SetGauge(metrics.SessionMessages, float64(len(msgs)), nil, "Messages in the current session")
	} else {
		result.Status = models.LoadStatusSuperseded
		metrics.IncrementCounter(metrics.BackupLoadsSupersededTotal, nil, "Loads discarded because a newer load started")
	}
	metrics.IncrementCounter(metrics.BackupLoadsTotal, map[string]string{"status": string(result.Status)}, "Finished backup loads")

	tracing.AddSpanAttributes(ctx,
		attribute.Int("backup.messages", result.MessageCount),
		attribute.Int64("backup.size_bytes", result.SizeBytes),
		attribute.Bool("backup.applied", result.Applied),
	)
	tracing.SetSpanStatus(ctx, codes.Ok, "")

	l.record(ctx, result, "")

	entry := l.logger.WithFields(SafeFields(ctx, logrus.Fields{
		LogFieldGeneration: gen,
		LogFieldFileName:   name,
		LogFieldSize:       result.SizeBytes,
		LogFieldDigest:     result.Digest[:constants.DefaultDigestLength],
		LogFieldCount:      result.MessageCount,
		LogFieldStatus:     result.Status,
		LogFieldRequestID:  tracing.GetRequestID(ctx),
	}))
	if result.Applied {
		entry.Info("Backup loaded")
	} else {
		entry.Info("Backup load superseded by a newer selection, result discarded")
	}

	return result, nil
}

func (l *Loader) read(name string, r io.Reader) ([]byte, error) {
	limit := l.maxBytes.Load()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperrors.NewReadFailure(name, err)
	}
	if int64(len(data)) > limit {
		return nil, apperrors.NewReadFailure(name, fmt.Errorf("file exceeds %d MB", limit>>20)).
			WithContext("limit_bytes", strconv.FormatInt(limit, 10))
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, apperrors.NewReadFailure(name, errors.New("content is binary, not text"))
	}
	return data, nil
}

func (l *Loader) fail(ctx context.Context, result *models.LoadResult, status models.LoadStatus, err error) {
	result.Status = status
	tracing.RecordError(ctx, err)
	metrics.IncrementCounter(metrics.BackupLoadFailuresTotal, map[string]string{"code": string(apperrors.GetCode(err))}, "Backup loads that failed")
	metrics.IncrementCounter(metrics.BackupLoadsTotal, map[string]string{"status": string(status)}, "Finished backup loads")

	l.record(ctx, result, apperrors.GetCode(err))
	l.safeLogger(ctx).LogWarn(err, "Backup load failed, keeping previous messages", logrus.Fields{
		LogFieldGeneration: result.Generation,
		LogFieldFileName:   result.FileName,
		LogFieldRequestID:  tracing.GetRequestID(ctx),
	})
}

func (l *Loader) safeLogger(ctx context.Context) *apperrors.Logger {
	return l.logger.WithFilter(func(f logrus.Fields) logrus.Fields { return SafeFields(ctx, f) })
}

func (l *Loader) record(ctx context.Context, result *models.LoadResult, code apperrors.ErrorCode) {
	if l.journal == nil {
		return
	}

	event := &models.LoadEvent{
		Generation:   result.Generation,
		FileName:     result.FileName,
		SizeBytes:    result.SizeBytes,
		Digest:       result.Digest,
		MessageCount: result.MessageCount,
		Status:       result.Status,
		ErrorCode:    string(code),
	}
	if err := l.journal.Record(ctx, event); err != nil {
		l.logger.LogWarn(err, "Failed to record load in journal", logrus.Fields{
			LogFieldGeneration: result.Generation,
		})
	}
}
