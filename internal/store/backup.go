package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Backup copies the kiosk database into a timestamped file on an interval
// and prunes copies older than the retention window. The sqlite file is in
// WAL mode, so a plain file copy of the main db is a consistent snapshot of
// the last checkpoint, which is enough for a preference/log store.
type Backup struct {
	dbPath    string
	dir       string
	interval  time.Duration
	retention int
	logger    *zerolog.Logger
}

func NewBackup(dbPath, dir string, interval time.Duration, retentionDays int, logger *zerolog.Logger) *Backup {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Backup{
		dbPath:    dbPath,
		dir:       dir,
		interval:  interval,
		retention: retentionDays,
		logger:    logger,
	}
}

// Start runs the backup loop until ctx is cancelled. The first copy is taken
// immediately.
func (b *Backup) Start(ctx context.Context) {
	b.logger.Info().Str("dir", b.dir).Dur("interval", b.interval).Msg("respaldo de base local activo")

	if err := b.Run(); err != nil {
		b.logger.Error().Err(err).Msg("respaldo inicial falló")
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Run(); err != nil {
				b.logger.Error().Err(err).Msg("respaldo programado falló")
			}
			b.prune()
		}
	}
}

// Run takes one backup copy.
func (b *Backup) Run() error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("crear directorio de respaldo: %w", err)
	}

	destPath := filepath.Join(b.dir,
		fmt.Sprintf("comedor_%s.db", time.Now().Format("20060102_150405")))

	src, err := os.Open(b.dbPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	b.logger.Info().Str("path", destPath).Msg("respaldo completado")
	return nil
}

func (b *Backup) prune() {
	if b.retention <= 0 {
		return
	}

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		b.logger.Error().Err(err).Msg("no se pudo leer el directorio de respaldos")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -b.retention)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			b.logger.Info().Str("file", e.Name()).Msg("eliminando respaldo antiguo")
			os.Remove(filepath.Join(b.dir, e.Name()))
		}
	}
}
