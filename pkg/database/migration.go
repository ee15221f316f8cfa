package database

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

// MigrationConfig controls how schema migrations run at startup.
type MigrationConfig struct {
	MigrationFolderPath string
	Version             int  // migrate to this version; 0 means latest
	Force               int  // force the recorded version before migrating; 0 disables
	AutoRollback        bool // on a dirty failure, force back to the previous version
}

// MigrationService applies the SQL migrations under MigrationFolderPath.
// A failed migration still fails startup even after a successful rollback;
// the service never leaves the schema dirty silently.
type MigrationService struct {
	config *MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, config *MigrationConfig) *MigrationService {
	return &MigrationService{
		config: config,
		logger: logger,
	}
}

// migrationLogger routes golang-migrate's own output through ectologger.
type migrationLogger struct {
	ectologger.Logger
}

func (l migrationLogger) Verbose() bool { return true }

func (l migrationLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

func (ms *MigrationService) Migrate(databaseName string, driver database.Driver) error {
	folder := ms.resolveFolder()
	if _, err := os.Stat(folder); err != nil {
		return errors.Wrapf(err, "migration folder %s does not exist", folder)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+folder, databaseName, driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrate instance")
	}
	m.Log = migrationLogger{Logger: ms.logger}

	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			return errors.Wrapf(err, "failed to force database to version %d", ms.config.Force)
		}
	}

	previous, _, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		ms.logger.WithError(err).Error("Failed to read current migration version")
	}

	if ms.config.Version != 0 {
		err = m.Migrate(uint(ms.config.Version))
	} else {
		err = m.Up()
	}

	return ms.finish(m, err, previous)
}

// resolveFolder tries the configured path as-is, then relative to the
// working directory. Containers run from /, local runs from the repo root.
func (ms *MigrationService) resolveFolder() string {
	folder := ms.config.MigrationFolderPath
	if _, err := os.Stat(folder); err == nil {
		return folder
	}
	wd, _ := os.Getwd()
	return filepath.Join(wd, folder)
}

func (ms *MigrationService) finish(m *migrate.Migrate, err error, previous uint) error {
	if err == nil {
		ms.logger.Info("Successfully applied migrations")
		return nil
	}
	if err == migrate.ErrNoChange {
		ms.logger.Info("No new migrations to apply")
		return nil
	}

	// A recorded version with no matching file usually means the deploy was
	// rolled back to an older image. Re-pin to the newest file we do have.
	if isMissingVersion(err) {
		latest, latestErr := latestFileVersion(ms.resolveFolder())
		if latestErr != nil {
			ms.logger.WithError(latestErr).Error("Failed to find latest migration file")
			return err
		}
		ms.logger.Warnf("No migration file for version %d; forcing database to version %d", previous, latest)
		return m.Force(latest)
	}

	ms.logger.WithError(err).Error("Migration failed")

	version, dirty, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		ms.logger.WithError(versionErr).Error("Failed to read migration version after failure")
		return err
	}

	if dirty && ms.config.AutoRollback {
		if previous == 0 && version > 0 {
			previous = version - 1
		}
		ms.logger.Warnf("Database is dirty at version %d; reverting to version %d", version, previous)
		if forceErr := m.Force(int(previous)); forceErr != nil {
			ms.logger.WithError(forceErr).Errorf("Failed to force database to version %d", previous)
			return forceErr
		}
	}

	// The rollback only cleans up; the original failure still blocks startup.
	return err
}

var missingVersionRe = regexp.MustCompile(`no migration found for version`)

func isMissingVersion(err error) bool {
	return err != nil && missingVersionRe.MatchString(err.Error())
}

var migrationFileRe = regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)

func latestFileVersion(folder string) (int, error) {
	files, err := os.ReadDir(folder)
	if err != nil {
		return 0, err
	}

	var versions []int
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if m := migrationFileRe.FindStringSubmatch(file.Name()); m != nil {
			v, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, err
			}
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("no migration files found in %s", folder)
	}
	sort.Ints(versions)
	return versions[len(versions)-1], nil
}
