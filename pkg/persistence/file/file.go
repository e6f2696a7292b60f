// Package file provides file-based persistence for automations and execution
// logs. It backs local development and the test suite; the automation and its
// entities live in one JSON document per file, so a save is naturally atomic.
package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/openhaus/flowengine/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root           string
	automationRepo *AutomationRepository
	logRepo        *LogRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		automationRepo: NewAutomationRepository(cleanRoot),
		logRepo:        NewLogRepository(cleanRoot),
	}
}

// AutomationRepository returns the automation repository.
func (p *Persistence) AutomationRepository() persistence.AutomationRepository {
	return p.automationRepo
}

// LogRepository returns the execution log repository.
func (p *Persistence) LogRepository() persistence.LogRepository {
	return p.logRepo
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence there is
// nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func automationsDir(root string) string {
	return filepath.Join(root, "automations")
}

func logsDir(root string) string {
	return filepath.Join(root, "logs")
}
