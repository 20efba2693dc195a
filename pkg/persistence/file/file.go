// Package file provides file-based persistence for automation records, one
// JSON document per automation.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/persistence"
)

const dirPerm = 0o755

// Persistence implements persistence.Persistence on the local filesystem.
// Intended for development and tests; concurrent writers are not guarded.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence rooted at the given directory.
// Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

func (p *Persistence) automationsDir() string {
	return path.Join(p.root, "automations")
}

func (p *Persistence) automationPath(id string) string {
	return path.Join(p.automationsDir(), id+".json")
}

func (p *Persistence) Automations(ctx context.Context) ([]*models.Automation, error) {
	root := os.DirFS(p.automationsDir())

	files, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list automation files: %w", err)
	}

	automations := make([]*models.Automation, 0, len(files))

	for _, file := range files {
		id := strings.TrimSuffix(filepath.Base(file), ".json")

		automation, err := p.AutomationByID(ctx, id)
		if err != nil {
			return nil, err
		}

		automations = append(automations, automation)
	}

	return automations, nil
}

func (p *Persistence) AutomationByID(_ context.Context, id string) (*models.Automation, error) {
	data, err := os.ReadFile(p.automationPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewAutomationError("read", id, persistence.ErrAutomationNotFound)
		}

		return nil, persistence.NewAutomationError("read", id, err)
	}

	var automation models.Automation
	if err := json.Unmarshal(data, &automation); err != nil {
		return nil, persistence.NewAutomationError("decode", id, err)
	}

	return &automation, nil
}

func (p *Persistence) SaveAutomation(_ context.Context, automation *models.Automation) error {
	if err := os.MkdirAll(p.automationsDir(), dirPerm); err != nil {
		return persistence.NewAutomationError("save", automation.ID, err)
	}

	data, err := json.MarshalIndent(automation, "", "  ")
	if err != nil {
		return persistence.NewAutomationError("encode", automation.ID, err)
	}

	if err := os.WriteFile(p.automationPath(automation.ID), data, 0o600); err != nil {
		return persistence.NewAutomationError("save", automation.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteAutomation(_ context.Context, id string) error {
	err := os.Remove(p.automationPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return persistence.NewAutomationError("delete", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return persistence.NewAutomationError("delete", id, err)
	}

	return nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
