package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/yurifrl/ezimport/pkg/parser"
)

// ExportPattern selects source export files inside the import folder.
const ExportPattern = "*.json"

// ListFiles returns the export files of folder in lexical order.
func ListFiles(folder string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(folder, ExportPattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list export files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// FileCheck describes how one export file maps onto the target ledger.
type FileCheck struct {
	Path            string
	SourceAccountID string
	TargetAccountID string
	TargetName      string
}

func (f FileCheck) Mapped() bool {
	return f.TargetAccountID != ""
}

// CheckFiles loads the account map and reports which export files would be
// imported. Nothing is written.
func (i *Importer) CheckFiles(ctx context.Context) ([]FileCheck, error) {
	if err := i.accounts.Load(ctx); err != nil {
		return nil, err
	}
	files, err := ListFiles(i.opts.Folder)
	if err != nil {
		return nil, err
	}

	checks := make([]FileCheck, 0, len(files))
	for _, path := range files {
		sourceID := parser.AccountID(path)
		target, _ := i.accounts.Resolve(sourceID)
		checks = append(checks, FileCheck{
			Path:            path,
			SourceAccountID: sourceID,
			TargetAccountID: target,
			TargetName:      i.accounts.Name(sourceID),
		})
	}
	return checks, nil
}
