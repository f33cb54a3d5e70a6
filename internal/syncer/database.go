package syncer

import (
	"context"
	"fmt"

	"github.com/modelsync/modelsync/internal/discovery"
	"github.com/modelsync/modelsync/internal/naming"
	"github.com/modelsync/modelsync/internal/schema"
)

// SyncModelFromDatabase regenerates one model from its table in a connected
// database. An excluded or missing table produces a model with no fields,
// as a missing migration does.
func (s *Syncer) SyncModelFromDatabase(ctx context.Context, d discovery.Discoverer, name string) (string, error) {
	name = naming.Basename(name)
	table := naming.TableForModel(name)

	sc := schema.New(table)
	if !s.Config.IsExcluded(table) {
		schemas, err := d.Discover(ctx)
		if err != nil {
			return "", fmt.Errorf("discovering database schema: %w", err)
		}
		for _, found := range schemas {
			if found.Table == table {
				sc = found
				break
			}
		}
	}
	return s.writeModel(name, sc)
}

// SyncAllFromDatabase regenerates a model for every table in a connected
// database, skipping excluded and empty tables.
func (s *Syncer) SyncAllFromDatabase(ctx context.Context, d discovery.Discoverer) (Result, error) {
	var res Result

	schemas, err := d.Discover(ctx)
	if err != nil {
		return res, fmt.Errorf("discovering database schema: %w", err)
	}

	for _, sc := range schemas {
		if s.Config.IsExcluded(sc.Table) {
			s.Logger.Debug("table excluded", "table", sc.Table)
			continue
		}
		if sc.IsEmpty() {
			s.Reporter.Skipped(sc.Table, "no columns found")
			res.Skipped++
			continue
		}
		if _, err := s.writeModel(naming.ModelForTable(sc.Table), sc); err != nil {
			return res, err
		}
		res.Synced++
	}
	return res, nil
}
