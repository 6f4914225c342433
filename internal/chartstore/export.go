// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/natal-engine/pkg/types"
)

const exportLimit = 100000

// Export writes every chart matching opts, with positions, to w as YAML
// or JSON. Text is not an export format.
func (s *Store) Export(ctx context.Context, w io.Writer, format types.ReportFormat, opts ListOptions) error {
	opts.Limit = exportLimit
	summaries, err := s.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	records := make([]Record, 0, len(summaries))
	for _, sum := range summaries {
		rec, err := s.Get(ctx, sum.ID)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	switch format {
	case types.FormatYAML:
		data, err := yaml.Marshal(records)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case types.FormatJSON:
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
	return fmt.Errorf("unsupported export format %q (want yaml or json)", format)
}
