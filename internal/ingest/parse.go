package ingest

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/orgsignal/decision-cli/internal/model"
)

// record is one decision entry as it appears in an uploaded file, before
// ids and provenance are attached.
type record struct {
	Actor      string `yaml:"actor"`
	Text       string `yaml:"text"`
	Reasoning  string `yaml:"reasoning"`
	Sentiment  string `yaml:"sentiment"`
	Importance string `yaml:"importance"`
	Timestamp  string `yaml:"timestamp"`
	Links      []link `yaml:"links"`
}

// link is an explicit relation from the enclosing record to another
// record in the same file, addressed by its position in the decisions
// list.
type link struct {
	Type string `yaml:"type"`
	To   int    `yaml:"to"`
}

type decisionFile struct {
	Team      string   `yaml:"team"`
	Decisions []record `yaml:"decisions"`
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, eris.Errorf("ingest: unparseable timestamp %q", s)
}

// parseYAML decodes a YAML decision log. The top-level team field is
// optional; callers that already know the tenant pass it separately.
func parseYAML(data []byte) (decisionFile, error) {
	var f decisionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return decisionFile{}, eris.Wrap(err, "ingest: decode yaml")
	}
	return f, nil
}

// xlsxColumns is the fixed column order of spreadsheet exports. The
// first row is treated as a header and skipped.
var xlsxColumns = []string{"actor", "text", "reasoning", "sentiment", "importance", "timestamp"}

// parseXLSX decodes a spreadsheet export. Only the first sheet is read.
func parseXLSX(data []byte) (decisionFile, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return decisionFile{}, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return decisionFile{}, eris.New("ingest: xlsx has no sheets")
	}

	var out decisionFile
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue // header
		}
		cells := rowToStrings(row, len(xlsxColumns))
		if strings.TrimSpace(cells[1]) == "" {
			continue // no text, skip blank rows
		}
		out.Decisions = append(out.Decisions, record{
			Actor:      cells[0],
			Text:       cells[1],
			Reasoning:  cells[2],
			Sentiment:  cells[3],
			Importance: cells[4],
			Timestamp:  cells[5],
		})
	}
	return out, nil
}

func rowToStrings(row *xlsx.Row, width int) []string {
	cells := make([]string, width)
	for j, cell := range row.Cells {
		if j >= width {
			break
		}
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

// parseFile dispatches on the file extension.
func parseFile(name string, data []byte) (decisionFile, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".xlsx":
		return parseXLSX(data)
	default:
		return decisionFile{}, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(name))
	}
}

// semanticEdgeTypes are the link types a file may declare explicitly.
// NEXT and FROM_FILE edges are derived, never declared.
var semanticEdgeTypes = map[string]model.EdgeType{
	"CAUSES":     model.EdgeCauses,
	"BLOCKS":     model.EdgeBlocks,
	"DEPENDS_ON": model.EdgeDependsOn,
}
