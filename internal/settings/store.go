package settings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harrison/fedviz/internal/filelock"
)

// Reserved settings names.
const (
	// DefaultName is loaded on start when no last-used settings apply.
	DefaultName = "DEFAULT"
	// LastUsedName is written on exit and reloaded when its load_last_used
	// flag is set.
	LastUsedName = "LAST_USED"
)

// None is written for unset optional values.
const None = "None"

// Row is one Setting,Values pair.
type Row struct {
	Key   string
	Value string
}

// Rows flattens s into key/value text in field order.
func (s *Settings) Rows() ([]Row, error) {
	var node yaml.Node
	if err := node.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("settings encoded to unexpected node kind %d", node.Kind)
	}
	rows := make([]Row, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		rows = append(rows, Row{Key: node.Content[i].Value, Value: cell(node.Content[i+1])})
	}
	return rows, nil
}

func cell(v *yaml.Node) string {
	switch v.Tag {
	case "!!null":
		return None
	case "!!bool":
		if v.Value == "true" {
			return "True"
		}
		return "False"
	}
	return v.Value
}

// FromRows overlays rows on the defaults. Unknown keys are ignored so
// files from other versions still load.
func FromRows(rows []Row) (*Settings, error) {
	known, err := Default().Rows()
	if err != nil {
		return nil, err
	}
	isKnown := make(map[string]bool, len(known))
	for _, r := range known {
		isKnown[r.Key] = true
	}

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, r := range rows {
		if !isKnown[r.Key] {
			continue
		}
		v := &yaml.Node{Kind: yaml.ScalarNode, Value: strings.TrimSpace(r.Value)}
		if v.Value == "" || v.Value == None {
			v.Tag, v.Value = "!!null", "null"
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Key}, v)
	}
	s := Default()
	if err := node.Decode(s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteCSV writes the Setting,Values table.
func (s *Settings) WriteCSV(w io.Writer) error {
	rows, err := s.Rows()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Setting", "Values"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Key, r.Value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a Setting,Values table. The header row is skipped whatever
// its first cell says.
func ReadCSV(r io.Reader) (*Settings, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if len(all) == 0 {
		return nil, errors.New("settings file is empty")
	}
	rows := make([]Row, 0, len(all)-1)
	for _, rec := range all[1:] {
		if len(rec) < 2 {
			continue
		}
		rows = append(rows, Row{Key: strings.TrimSpace(rec[0]), Value: rec[1]})
	}
	return FromRows(rows)
}

// Store keeps named settings files in one directory.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path is the file for name.
func (st *Store) Path(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return filepath.Join(st.Dir, name+".csv")
}

// Save writes s under name.
func (st *Store) Save(name string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return filelock.WriteWith(st.Path(name), s.WriteCSV)
}

// Load reads the settings saved under name.
func (st *Store) Load(name string) (*Settings, error) {
	data, err := filelock.ReadLocked(st.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", name, err)
	}
	s, err := ReadCSV(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("settings %s: %w", name, err)
	}
	return s, nil
}

// List returns the saved names, sorted.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names, nil
}

// Source says where resolved settings came from.
type Source string

const (
	FromLastUsed Source = LastUsedName
	FromDefault  Source = DefaultName
	FromBuiltin  Source = "builtin"
)

// Resolve picks start-up settings: LAST_USED when it exists and asks to be
// reloaded, else DEFAULT when it exists, else the built-in defaults. A
// reserved file that fails to parse is skipped and its error returned
// alongside the fallback.
func (st *Store) Resolve() (*Settings, Source, error) {
	var errs []error
	if _, err := os.Stat(st.Path(LastUsedName)); err == nil {
		s, err := st.Load(LastUsedName)
		switch {
		case err != nil:
			errs = append(errs, err)
		case s.LoadLastUsed:
			return s, FromLastUsed, nil
		}
	}
	if _, err := os.Stat(st.Path(DefaultName)); err == nil {
		s, err := st.Load(DefaultName)
		if err == nil {
			return s, FromDefault, errors.Join(errs...)
		}
		errs = append(errs, err)
	}
	return Default(), FromBuiltin, errors.Join(errs...)
}
