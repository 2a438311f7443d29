package commands

import (
	"context"
	_ "embed"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
	"github.com/leapstack-labs/storelens/pkg/objectstore/sqlite"
)

//go:embed demo.yaml
var demoFixture []byte

// Fixture describes the tables and rows of a demo store.
type Fixture struct {
	Tables []FixtureTable `yaml:"tables"`
}

// FixtureTable is one table of a Fixture.
type FixtureTable struct {
	Name       string          `yaml:"name"`
	PrimaryKey string          `yaml:"primary_key"`
	Columns    []FixtureColumn `yaml:"columns"`
	Rows       [][]any         `yaml:"rows"`
}

// FixtureColumn is one column of a FixtureTable. Type is an engine type
// spelling such as string, integer, date, object or list.
type FixtureColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Target   string `yaml:"target"`
	Required bool   `yaml:"required"`
}

// DemoOptions holds options for the demo command.
type DemoOptions struct {
	From  string
	Key   string
	Force bool
}

// NewDemoCommand creates the demo command.
func NewDemoCommand() *cobra.Command {
	opts := &DemoOptions{}

	cmd := &cobra.Command{
		Use:   "demo <path>",
		Short: "Create a sample store to inspect",
		Long: `Create a store populated from a fixture document.

Without --from, a built-in fixture with Dog and Person tables is used.
Row values for object columns are the rowid of the target row; list
columns take a list of rowids.`,
		Example: `  storelens demo ./data/demo.objdb
  storelens demo ./data/custom.objdb --from fixture.yaml
  storelens demo ./data/secret.objdb --key $(openssl rand -hex 64)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "Fixture YAML file")
	cmd.Flags().StringVar(&opts.Key, "key", "", "Hex encoded 64 byte encryption key")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Replace an existing file")

	return cmd
}

func runDemo(cmd *cobra.Command, path string, opts *DemoOptions) error {
	cfg := getConfig()
	r := newRenderer(cmd, cfg)

	doc := demoFixture
	if opts.From != "" {
		data, err := os.ReadFile(opts.From)
		if err != nil {
			return fmt.Errorf("failed to read fixture: %w", err)
		}
		doc = data
	}
	fixture, err := ParseFixture(doc)
	if err != nil {
		return err
	}

	var key []byte
	if opts.Key != "" {
		key, err = hex.DecodeString(opts.Key)
		if err != nil {
			return fmt.Errorf("key is not valid hex: %w", err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if !opts.Force {
			return fmt.Errorf("%s already exists (use --force to replace it)", path)
		}
		if err := os.Remove(path); err != nil {
			return err
		}
	}

	version, err := BuildStore(cmd.Context(), path, key, fixture)
	if err != nil {
		return err
	}

	r.Success(fmt.Sprintf("Created %s", path))
	for _, t := range fixture.Tables {
		r.Printf("  %s: %d rows\n", t.Name, len(t.Rows))
	}
	r.Println(r.Muted("schema version " + version))
	return nil
}

// ParseFixture decodes a fixture document.
func ParseFixture(doc []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("fixture has no tables")
	}
	return &f, nil
}

// BuildStore writes fixture into a new store at path and returns the store's
// schema version.
func BuildStore(ctx context.Context, path string, key []byte, fixture *Fixture) (string, error) {
	b, err := sqlite.Create(ctx, path, key)
	if err != nil {
		return "", err
	}
	defer func() { _ = b.Close() }()

	for _, t := range fixture.Tables {
		specs := make([]sqlite.ColumnSpec, 0, len(t.Columns))
		types := make([]objectstore.ColumnType, 0, len(t.Columns))
		for _, c := range t.Columns {
			typ, _ := objectstore.NormalizeType(c.Type)
			if typ == objectstore.TypeUnsupported {
				return "", fmt.Errorf("table %s: column %s has unknown type %q", t.Name, c.Name, c.Type)
			}
			specs = append(specs, sqlite.ColumnSpec{Name: c.Name, Type: typ, Target: c.Target, Required: c.Required})
			types = append(types, typ)
		}

		if err := b.CreateTable(ctx, t.Name, specs...); err != nil {
			return "", err
		}
		if t.PrimaryKey != "" {
			class := strings.TrimPrefix(t.Name, objectstore.TablePrefix)
			if err := b.SetPrimaryKey(ctx, class, t.PrimaryKey); err != nil {
				return "", err
			}
		}

		for i, row := range t.Rows {
			if len(row) != len(types) {
				return "", fmt.Errorf("table %s row %d: got %d values for %d columns", t.Name, i, len(row), len(types))
			}
			values := make([]any, len(row))
			for j, v := range row {
				values[j], err = fixtureValue(types[j], v)
				if err != nil {
					return "", fmt.Errorf("table %s row %d column %s: %w", t.Name, i, t.Columns[j].Name, err)
				}
			}
			if _, err := b.Insert(ctx, t.Name, values...); err != nil {
				return "", err
			}
		}
	}

	return b.SchemaVersion(ctx)
}

// fixtureValue converts a decoded YAML value to what Builder.Insert expects
// for the column type.
func fixtureValue(typ objectstore.ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch typ {
	case objectstore.TypeInteger, objectstore.TypeObject:
		n, ok := v.(int)
		if !ok {
			return nil, fmt.Errorf("expected an integer, got %T", v)
		}
		return int64(n), nil
	case objectstore.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", v)
		}
		return b, nil
	case objectstore.TypeString:
		return fmt.Sprint(v), nil
	case objectstore.TypeBinary:
		return []byte(fmt.Sprint(v)), nil
	case objectstore.TypeFloat:
		f, err := toFloat(v)
		return float32(f), err
	case objectstore.TypeDouble:
		return toFloat(v)
	case objectstore.TypeDate:
		return toTime(v)
	case objectstore.TypeList:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected a list of rowids, got %T", v)
		}
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			n, ok := item.(int)
			if !ok {
				return nil, fmt.Errorf("expected a rowid, got %T", item)
			}
			ids = append(ids, int64(n))
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", typ)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		switch strings.TrimPrefix(n, "+") {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as a date", t)
	}
	return time.Time{}, fmt.Errorf("expected a date, got %T", v)
}
