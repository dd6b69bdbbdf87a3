// Schema command: render and optionally apply DDL from a descriptor file.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalsqlite "github.com/mesh-intelligence/larder/internal/sqlite"
	"github.com/mesh-intelligence/larder/pkg/sqlite"
	"github.com/mesh-intelligence/larder/pkg/types"
)

var (
	flagSchemaFile  string
	flagSchemaApply bool
)

// tableSpec mirrors one table entry of the descriptor YAML file.
type tableSpec struct {
	Name    string       `mapstructure:"name"`
	Columns []columnSpec `mapstructure:"columns"`
}

// columnSpec mirrors one column entry of the descriptor YAML file.
type columnSpec struct {
	Name          string `mapstructure:"name"`
	Type          string `mapstructure:"type"`
	Nullable      bool   `mapstructure:"nullable"`
	Unique        bool   `mapstructure:"unique"`
	PrimaryKey    bool   `mapstructure:"primary_key"`
	AutoIncrement bool   `mapstructure:"auto_increment"`
	Default       any    `mapstructure:"default"`
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Render CREATE TABLE statements from a descriptor file",
	Long: `Schema reads entity descriptors from a YAML file and prints the DDL they
generate. With --apply the statements are executed against the configured
database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		descs, err := loadDescriptors(flagSchemaFile)
		if err != nil {
			return err
		}

		for _, desc := range descs {
			ddl, err := internalsqlite.DDL(desc)
			if err != nil {
				return err
			}
			fmt.Println(ddl)
		}

		if !flagSchemaApply {
			return nil
		}

		cfg, err := storeConfig()
		if err != nil {
			return err
		}
		store, err := sqlite.Open(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.CreateTables(context.Background(), descs...); err != nil {
			return err
		}
		fmt.Printf("applied %d table(s) to %s\n", len(descs), cfg.Path)
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVar(&flagSchemaFile, "file", "", "descriptor YAML file (required)")
	schemaCmd.Flags().BoolVar(&flagSchemaApply, "apply", false, "execute the DDL against the configured database")
	schemaCmd.MarkFlagRequired("file")
}

// loadDescriptors reads and validates entity descriptors from a YAML file of
// the form:
//
//	tables:
//	  - name: users
//	    columns:
//	      - name: id
//	        type: integer
//	        primary_key: true
func loadDescriptors(path string) ([]types.EntityDescriptor, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read descriptor file: %w", err)
	}

	var specs []tableSpec
	if err := v.UnmarshalKey("tables", &specs); err != nil {
		return nil, fmt.Errorf("parse descriptor file: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("descriptor file %q declares no tables", path)
	}

	descs := make([]types.EntityDescriptor, 0, len(specs))
	for _, spec := range specs {
		desc := types.EntityDescriptor{TableName: spec.Name}
		for _, c := range spec.Columns {
			colType, err := columnType(c.Type)
			if err != nil {
				return nil, fmt.Errorf("table %q, column %q: %w", spec.Name, c.Name, err)
			}
			desc.Columns = append(desc.Columns, types.Column{
				Name:          c.Name,
				Type:          colType,
				Nullable:      c.Nullable,
				Unique:        c.Unique,
				PrimaryKey:    c.PrimaryKey,
				AutoIncrement: c.AutoIncrement,
				Default:       c.Default,
			})
		}
		if err := desc.Validate(); err != nil {
			return nil, fmt.Errorf("table %q: %w", spec.Name, err)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// columnType resolves a descriptor file type name to a column type.
func columnType(name string) (types.ColumnType, error) {
	switch types.ColumnType(name) {
	case types.TypeInteger, types.TypeText, types.TypeBoolean, types.TypeDatetime, types.TypeReal:
		return types.ColumnType(name), nil
	default:
		return "", fmt.Errorf("unknown column type %q", name)
	}
}
