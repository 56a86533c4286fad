// Package schema declares the column contracts uploaded datasets are
// validated against.
package schema

import (
	"fmt"
	"sort"
)

// ColumnType is the declared type of one dataset column.
type ColumnType string

const (
	ColumnTypeString  ColumnType = "string"
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeDate    ColumnType = "date"
	ColumnTypeBoolean ColumnType = "boolean"
)

// Valid reports whether the column type is one of the known types.
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnTypeString, ColumnTypeNumber, ColumnTypeDate, ColumnTypeBoolean:
		return true
	}
	return false
}

// Column is one declared column of a dataset contract.
type Column struct {
	Name     string     `yaml:"name" json:"name"`
	Required bool       `yaml:"required" json:"required"`
	Type     ColumnType `yaml:"type" json:"type"`
}

// Dataset is the ordered column contract for one dataset kind.
type Dataset struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []Column `yaml:"columns" json:"columns"`
}

// Column returns the declared column with the given name, if any.
func (d Dataset) Column(name string) (Column, bool) {
	for _, col := range d.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Catalog maps dataset names to their contracts.
type Catalog struct {
	datasets map[string]Dataset
}

// Get returns the contract for a dataset name.
func (c *Catalog) Get(name string) (Dataset, bool) {
	ds, ok := c.datasets[name]
	return ds, ok
}

// Names returns the registered dataset names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.datasets))
	for name := range c.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) put(ds Dataset) error {
	if ds.Name == "" {
		return fmt.Errorf("dataset name is required")
	}
	if len(ds.Columns) == 0 {
		return fmt.Errorf("dataset %s declares no columns", ds.Name)
	}
	seen := make(map[string]bool, len(ds.Columns))
	for _, col := range ds.Columns {
		if col.Name == "" {
			return fmt.Errorf("dataset %s has a column without a name", ds.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("dataset %s declares column %s twice", ds.Name, col.Name)
		}
		seen[col.Name] = true
		if !col.Type.Valid() {
			return fmt.Errorf("dataset %s column %s has unknown type %q", ds.Name, col.Name, col.Type)
		}
	}
	c.datasets[ds.Name] = ds
	return nil
}

// BuiltinCatalog returns the fixed contracts for the supported ad-platform
// exports.
func BuiltinCatalog() *Catalog {
	c := &Catalog{datasets: map[string]Dataset{}}
	for _, ds := range builtinDatasets() {
		// Built-in contracts are static; put only fails on malformed input.
		if err := c.put(ds); err != nil {
			panic(err)
		}
	}
	return c
}

func builtinDatasets() []Dataset {
	return []Dataset{
		{
			Name: "campaigns",
			Columns: []Column{
				{Name: "external_id", Required: true, Type: ColumnTypeString},
				{Name: "name", Required: true, Type: ColumnTypeString},
				{Name: "platform", Required: true, Type: ColumnTypeString},
				{Name: "status", Required: false, Type: ColumnTypeString},
				{Name: "objective", Required: false, Type: ColumnTypeString},
				{Name: "daily_budget", Required: false, Type: ColumnTypeNumber},
				{Name: "start_date", Required: false, Type: ColumnTypeDate},
				{Name: "end_date", Required: false, Type: ColumnTypeDate},
			},
		},
		{
			Name: "ad_sets",
			Columns: []Column{
				{Name: "external_id", Required: true, Type: ColumnTypeString},
				{Name: "campaign_external_id", Required: true, Type: ColumnTypeString},
				{Name: "name", Required: true, Type: ColumnTypeString},
				{Name: "status", Required: false, Type: ColumnTypeString},
				{Name: "bid_strategy", Required: false, Type: ColumnTypeString},
				{Name: "daily_budget", Required: false, Type: ColumnTypeNumber},
			},
		},
		{
			Name: "ads",
			Columns: []Column{
				{Name: "external_id", Required: true, Type: ColumnTypeString},
				{Name: "ad_set_external_id", Required: true, Type: ColumnTypeString},
				{Name: "name", Required: true, Type: ColumnTypeString},
				{Name: "status", Required: false, Type: ColumnTypeString},
				{Name: "creative_type", Required: false, Type: ColumnTypeString},
				{Name: "landing_url", Required: false, Type: ColumnTypeString},
			},
		},
		{
			Name: "daily_metrics",
			Columns: []Column{
				{Name: "date", Required: true, Type: ColumnTypeDate},
				{Name: "platform", Required: true, Type: ColumnTypeString},
				{Name: "entity_type", Required: true, Type: ColumnTypeString},
				{Name: "entity_external_id", Required: true, Type: ColumnTypeString},
				{Name: "spend", Required: true, Type: ColumnTypeNumber},
				{Name: "impressions", Required: true, Type: ColumnTypeNumber},
				{Name: "clicks", Required: true, Type: ColumnTypeNumber},
				{Name: "conversions", Required: false, Type: ColumnTypeNumber},
				{Name: "revenue", Required: false, Type: ColumnTypeNumber},
			},
		},
		{
			Name: "alerts",
			Columns: []Column{
				{Name: "date", Required: true, Type: ColumnTypeDate},
				{Name: "platform", Required: true, Type: ColumnTypeString},
				{Name: "entity_external_id", Required: true, Type: ColumnTypeString},
				{Name: "severity", Required: true, Type: ColumnTypeString},
				{Name: "message", Required: true, Type: ColumnTypeString},
				{Name: "acknowledged", Required: false, Type: ColumnTypeBoolean},
			},
		},
	}
}
