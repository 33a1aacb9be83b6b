package io

import (
	"path/filepath"
	"strings"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop"
)

// Format is a program file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Formats lists the supported encodings.
var Formats = []string{string(FormatJSON), string(FormatTOML), string(FormatYAML)}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	if err := errors.ValidateFormat(s, Formats...); err != nil {
		return "", err
	}
	return Format(strings.ToLower(s)), nil
}

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer format of %q", path)
}

// Program is a decoded operator DAG together with its roots in file order.
type Program struct {
	Graph *hop.Graph
	Roots []*hop.Node
}

type document struct {
	Roots []string  `json:"roots" toml:"roots" yaml:"roots"`
	Nodes []docNode `json:"nodes" toml:"nodes" yaml:"nodes"`
}

type docNode struct {
	ID     string   `json:"id" toml:"id" yaml:"id"`
	Op     string   `json:"op" toml:"op" yaml:"op"`
	Name   string   `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty"`
	Inputs []string `json:"inputs,omitempty" toml:"inputs,omitempty" yaml:"inputs,omitempty"`

	Agg    string   `json:"agg,omitempty" toml:"agg,omitempty" yaml:"agg,omitempty"`
	Dir    string   `json:"dir,omitempty" toml:"dir,omitempty" yaml:"dir,omitempty"`
	Binary string   `json:"binary,omitempty" toml:"binary,omitempty" yaml:"binary,omitempty"`
	Unary  string   `json:"unary,omitempty" toml:"unary,omitempty" yaml:"unary,omitempty"`
	Reorg  string   `json:"reorg,omitempty" toml:"reorg,omitempty" yaml:"reorg,omitempty"`
	Value  *float64 `json:"value,omitempty" toml:"value,omitempty" yaml:"value,omitempty"`
	Text   string   `json:"text,omitempty" toml:"text,omitempty" yaml:"text,omitempty"`

	RowsRange string `json:"rows_range,omitempty" toml:"rows_range,omitempty" yaml:"rows_range,omitempty"`
	ColsRange string `json:"cols_range,omitempty" toml:"cols_range,omitempty" yaml:"cols_range,omitempty"`

	DataType  string `json:"data_type,omitempty" toml:"data_type,omitempty" yaml:"data_type,omitempty"`
	ValueType string `json:"value_type,omitempty" toml:"value_type,omitempty" yaml:"value_type,omitempty"`
	Rows      *int64 `json:"rows,omitempty" toml:"rows,omitempty" yaml:"rows,omitempty"`
	Cols      *int64 `json:"cols,omitempty" toml:"cols,omitempty" yaml:"cols,omitempty"`
	Nnz       *int64 `json:"nnz,omitempty" toml:"nnz,omitempty" yaml:"nnz,omitempty"`
	Block     *int64 `json:"block,omitempty" toml:"block,omitempty" yaml:"block,omitempty"`
}

// arity is the number of inputs each file operator takes.
var arity = map[string]int{
	"read":      0,
	"literal":   0,
	"write":     1,
	"agg":       1,
	"unary":     1,
	"index":     1,
	"datagen":   2,
	"matmult":   2,
	"binary":    2,
	"leftindex": 2,
}
