// Package reportapi is the client for the reporting service REST API.
// It speaks JSON over HTTP, knows the endpoint layout and the wire types, and
// keeps no session state; internal/document builds the state machine on top.
package reportapi

import (
	"encoding/json"
	"path"
	"strings"
	"time"
)

// ExecutionStatus is the server-side state of a cached report execution
type ExecutionStatus string

const (
	StatusNotFound  ExecutionStatus = "NotFound"
	StatusLoaded    ExecutionStatus = "Loaded"
	StatusRendering ExecutionStatus = "Rendering"
	StatusCompleted ExecutionStatus = "Completed"
	StatusStopped   ExecutionStatus = "Stopped"
	StatusCleared   ExecutionStatus = "Cleared"
)

// Valid reports whether s is one of the known status tokens
func (s ExecutionStatus) Valid() bool {
	switch s {
	case StatusNotFound, StatusLoaded, StatusRendering, StatusCompleted, StatusStopped, StatusCleared:
		return true
	}
	return false
}

// Finished reports whether rendering has come to rest
func (s ExecutionStatus) Finished() bool {
	return s == StatusCompleted || s == StatusStopped
}

// DataType is the declared type of a report parameter
type DataType string

const (
	DataTypeBoolean  DataType = "Boolean"
	DataTypeDateTime DataType = "DateTime"
	DataTypeTime     DataType = "Time"
	DataTypeDate     DataType = "Date"
	DataTypeInteger  DataType = "Integer"
	DataTypeFloat    DataType = "Float"
	DataTypeString   DataType = "String"
)

// IsTemporal reports whether the type holds a date and/or time
func (d DataType) IsTemporal() bool {
	return d == DataTypeDateTime || d == DataTypeDate || d == DataTypeTime
}

// IsNumeric reports whether the type holds a number
func (d DataType) IsNumeric() bool {
	return d == DataTypeInteger || d == DataTypeFloat
}

// AllowedValue is one entry of a parameter's selection list
type AllowedValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Parameter is a report parameter definition together with its current value.
// Value is a scalar, or a []any of scalars when MultiValue is set.
type Parameter struct {
	Name          string         `json:"name"`
	DataType      DataType       `json:"dataType"`
	Nullable      bool           `json:"nullable"`
	MultiValue    bool           `json:"multiValue"`
	Hidden        bool           `json:"hidden"`
	AllowedValues []AllowedValue `json:"allowedValues,omitempty"`
	Value         any            `json:"value"`
	Prompt        string         `json:"prompt"`
	Error         string         `json:"error,omitempty"`
}

// HasValue reports whether the parameter carries a resolved value.
// nil, the empty string and an empty sequence do not count.
func (p *Parameter) HasValue() bool {
	return HasValue(p.Value)
}

// Required reports whether the parameter blocks rendering until a value is supplied
func (p *Parameter) Required() bool {
	return !p.Nullable && !p.HasValue()
}

// HasValue reports whether v is a resolved parameter value
func HasValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	}
	return true
}

// ParameterValue is one entry of a setParameters request
type ParameterValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ParameterErrors returns name → message for every item that carries an error
func ParameterErrors(params []Parameter) map[string]string {
	errs := make(map[string]string)
	for _, p := range params {
		if p.Error != "" {
			errs[p.Name] = p.Error
		}
	}
	return errs
}

// PageSettings describes the page layout of a rendered document
type PageSettings struct {
	Paginated    bool    `json:"paginated"`
	Landscape    bool    `json:"landscape"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	LeftMargin   float64 `json:"leftMargin"`
	RightMargin  float64 `json:"rightMargin"`
	TopMargin    float64 `json:"topMargin"`
	BottomMargin float64 `json:"bottomMargin"`
}

// DocumentStatus is the execution progress plus layout and parameter flags
type DocumentStatus struct {
	Status        ExecutionStatus `json:"status"`
	HasParameters bool            `json:"hasParameters"`
	PageSettings  *PageSettings   `json:"pageSettings,omitempty"`
	PageCount     int             `json:"pageCount,omitempty"`
	Progress      float64         `json:"progress,omitempty"`
}

// ExecutionInfo is returned by load, render, stop and the status peek
type ExecutionInfo struct {
	CacheID        string          `json:"cacheId"`
	Status         ExecutionStatus `json:"status"`
	DocumentStatus DocumentStatus  `json:"documentStatus"`
	LoadedAt       *time.Time      `json:"loadedAt,omitempty"`
}

// ClearResult is the reply to DELETE /reportcache/{id}
type ClearResult struct {
	IsCleared bool `json:"isCleared"`
}

// CatalogItemType classifies catalog entries
type CatalogItemType string

const (
	CatalogFolder CatalogItemType = "Folder"
	CatalogFile   CatalogItemType = "File"
	CatalogReport CatalogItemType = "Report"
)

// CatalogItem is a read-only entry of the report catalog
type CatalogItem struct {
	Name  string          `json:"name"`
	Path  string          `json:"path"`
	Type  CatalogItemType `json:"type"`
	Items []CatalogItem   `json:"items,omitempty"`
}

// Rect is a rectangle in page coordinates
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DocumentPosition locates a point inside the rendered document
type DocumentPosition struct {
	PageIndex  int   `json:"pageIndex"`
	PageBounds *Rect `json:"pageBounds,omitempty"`
}

// OutlineNode is one entry of the document outline (table of contents)
type OutlineNode struct {
	Caption  string           `json:"caption"`
	Level    int              `json:"level"`
	Position DocumentPosition `json:"position"`
	Children []OutlineNode    `json:"children,omitempty"`
}

// SearchOptions are the query parameters of a text search
type SearchOptions struct {
	Text      string
	MatchCase bool
	WholeWord bool
}

// SearchResult is one hit of a text search
type SearchResult struct {
	NearText           string `json:"nearText"`
	PositionInNearText int    `json:"positionInNearText"`
	PageIndex          int    `json:"pageIndex"`
	BoundsList         []Rect `json:"boundsList,omitempty"`
}

// ExportFormat describes one supported export format
type ExportFormat struct {
	Format    string `json:"format"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

// ExportOptions select the export format and its options
type ExportOptions struct {
	Format   string
	FileName string
	Options  map[string]string
}

// ExportResult is the binary output of an export
type ExportResult struct {
	ContentType string
	FileName    string
	Data        []byte
}

// CustomAction is an interactive document action such as a drill-through
type CustomAction struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// LoadRequest is the optional body of POST .../load
type LoadRequest struct {
	Paginated  *bool            `json:"paginated,omitempty"`
	Parameters []ParameterValue `json:"parameters,omitempty"`
}

// IsFlexReport reports whether filePath names a FlexReport definition file,
// which holds several reports and so needs an explicit report name.
func IsFlexReport(filePath string) bool {
	ext := strings.ToLower(path.Ext(filePath))
	return ext == ".flxr" || ext == ".xml"
}
