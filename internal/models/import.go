package models

// ImportFormat identifies the uploaded menu file type
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportColumn describes one column of the menu import template
type ImportColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate is the downloadable template definition
type ImportTemplate struct {
	Name    string         `json:"name"`
	Columns []ImportColumn `json:"columns"`
}

// ImportRowError describes a single failed row
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportResult summarizes a menu import run
type ImportResult struct {
	Success      bool             `json:"success"`
	TotalRows    int              `json:"totalRows"`
	SuccessCount int              `json:"successCount"`
	FailedCount  int              `json:"failedCount"`
	Errors       []ImportRowError `json:"errors"`
	ProcessingMs int64            `json:"processingMs"`
}

// MenuImportTemplate returns the column definitions for dispensary menu imports.
// Terpene columns use name:value pairs so a single cell can carry the full
// profile exported by most POS systems.
func MenuImportTemplate() ImportTemplate {
	return ImportTemplate{
		Name: "Menu Import",
		Columns: []ImportColumn{
			{Name: "name", Description: "Product display name", Required: true, Type: "string", Example: "Blue Dream 3.5g"},
			{Name: "sku", Description: "Unique SKU within your menu", Required: true, Type: "string", Example: "BD-35-FLW"},
			{Name: "category", Description: "Menu category (flower, edibles, vapes, concentrates, pre-rolls, accessories)", Required: true, Type: "string", Example: "flower"},
			{Name: "price", Description: "Retail price in dollars", Required: true, Type: "number", Example: "35.00"},
			{Name: "wholesaleCost", Description: "Wholesale cost in dollars, used for margin scoring", Required: false, Type: "number", Example: "18.50"},
			{Name: "brand", Description: "Brand name", Required: false, Type: "string", Example: "Glass House"},
			{Name: "thcPercent", Description: "THC potency percent", Required: false, Type: "number", Example: "21.4"},
			{Name: "cbdPercent", Description: "CBD potency percent", Required: false, Type: "number", Example: "0.3"},
			{Name: "terpenes", Description: "Semicolon list of terpene:value pairs", Required: false, Type: "string", Example: "myrcene:1.2;linalool:0.4"},
			{Name: "effects", Description: "Comma-separated effect tags", Required: false, Type: "string", Example: "relaxed,sleepy"},
			{Name: "strainType", Description: "indica, sativa, or hybrid", Required: false, Type: "string", Example: "hybrid"},
			{Name: "quantity", Description: "Units on hand", Required: false, Type: "integer", Example: "42"},
			{Name: "daysInStock", Description: "Days since the batch was received", Required: false, Type: "integer", Example: "12"},
			{Name: "posProductId", Description: "POS system product identifier", Required: false, Type: "string", Example: "pos-88231"},
		},
	}
}
