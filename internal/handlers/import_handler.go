package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"upsell-service/internal/events"
	"upsell-service/internal/models"
	"upsell-service/internal/repository"
)

type ImportHandler struct {
	repo            repository.ProductRepositoryInterface
	eventsPublisher *events.Publisher
}

func NewImportHandler(repo repository.ProductRepositoryInterface, eventsPublisher *events.Publisher) *ImportHandler {
	return &ImportHandler{repo: repo, eventsPublisher: eventsPublisher}
}

// GetImportTemplate returns the menu import template definition or file
// @Summary Download menu import template
// @Tags import
// @Produce json
// @Param format query string false "Template format: json, csv, or xlsx"
// @Success 200 {object} map[string]interface{}
// @Router /import/template [get]
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.MenuImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=menu_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Menu"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Menu Import Instructions")
	f.SetCellValue("Instructions", "A3", "Rows are matched to existing products by SKU. Matching SKUs are updated, new SKUs are created.")
	f.SetCellValue("Instructions", "A4", "Terpene profiles use semicolon-separated name:value pairs, e.g. myrcene:1.2;linalool:0.4")
	f.SetCellValue("Instructions", "A5", "Effect tags are comma-separated, e.g. relaxed,sleepy,euphoric")

	f.SetCellValue("Instructions", "A7", "Column Definitions:")
	f.SetCellValue("Instructions", "A8", "Column")
	f.SetCellValue("Instructions", "B8", "Description")
	f.SetCellValue("Instructions", "C8", "Required")
	f.SetCellValue("Instructions", "D8", "Type")
	f.SetCellValue("Instructions", "E8", "Example")

	for i, col := range template.Columns {
		row := i + 9
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=menu_import_template.xlsx")

	f.Write(c.Writer)
}

// ImportMenu imports or refreshes the catalog from a CSV or Excel menu export
// @Summary Import menu file
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX menu file"
// @Param validateOnly formData bool false "Validate without writing"
// @Success 200 {object} models.ImportResult
// @Failure 400 {object} models.ErrorResponse
// @Router /import [post]
func (h *ImportHandler) ImportMenu(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")
	userID, _ := c.Get("user_id")
	startTime := time.Now()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload a CSV or Excel file",
			},
		})
		return
	}
	defer file.Close()

	validateOnly := c.DefaultPostForm("validateOnly", "false") == "true"

	filename := header.Filename
	var rows []map[string]string
	var parseErr error

	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		rows, parseErr = h.parseCSV(file)
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		rows, parseErr = h.parseXLSX(file)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FORMAT",
				Message: "Only CSV and XLSX files are supported",
			},
		})
		return
	}

	if parseErr != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "PARSE_ERROR",
				Message: parseErr.Error(),
			},
		})
		return
	}

	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "EMPTY_FILE",
				Message: "The file contains no data rows",
			},
		})
		return
	}

	result := h.processImport(tenantID.(string), rows, validateOnly)
	result.ProcessingMs = time.Since(startTime).Milliseconds()

	if !validateOnly && h.eventsPublisher != nil {
		actorID := ""
		if userID != nil {
			actorID = userID.(string)
		}
		_ = h.eventsPublisher.PublishMenuImported(c.Request.Context(), tenantID.(string), filename, result.SuccessCount, result.FailedCount, actorID)
	}

	c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) processImport(tenantID string, rows []map[string]string, validateOnly bool) *models.ImportResult {
	result := &models.ImportResult{
		TotalRows: len(rows),
		Errors:    make([]models.ImportRowError, 0),
	}

	products := make([]models.Product, 0, len(rows))

	for _, row := range rows {
		rowNum, _ := strconv.Atoi(row["_row"])

		h.validateRequiredFields(row, rowNum, result)
		if h.hasRowErrors(result, rowNum) {
			continue
		}

		price, _ := strconv.ParseFloat(row["price"], 64)
		product := models.Product{
			TenantID:      tenantID,
			Name:          row["name"],
			SKU:           row["sku"],
			Category:      strings.ToLower(row["category"]),
			Price:         price,
			Brand:         optionalString(row["brand"]),
			WholesaleCost: parseOptionalFloat(row["wholesalecost"]),
			THCPercent:    parseOptionalFloat(row["thcpercent"]),
			CBDPercent:    parseOptionalFloat(row["cbdpercent"]),
			Terpenes:      parseTerpenes(row["terpenes"]),
			Effects:       parseEffects(row["effects"]),
			StrainType:    optionalString(strings.ToLower(row["straintype"])),
			Quantity:      parseOptionalInt(row["quantity"]),
			DaysInStock:   parseOptionalInt(row["daysinstock"]),
			POSProductID:  optionalString(row["posproductid"]),
			Status:        models.ProductStatusActive,
		}

		products = append(products, product)
	}

	if validateOnly {
		result.Success = len(result.Errors) == 0
		result.SuccessCount = len(products)
		result.FailedCount = result.TotalRows - len(products)
		return result
	}

	if len(products) == 0 {
		result.Success = false
		result.FailedCount = result.TotalRows
		return result
	}

	upserted, err := h.repo.BulkUpsert(tenantID, products)
	if err != nil {
		result.Success = false
		result.FailedCount = result.TotalRows
		result.Errors = append(result.Errors, models.ImportRowError{
			Row:     0,
			Code:    "BULK_UPSERT_FAILED",
			Message: err.Error(),
		})
		return result
	}

	result.Success = upserted > 0
	result.SuccessCount = upserted
	result.FailedCount = result.TotalRows - upserted
	return result
}

func (h *ImportHandler) parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	normalizeHeaders(headers)

	var rows []map[string]string
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(lineNum + 1)
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

func (h *ImportHandler) parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Menu") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	normalizeHeaders(headers)

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		row := make(map[string]string)
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(rowIdx + 2)
		rows = append(rows, row)
	}

	return rows, nil
}

func normalizeHeaders(headers []string) {
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}
}

func (h *ImportHandler) validateRequiredFields(row map[string]string, rowNum int, result *models.ImportResult) {
	if row["name"] == "" {
		h.addError(result, rowNum, "name", "REQUIRED", "Product name is required")
	}
	if row["sku"] == "" {
		h.addError(result, rowNum, "sku", "REQUIRED", "SKU is required")
	}
	if row["category"] == "" {
		h.addError(result, rowNum, "category", "REQUIRED", "Category is required")
	}
	if row["price"] == "" {
		h.addError(result, rowNum, "price", "REQUIRED", "Price is required")
	} else if _, err := strconv.ParseFloat(row["price"], 64); err != nil {
		h.addError(result, rowNum, "price", "INVALID", "Price must be a valid number")
	}
}

func (h *ImportHandler) addError(result *models.ImportResult, rowNum int, column, code, message string) {
	result.Errors = append(result.Errors, models.ImportRowError{
		Row:     rowNum,
		Column:  column,
		Code:    code,
		Message: message,
	})
}

func (h *ImportHandler) hasRowErrors(result *models.ImportResult, rowNum int) bool {
	for _, e := range result.Errors {
		if e.Row == rowNum {
			return true
		}
	}
	return false
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func parseOptionalInt(value string) *int {
	if value == "" {
		return nil
	}
	if num, err := strconv.Atoi(value); err == nil {
		return &num
	}
	return nil
}

func parseOptionalFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	if num, err := strconv.ParseFloat(value, 64); err == nil {
		return &num
	}
	return nil
}

// parseTerpenes parses "myrcene:1.2;linalool:0.4" into a terpene profile.
// Pairs without a numeric value get 0 so name-only POS exports still match.
func parseTerpenes(value string) models.TerpeneProfile {
	profile := make(models.TerpeneProfile)
	if value == "" {
		return profile
	}
	for _, pair := range strings.Split(value, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, amount, found := strings.Cut(pair, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		potency := 0.0
		if found {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(amount), 64); err == nil {
				potency = parsed
			}
		}
		profile[name] = potency
	}
	return profile
}

func parseEffects(value string) models.StringArray {
	effects := make(models.StringArray, 0)
	if value == "" {
		return effects
	}
	for _, effect := range strings.Split(value, ",") {
		effect = strings.ToLower(strings.TrimSpace(effect))
		if effect != "" {
			effects = append(effects, effect)
		}
	}
	return effects
}
