// Package ingest turns spreadsheet rows into flat string records.
//
// A Schema lists the columns an upload understands. Map checks a sheet's
// header row against it and Normalize converts one data row into a Record
// keyed by field name. Neither touches the database.
package ingest

import "strings"

type Column struct {
	Field  string
	Header string
	// Required headers must be present in the sheet.
	Required bool
	// NotBlank values must not normalize to "".
	NotBlank bool
	// MaxLen is counted in runes, 0 means unlimited.
	MaxLen int
	// Date values are parsed and stored as DateLayout.
	Date bool
}

type Schema struct {
	Name    string
	Columns []Column
}

// Record is a normalized row, field name to value.
type Record map[string]string

func (s *Schema) Headers() []string {
	res := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		res[i] = c.Header
	}
	return res
}

func (s *Schema) RequiredHeaders() []string {
	var res []string
	for _, c := range s.Columns {
		if c.Required {
			res = append(res, c.Header)
		}
	}
	return res
}

// Column returns the column definition of a field.
func (s *Schema) Column(field string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

func normalizeHeader(h string) string {
	return strings.TrimSpace(h)
}

const maxCharField = 255

// Assets is the layout of an asset inventory upload. The export writes the
// same headers so an exported workbook can be uploaded again.
var Assets = &Schema{
	Name: "assets",
	Columns: []Column{
		{Field: "pos_serial_number", Header: "POS Serial Number", Required: true, MaxLen: maxCharField},
		{Field: "pos_model", Header: "POS Model", MaxLen: maxCharField},
		{Field: "pos_type", Header: "POS Type", MaxLen: maxCharField},
		{Field: "asset_status", Header: "Asset Status", MaxLen: maxCharField},
		{Field: "technical_condition", Header: "Technical Condition", Required: true, MaxLen: maxCharField},
		{Field: "outlet_name", Header: "Outlet Name", MaxLen: maxCharField},
		{Field: "outlet_whs_name", Header: "Outlet WHS Name", Required: true, MaxLen: maxCharField},
		{Field: "outlet_whs_address", Header: "Outlet WHS Address", MaxLen: maxCharField},
		{Field: "city", Header: "City", MaxLen: maxCharField},
		{Field: "region", Header: "Region", MaxLen: maxCharField},
		{Field: "company_name", Header: "Company Name", MaxLen: maxCharField},
		{Field: "company_bulstat", Header: "Company Bulstat", MaxLen: maxCharField},
		{Field: "account_key", Header: "Account Key", MaxLen: maxCharField},
		{Field: "account_type", Header: "Account Type", MaxLen: maxCharField},
		{Field: "agent", Header: "Agent", MaxLen: maxCharField},
		{Field: "agent_name", Header: "Agent Name", MaxLen: maxCharField},
		{Field: "contract_number", Header: "Contract Number", MaxLen: maxCharField},
		{Field: "contract_start_date", Header: "Contract Start Date", MaxLen: maxCharField},
		{Field: "contract_end_date", Header: "Contract End Date", MaxLen: maxCharField},
		{Field: "comment", Header: "Comment", MaxLen: maxCharField},
		{Field: "scanned_technical_condition", Header: "Scanned Technical Condition", MaxLen: maxCharField},
		{Field: "scanned_outlet_whs_name", Header: "Scanned Outlet WHS Name", MaxLen: maxCharField},
	},
}

// Routes is the layout of a routing plan upload.
var Routes = &Schema{
	Name: "routes",
	Columns: []Column{
		{Field: "type_of_route", Header: "Type of route", Required: true, NotBlank: true, MaxLen: 30},
		{Field: "sr_name", Header: "Organizational Structure Object", Required: true, NotBlank: true, MaxLen: 100},
		{Field: "region", Header: "Geography Object", Required: true, NotBlank: true, MaxLen: 30},
		{Field: "company_name", Header: "Legal Name of an Outlet", Required: true, NotBlank: true, MaxLen: 100},
		{Field: "outlet_name", Header: "Actual Name of an Outlet", Required: true, NotBlank: true, MaxLen: 100},
		{Field: "delivery_address", Header: "Delivery Address", Required: true, NotBlank: true, MaxLen: 100},
		{Field: "pos_model", Header: "POS Equipment", MaxLen: 100},
		{Field: "pos_serial_number", Header: "Serial Number", MaxLen: 100},
		{Field: "comment", Header: "Comment"},
		{Field: "transport_company", Header: "Additional Comment", Required: true, NotBlank: true, MaxLen: 100},
		{Field: "date_for_delivery", Header: "Fact Delivery Date", Required: true, NotBlank: true, Date: true},
	},
}
