package files

import (
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
)

func rowFromRecord(rec ingest.Record) *database.FileRow {
	return &database.FileRow{
		PosSerialNumber:           rec["pos_serial_number"],
		PosModel:                  rec["pos_model"],
		PosType:                   rec["pos_type"],
		AssetStatus:               rec["asset_status"],
		TechnicalCondition:        rec["technical_condition"],
		OutletName:                rec["outlet_name"],
		OutletWhsName:             rec["outlet_whs_name"],
		OutletWhsAddress:          rec["outlet_whs_address"],
		City:                      rec["city"],
		Region:                    rec["region"],
		CompanyName:               rec["company_name"],
		CompanyBulstat:            rec["company_bulstat"],
		AccountKey:                rec["account_key"],
		AccountType:               rec["account_type"],
		Agent:                     rec["agent"],
		AgentName:                 rec["agent_name"],
		ContractNumber:            rec["contract_number"],
		ContractStartDate:         rec["contract_start_date"],
		ContractEndDate:           rec["contract_end_date"],
		Comment:                   rec["comment"],
		ScannedTechnicalCondition: rec["scanned_technical_condition"],
		ScannedOutletWhsName:      rec["scanned_outlet_whs_name"],
	}
}

// rowField is the inverse of rowFromRecord for a single field.
func rowField(row *database.FileRow, field string) string {
	switch field {
	case "pos_serial_number":
		return row.PosSerialNumber
	case "pos_model":
		return row.PosModel
	case "pos_type":
		return row.PosType
	case "asset_status":
		return row.AssetStatus
	case "technical_condition":
		return row.TechnicalCondition
	case "outlet_name":
		return row.OutletName
	case "outlet_whs_name":
		return row.OutletWhsName
	case "outlet_whs_address":
		return row.OutletWhsAddress
	case "city":
		return row.City
	case "region":
		return row.Region
	case "company_name":
		return row.CompanyName
	case "company_bulstat":
		return row.CompanyBulstat
	case "account_key":
		return row.AccountKey
	case "account_type":
		return row.AccountType
	case "agent":
		return row.Agent
	case "agent_name":
		return row.AgentName
	case "contract_number":
		return row.ContractNumber
	case "contract_start_date":
		return row.ContractStartDate
	case "contract_end_date":
		return row.ContractEndDate
	case "comment":
		return row.Comment
	case "scanned_technical_condition":
		return row.ScannedTechnicalCondition
	case "scanned_outlet_whs_name":
		return row.ScannedOutletWhsName
	}
	return ""
}
