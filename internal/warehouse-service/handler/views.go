package handler

import (
	"time"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
)

type userView struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	IsStaff    bool      `json:"is_staff"`
	DateJoined time.Time `json:"date_joined"`
}

func newUserView(u *database.User) userView {
	return userView{ID: u.ID, Username: u.Username, IsStaff: u.IsStaff, DateJoined: u.DateJoined}
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type optionView struct {
	ID    uint   `json:"id"`
	Value string `json:"value"`
}

type fileView struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	UploadDate time.Time `json:"upload_date"`
	User       uint      `json:"user"`
	RowCount   int64     `json:"row_count"`
}

func newFileView(f *database.UploadedFile) fileView {
	return fileView{ID: f.ID, Name: f.Name, UploadDate: f.UploadedAt, User: f.OwnerID, RowCount: f.RowCount}
}

type latestFileView struct {
	LatestFileID   uint   `json:"latest_file_id"`
	LatestFileName string `json:"latest_file_name"`
}

type rowView struct {
	ID                        uint      `json:"id"`
	File                      uint      `json:"file"`
	User                      uint      `json:"user"`
	PosSerialNumber           string    `json:"pos_serial_number"`
	PosModel                  string    `json:"pos_model"`
	PosType                   string    `json:"pos_type"`
	AssetStatus               string    `json:"asset_status"`
	TechnicalCondition        string    `json:"technical_condition"`
	OutletName                string    `json:"outlet_name"`
	OutletWhsName             string    `json:"outlet_whs_name"`
	OutletWhsAddress          string    `json:"outlet_whs_address"`
	City                      string    `json:"city"`
	Region                    string    `json:"region"`
	CompanyName               string    `json:"company_name"`
	CompanyBulstat            string    `json:"company_bulstat"`
	AccountKey                string    `json:"account_key"`
	AccountType               string    `json:"account_type"`
	Agent                     string    `json:"agent"`
	AgentName                 string    `json:"agent_name"`
	ContractNumber            string    `json:"contract_number"`
	ContractStartDate         string    `json:"contract_start_date"`
	ContractEndDate           string    `json:"contract_end_date"`
	Comment                   string    `json:"comment"`
	ScannedTechnicalCondition string    `json:"scanned_technical_condition"`
	ScannedOutletWhsName      string    `json:"scanned_outlet_whs_name"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

func newRowView(r *database.FileRow) rowView {
	return rowView{
		ID:                        r.ID,
		File:                      r.FileID,
		User:                      r.OwnerID,
		PosSerialNumber:           r.PosSerialNumber,
		PosModel:                  r.PosModel,
		PosType:                   r.PosType,
		AssetStatus:               r.AssetStatus,
		TechnicalCondition:        r.TechnicalCondition,
		OutletName:                r.OutletName,
		OutletWhsName:             r.OutletWhsName,
		OutletWhsAddress:          r.OutletWhsAddress,
		City:                      r.City,
		Region:                    r.Region,
		CompanyName:               r.CompanyName,
		CompanyBulstat:            r.CompanyBulstat,
		AccountKey:                r.AccountKey,
		AccountType:               r.AccountType,
		Agent:                     r.Agent,
		AgentName:                 r.AgentName,
		ContractNumber:            r.ContractNumber,
		ContractStartDate:         r.ContractStartDate,
		ContractEndDate:           r.ContractEndDate,
		Comment:                   r.Comment,
		ScannedTechnicalCondition: r.ScannedTechnicalCondition,
		ScannedOutletWhsName:      r.ScannedOutletWhsName,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
	}
}

type scanResponse struct {
	Message string  `json:"message"`
	Status  string  `json:"status"`
	Row     rowView `json:"row"`
}

type routeView struct {
	ID               uint      `json:"id"`
	TypeOfRoute      string    `json:"type_of_route"`
	SrName           string    `json:"sr_name"`
	Region           string    `json:"region"`
	CompanyName      string    `json:"company_name"`
	OutletName       string    `json:"outlet_name"`
	DeliveryAddress  string    `json:"delivery_address"`
	PosModel         string    `json:"pos_model"`
	PosSerialNumber  string    `json:"pos_serial_number"`
	Comment          string    `json:"comment"`
	TransportCompany string    `json:"transport_company"`
	DateForDelivery  string    `json:"date_for_delivery"`
	User             uint      `json:"user"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newRouteView(r *database.Route) routeView {
	return routeView{
		ID:               r.ID,
		TypeOfRoute:      r.TypeOfRoute,
		SrName:           r.SrName,
		Region:           r.Region,
		CompanyName:      r.CompanyName,
		OutletName:       r.OutletName,
		DeliveryAddress:  r.DeliveryAddress,
		PosModel:         r.PosModel,
		PosSerialNumber:  r.PosSerialNumber,
		Comment:          r.Comment,
		TransportCompany: r.TransportCompany,
		DateForDelivery:  time.Time(r.DateForDelivery).Format(ingest.DateLayout),
		User:             r.UserID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
