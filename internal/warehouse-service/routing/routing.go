// Package routing manages the delivery plan of transport companies.
package routing

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/metrics"
)

var (
	ErrInvalidDate  = common.Kind(common.ErrValidation, "date must be formatted as YYYY-MM-DD")
	ErrDateRequired = common.Kind(common.ErrValidation, "date parameter is required")
)

// Patch is a partial routing record, nil fields are left alone.
type Patch struct {
	TypeOfRoute      *string `json:"type_of_route"`
	SrName           *string `json:"sr_name"`
	Region           *string `json:"region"`
	CompanyName      *string `json:"company_name"`
	OutletName       *string `json:"outlet_name"`
	DeliveryAddress  *string `json:"delivery_address"`
	PosModel         *string `json:"pos_model"`
	PosSerialNumber  *string `json:"pos_serial_number"`
	Comment          *string `json:"comment"`
	TransportCompany *string `json:"transport_company"`
	DateForDelivery  *string `json:"date_for_delivery"`
}

type Service struct {
	repo   *database.Repository
	logger *log.Entry
	schema *jsonschema.Schema
	now    func() time.Time
}

func NewService(repo *database.Repository, logger *log.Entry) (*Service, error) {
	schema, err := compilePatchSchema(ingest.Routes)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:   repo,
		logger: logger.WithField("component", "routing"),
		schema: schema,
		now:    time.Now,
	}, nil
}

// Upload stores every row of a routing sheet, or none of them.
func (s *Service) Upload(ctx context.Context, user *database.User, name string, r io.Reader) (int, error) {
	started := time.Now()
	n, err := s.upload(ctx, user, name, r)
	metrics.RecordUpload(ingest.Routes.Name, n, started, err)
	return n, err
}

func (s *Service) upload(ctx context.Context, user *database.User, name string, r io.Reader) (int, error) {
	if err := ingest.CheckExtension(filepath.Base(name)); err != nil {
		return 0, err
	}
	sheet, err := ingest.ReadSheet(r)
	if err != nil {
		return 0, err
	}
	m, err := ingest.Routes.Map(sheet.Headers)
	if err != nil {
		return 0, err
	}

	routes := make([]*database.Route, 0, len(sheet.Rows))
	err = s.repo.Transaction(ctx, func(tx *database.Repository) error {
		for i, raw := range sheet.Rows {
			if ingest.IsBlank(raw) {
				continue
			}
			rec, err := ingest.Routes.Normalize(m, raw, sheet.Line(i))
			if err != nil {
				return err
			}
			route, err := routeFromRecord(rec)
			if err != nil {
				return &ingest.IngestionError{Row: sheet.Line(i), Column: "Fact Delivery Date", Err: err}
			}
			route.UserID = user.ID
			routes = append(routes, route)
		}
		return tx.CreateRoutes(ctx, routes)
	})
	l := s.logger.WithFields(log.Fields{"user": user.Username, "file_name": name})
	if err != nil {
		l.WithError(err).Warn("routing upload rejected")
		return 0, err
	}
	l.WithField("rows", len(routes)).Info("routing data imported")
	return len(routes), nil
}

func routeFromRecord(rec ingest.Record) (*database.Route, error) {
	day, err := parseDay(rec["date_for_delivery"])
	if err != nil {
		return nil, err
	}
	return &database.Route{
		TypeOfRoute:      rec["type_of_route"],
		SrName:           rec["sr_name"],
		Region:           rec["region"],
		CompanyName:      rec["company_name"],
		OutletName:       rec["outlet_name"],
		DeliveryAddress:  rec["delivery_address"],
		PosModel:         rec["pos_model"],
		PosSerialNumber:  rec["pos_serial_number"],
		Comment:          rec["comment"],
		TransportCompany: rec["transport_company"],
		DateForDelivery:  day,
	}, nil
}

func parseDay(v string) (datatypes.Date, error) {
	t, err := time.Parse(ingest.DateLayout, strings.TrimSpace(v))
	if err != nil {
		return datatypes.Date{}, ErrInvalidDate
	}
	return datatypes.Date(t), nil
}

// List returns the routes of a day. Staff see every company, anybody else
// only the routes whose transport company is their username.
func (s *Service) List(ctx context.Context, user *database.User, day string) ([]*database.Route, error) {
	if strings.TrimSpace(day) == "" {
		return nil, ErrDateRequired
	}
	d, err := parseDay(day)
	if err != nil {
		return nil, err
	}
	company := user.Username
	if user.IsStaff {
		company = ""
	}
	return s.repo.ListRoutes(ctx, d, company)
}

// Update applies patches keyed by record id and returns how many records
// changed. Ids that don't exist, or that belong to another transport company
// for non staff users, are skipped without an error.
func (s *Service) Update(ctx context.Context, user *database.User, patches map[string]json.RawMessage) (int, error) {
	ids := make([]uint, 0, len(patches))
	parsed := make(map[uint]*Patch, len(patches))
	for key, raw := range patches {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil || id == 0 {
			return 0, common.Validationf("invalid record id %q", key)
		}
		p, err := s.decodePatch(raw)
		if err != nil {
			return 0, common.Validationf("record %d: %v", id, err)
		}
		ids = append(ids, uint(id))
		parsed[uint(id)] = p
	}
	slices.Sort(ids)

	var changed []*database.Route
	err := s.repo.Transaction(ctx, func(tx *database.Repository) error {
		routes, err := tx.GetRoutes(ctx, ids)
		if err != nil {
			return err
		}
		now := s.now()
		for _, id := range ids {
			route, ok := routes[id]
			if !ok {
				continue
			}
			if !user.IsStaff && route.TransportCompany != user.Username {
				continue
			}
			if err := parsed[id].apply(route); err != nil {
				return err
			}
			route.UpdatedAt = now
			changed = append(changed, route)
		}
		return tx.SaveRoutes(ctx, changed)
	})
	l := s.logger.WithFields(log.Fields{"user": user.Username, "requested": len(ids)})
	if err != nil {
		l.WithError(err).Warn("routing update failed")
		return 0, err
	}
	metrics.RoutesUpdated.Add(float64(len(changed)))
	l.WithField("updated", len(changed)).Info("routing data updated")
	return len(changed), nil
}

func (s *Service) decodePatch(raw json.RawMessage) (*Patch, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if err := s.schema.Validate(v); err != nil {
		return nil, err
	}
	p := &Patch{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Patch) apply(r *database.Route) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&r.TypeOfRoute, p.TypeOfRoute)
	set(&r.SrName, p.SrName)
	set(&r.Region, p.Region)
	set(&r.CompanyName, p.CompanyName)
	set(&r.OutletName, p.OutletName)
	set(&r.DeliveryAddress, p.DeliveryAddress)
	set(&r.PosModel, p.PosModel)
	set(&r.PosSerialNumber, p.PosSerialNumber)
	set(&r.Comment, p.Comment)
	set(&r.TransportCompany, p.TransportCompany)
	if p.DateForDelivery != nil {
		d, err := parseDay(*p.DateForDelivery)
		if err != nil {
			return err
		}
		r.DateForDelivery = d
	}
	return nil
}
