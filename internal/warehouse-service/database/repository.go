package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rowBatchSize keeps bulk inserts under the sqlite bound parameter limit.
const rowBatchSize = 200

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to a single transaction.
// Any error returned by fn rolls the transaction back.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	return Ping(ctx, r.db)
}

func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repository) GetUser(ctx context.Context, id uint) (*User, error) {
	u := &User{}
	return u, r.db.WithContext(ctx).First(u, id).Error
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	return u, r.db.WithContext(ctx).Where("username = ?", username).First(u).Error
}

// SetUserActive switches a user on or off. Inactive users can't log in and
// their token stops working.
func (r *Repository) SetUserActive(ctx context.Context, username string, active bool) error {
	tx := r.db.WithContext(ctx).
		Model(&User{}).
		Where("username = ?", username).
		Update("is_active", active)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

// GetOrCreateToken returns the user's token, creating it on first login.
func (r *Repository) GetOrCreateToken(ctx context.Context, userID uint) (*Token, error) {
	t := &Token{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(t).Error
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	t = &Token{Key: uuid.New(), UserID: userID}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Repository) GetUserByToken(ctx context.Context, key uuid.UUID) (*User, error) {
	t := &Token{}
	err := r.db.WithContext(ctx).Preload("User").Where(&Token{Key: key}).First(t).Error
	if err != nil {
		return nil, err
	}
	if t.User == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return t.User, nil
}

func (r *Repository) ListOptions(ctx context.Context, userID uint, kind string) ([]*UserOption, error) {
	var res []*UserOption
	err := r.db.WithContext(ctx).
		Where(&UserOption{UserID: userID, Kind: kind}).
		Order("value").
		Find(&res).Error
	return res, err
}

func (r *Repository) AddOption(ctx context.Context, o *UserOption) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *Repository) RemoveOption(ctx context.Context, userID uint, kind string, id uint) error {
	tx := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND kind = ?", id, userID, kind).
		Delete(&UserOption{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FileExists(ctx context.Context, ownerID uint, name string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&UploadedFile{}).
		Where("owner_id = ? AND name = ?", ownerID, name).
		Count(&n).Error
	return n > 0, err
}

func (r *Repository) CreateFile(ctx context.Context, f *UploadedFile) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(f).Error
}

func (r *Repository) CreateRows(ctx context.Context, rows []*FileRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, rowBatchSize).Error
}

func (r *Repository) GetFile(ctx context.Context, id uint) (*UploadedFile, error) {
	f := &UploadedFile{}
	return f, r.db.WithContext(ctx).First(f, id).Error
}

// ListFiles returns the owner's files, newest first.
func (r *Repository) ListFiles(ctx context.Context, ownerID uint) ([]*UploadedFile, error) {
	var res []*UploadedFile
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("uploaded_at desc, id desc").
		Find(&res).Error
	return res, err
}

func (r *Repository) LatestFile(ctx context.Context, ownerID uint) (*UploadedFile, error) {
	f := &UploadedFile{}
	return f, r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("uploaded_at desc, id desc").
		First(f).Error
}

func (r *Repository) CountRows(ctx context.Context, fileID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&FileRow{}).Where("file_id = ?", fileID).Count(&n).Error
	return n, err
}

func (r *Repository) ListRows(ctx context.Context, fileID uint) ([]*FileRow, error) {
	var res []*FileRow
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Order("id").Find(&res).Error
	return res, err
}

// FindRowBySerial returns the first row of the file with the serial number.
// Serial numbers are not unique, the lowest id wins.
func (r *Repository) FindRowBySerial(ctx context.Context, fileID uint, serial string) (*FileRow, error) {
	row := &FileRow{}
	return row, r.db.WithContext(ctx).
		Where("file_id = ? AND pos_serial_number = ?", fileID, serial).
		Order("id").
		First(row).Error
}

func (r *Repository) CreateRow(ctx context.Context, row *FileRow) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// UpdateScan writes the scan overlay of an existing row.
func (r *Repository) UpdateScan(ctx context.Context, row *FileRow) error {
	return r.db.WithContext(ctx).
		Model(row).
		Select("scanned_technical_condition", "scanned_outlet_whs_name", "updated_at").
		Updates(row).Error
}

func (r *Repository) CreateRoutes(ctx context.Context, routes []*Route) error {
	if len(routes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(routes, rowBatchSize).Error
}

// ListRoutes returns the routes of a day. An empty transportCompany means all
// companies.
func (r *Repository) ListRoutes(ctx context.Context, day datatypes.Date, transportCompany string) ([]*Route, error) {
	var res []*Route
	q := r.db.WithContext(ctx).Where("date_for_delivery = ?", day)
	if transportCompany != "" {
		q = q.Where("transport_company = ?", transportCompany)
	}
	err := q.Order("id").Find(&res).Error
	return res, err
}

// GetRoutes loads the routes with the given ids, keyed by id. Missing ids are
// simply absent from the result.
func (r *Repository) GetRoutes(ctx context.Context, ids []uint) (map[uint]*Route, error) {
	res := make(map[uint]*Route, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var routes []*Route
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&routes).Error; err != nil {
		return nil, err
	}
	for _, route := range routes {
		res[route.ID] = route
	}
	return res, nil
}

// SaveRoutes writes all given routes back in one statement.
func (r *Repository) SaveRoutes(ctx context.Context, routes []*Route) error {
	if len(routes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(RouteColumns),
		}).
		Create(routes).Error
}
