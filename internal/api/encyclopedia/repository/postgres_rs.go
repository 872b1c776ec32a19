package encyclopediaRepository

import (
	"context"
	"database/sql"
	"errors"

	"ProjectZukan/internal/entity"
	contextPkg "ProjectZukan/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type postgresRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

// NewPostgres creates the tables when missing. Semantics match the CSV store.
func NewPostgres(ctx context.Context, db *sqlx.DB, log *logrus.Logger) (Repository, error) {
	if _, err := db.ExecContext(ctx, querySchema); err != nil {
		log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to create encyclopedia tables")
		return nil, err
	}

	return &postgresRepository{db: db, log: log}, nil
}

func (r *postgresRepository) named(ctx context.Context, query string, argsKV map[string]interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.Named(query, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to build SQL query")
		return "", nil, err
	}
	return r.db.Rebind(q), args, nil
}

func (r *postgresRepository) AppendEntry(ctx context.Context, entry entity.EncyclopediaEntry) error {
	query, args, err := r.named(ctx, queryAppendEntry, map[string]interface{}{
		"place":       entry.Place,
		"name":        entry.Name,
		"image":       entry.Image,
		"description": entry.Description,
	})
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Database error when appending encyclopedia entry")
		return err
	}
	return nil
}

func (r *postgresRepository) ListByPlace(ctx context.Context, place string) ([]string, error) {
	query, args, err := r.named(ctx, queryListByPlace, map[string]interface{}{"place": place})
	if err != nil {
		return nil, err
	}

	names := []string{}
	if err := r.db.SelectContext(ctx, &names, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"place":      place,
			"error":      err.Error(),
		}).Error("Database error when listing names")
		return nil, err
	}
	return names, nil
}

func (r *postgresRepository) Get(ctx context.Context, place, name string) (entity.EncyclopediaEntry, error) {
	query, args, err := r.named(ctx, queryGetEntry, map[string]interface{}{
		"place": place,
		"name":  name,
	})
	if err != nil {
		return entity.EncyclopediaEntry{}, err
	}

	var entry entity.EncyclopediaEntry
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.EncyclopediaEntry{}, ErrEntryNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Database error when getting encyclopedia entry")
		return entity.EncyclopediaEntry{}, err
	}
	return entry, nil
}

func (r *postgresRepository) ListPlaces(ctx context.Context) ([]string, error) {
	places := []string{}
	if err := r.db.SelectContext(ctx, &places, queryListPlaces); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Database error when listing places")
		return nil, err
	}
	return places, nil
}

func (r *postgresRepository) AppendLocation(ctx context.Context, record entity.LocationRecord) error {
	query, args, err := r.named(ctx, queryAppendLocation, map[string]interface{}{
		"lat":   record.Lat,
		"lon":   record.Lon,
		"image": record.Image,
	})
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Database error when appending location record")
		return err
	}
	return nil
}

func (r *postgresRepository) ListLocations(ctx context.Context) ([]entity.LocationRecord, error) {
	records := []entity.LocationRecord{}
	if err := r.db.SelectContext(ctx, &records, queryListLocations); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Database error when listing locations")
		return nil, err
	}
	return records, nil
}

func (r *postgresRepository) Close() error {
	return r.db.Close()
}
