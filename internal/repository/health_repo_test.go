package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"slices"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"solar_controller/internal/models"
	"solar_controller/internal/repository"
)

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool { return f(v) }

func TestHealthSQLite_Save_ConvertsToUTCAndMarshalsSources(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	tokyo := time.FixedZone("JST", 9*60*60)
	reset := time.Date(2023, 10, 5, 12, 34, 56, 0, tokyo)

	isExactUTC := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		return ok && tm.Equal(reset) && tm.Location() == time.UTC
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mcu_health")).
		WithArgs(1, `["brown-out","power-on"]`, isExactUTC).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repository.NewHealthSQLite(db).Save(context.Background(), models.MCUHealth{
		ResetSources: []string{"brown-out", "power-on"},
		ResetTime:    reset,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHealthSQLite_Save_NilSourcesBecomeEmptyArray(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mcu_health")).
		WithArgs(1, "[]", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	if err := repository.NewHealthSQLite(db).Save(context.Background(), models.MCUHealth{}); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHealthSQLite_Load_NoRowsReturnsZeroValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT reset_sources, reset_time")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	got, err := repository.NewHealthSQLite(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !got.ResetTime.IsZero() || got.ResetSources != nil {
		t.Fatalf("Load() expected zero value, got %+v", got)
	}
}

func TestHealthSQLite_Load_HappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	ny := time.FixedZone("EST", -5*60*60)
	nonUTC := time.Date(2024, 2, 1, 8, 30, 0, 0, ny)

	rows := sqlmock.NewRows([]string{"reset_sources", "reset_time"}).
		AddRow(`["watchdog"]`, nonUTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT reset_sources, reset_time")).
		WithArgs(1).
		WillReturnRows(rows)

	got, err := repository.NewHealthSQLite(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !slices.Equal(got.ResetSources, []string{"watchdog"}) {
		t.Fatalf("sources = %v", got.ResetSources)
	}
	if got.ResetTime.Location() != time.UTC || !got.ResetTime.Equal(nonUTC) {
		t.Fatalf("reset time = %v", got.ResetTime)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHealthSQLite_Load_InvalidJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"reset_sources", "reset_time"}).
		AddRow(`{not: "an array"}`, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT reset_sources, reset_time")).
		WithArgs(1).
		WillReturnRows(rows)

	if _, err := repository.NewHealthSQLite(db).Load(context.Background()); err == nil {
		t.Fatalf("Load() expected error due to invalid JSON, got nil")
	}
}
