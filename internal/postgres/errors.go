package postgres

import (
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
)

// Translate converts driver errors into apperr values. entity names the
// thing that was looked up, e.g. "order".
func Translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity + " not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Storage("unique constraint failed", pgErr.ConstraintName, pgErr.TableName, err)
		case codeForeignKeyViolation:
			return apperr.Storage("foreign key constraint failed", pgErr.ConstraintName, pgErr.TableName, err)
		case codeCheckViolation:
			return apperr.Storage("check constraint failed", pgErr.ConstraintName, pgErr.TableName, err)
		case codeNotNullViolation:
			return apperr.Storage("required field missing: "+pgErr.ColumnName, pgErr.ConstraintName, pgErr.TableName, err)
		case codeInvalidText:
			return apperr.Validation("invalid " + entity + " id")
		}
	}
	return errors.Wrap(err, entity)
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
