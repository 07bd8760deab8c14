package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"

	"github.com/marcboeker/go-duckdb"
)

// duckSchema mirrors the postgres migration with DuckDB types.
// Timestamps are stored as UTC TIMESTAMP and documents as JSON text.
// identificacion and correo carry no UNIQUE index: DuckDB rewrites an update of an
// indexed column as delete plus insert and rejects the row's own key, so
// records.DuckStore enforces their uniqueness itself.
var duckSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS employees_seq START 1`,
	`CREATE TABLE IF NOT EXISTS employees (
		seq                       BIGINT NOT NULL DEFAULT nextval('employees_seq'),
		id                        VARCHAR PRIMARY KEY,
		identificacion            VARCHAR NOT NULL,
		nombre                    VARCHAR NOT NULL,
		apellido                  VARCHAR NOT NULL,
		correo                    VARCHAR NOT NULL,
		telefono                  VARCHAR NOT NULL,
		fecha_nacimiento          TIMESTAMP NOT NULL,
		eps                       VARCHAR NOT NULL,
		arl                       VARCHAR NOT NULL,
		estrato                   VARCHAR NOT NULL,
		edad                      DOUBLE NOT NULL,
		hijos                     DOUBLE NOT NULL,
		estado_civil              VARCHAR NOT NULL,
		tipo_sangre               VARCHAR NOT NULL,
		tipo_contrato             VARCHAR NOT NULL,
		fecha_inicio_contrato     TIMESTAMP NOT NULL,
		fecha_fin_contrato        TIMESTAMP NOT NULL,
		caja_compensacion         VARCHAR NOT NULL,
		fondo_pension             VARCHAR NOT NULL,
		perfil_profesional        VARCHAR NOT NULL,
		ultimo_periodo_vacacional TIMESTAMP NOT NULL,
		evaluacion_desempeno      VARCHAR NOT NULL,
		cargo                     VARCHAR NOT NULL,
		sueldo                    DOUBLE NOT NULL,
		fecha_ingreso_empresa     TIMESTAMP NOT NULL,
		ciudad                    VARCHAR NOT NULL,
		sede                      VARCHAR NOT NULL,
		certificado_estudio       VARCHAR NOT NULL DEFAULT '',
		copia_contrato            VARCHAR NOT NULL DEFAULT '',
		control_ausentismo        VARCHAR NOT NULL DEFAULT '',
		sanciones                 VARCHAR NOT NULL DEFAULT '',
		observaciones             VARCHAR NOT NULL DEFAULT '',
		estado                    INTEGER NOT NULL DEFAULT 1 CHECK (estado IN (0, 1)),
		documents                 VARCHAR,
		created_at                TIMESTAMP NOT NULL,
		updated_at                TIMESTAMP NOT NULL
	)`,
}

// OpenDuckDB opens (or creates) the DuckDB database at path and ensures the schema.
// An empty path opens a private in-memory database.
func OpenDuckDB(path string, logger *slog.Logger) (*sql.DB, error) {
	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("executing %q: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	// One connection keeps an in-memory database shared by every caller.
	if path == "" {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range duckSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	location := path
	if location == "" {
		location = ":memory:"
	}
	logger.Info("duckdb record store ready", slog.String("path", location))
	return db, nil
}
