// Command coupon-ingest bulk-loads restriction coupons from gzipped CSV
// files. Files are parsed concurrently and inserted in a single COPY per
// file.
//
// Expected columns:
//
//	code,customer_restriction,location_enabled,address_type,allowed_countries,allowed_postcodes
//
// allowed_countries is semicolon-separated inside the cell; allowed_postcodes
// keeps its comma-separated storage form verbatim.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/storelane/coupon-gate/internal/repository"
)

const ingestWorkers = 3

type couponRow struct {
	code                string
	customerRestriction string
	locationEnabled     bool
	addressType         string
	allowedCountries    []string
	allowedPostcodes    string
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing coupon CSV .gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.csv.gz files in %s", dataDir)
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestWorkers)
	for _, file := range files {
		g.Go(func() error {
			n, err := ingestFile(ctx, pool, file)
			if err != nil {
				return errors.Wrapf(err, "ingest %s", file)
			}
			slog.Info("file ingested", "file", file, "coupons", n)
			return nil
		})
	}
	return g.Wait()
}

func ingestFile(ctx context.Context, pool *pgxpool.Pool, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrap(err, "gzip reader")
	}
	defer gz.Close()

	rows, err := parseCoupons(gz)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	return pool.CopyFrom(ctx,
		pgx.Identifier{"coupons"},
		[]string{"code", "customer_restriction", "location_enabled", "address_type", "allowed_countries", "allowed_postcodes"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{
				r.code, r.customerRestriction, r.locationEnabled,
				r.addressType, r.allowedCountries, r.allowedPostcodes,
			}, nil
		}),
	)
}

func parseCoupons(r io.Reader) ([]couponRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	cr.ReuseRecord = true

	var rows []couponRow
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if line == 1 && rec[0] == "code" {
			continue // header
		}

		enabled, err := strconv.ParseBool(rec[2])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: location_enabled", line)
		}

		var countries []string
		if rec[4] != "" {
			countries = strings.Split(rec[4], ";")
		} else {
			countries = []string{}
		}

		rows = append(rows, couponRow{
			code:                rec[0],
			customerRestriction: rec[1],
			locationEnabled:     enabled,
			addressType:         rec[3],
			allowedCountries:    countries,
			allowedPostcodes:    rec[5],
		})
	}
}
