package rowsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ms-registration/internal/logger"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// SheetRow is one spreadsheet-shaped row kept in SQL.
type SheetRow struct {
	bun.BaseModel `bun:"table:sheet_rows,alias:sr"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Sheet     string    `bun:"sheet,notnull"`
	Cells     []string  `bun:"cells,type:text"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// SQLStore keeps rows in a sheet_rows table so the service can run without
// Google credentials. Row positions count the header like a spreadsheet does.
type SQLStore struct {
	db         *bun.DB
	sheet      string
	header     []string
	lastColumn string
	logger     *logger.Logger
}

type SQLStoreOptions struct {
	Sheet      string
	Header     []string
	LastColumn string
	Logger     *logger.Logger
}

func NewSQLStore(db *bun.DB, opts SQLStoreOptions) *SQLStore {
	if opts.Sheet == "" {
		opts.Sheet = "Sheet1"
	}
	if opts.LastColumn == "" {
		opts.LastColumn = columnName(len(opts.Header))
	}
	return &SQLStore{
		db:         db,
		sheet:      opts.Sheet,
		header:     opts.Header,
		lastColumn: opts.LastColumn,
		logger:     opts.Logger,
	}
}

// OpenSQL connects to sqlite or postgres and returns a bun handle.
func OpenSQL(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = "file:registrations.db?cache=shared"
		}
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres":
		if dsn == "" {
			return nil, ErrNotConfigured
		}
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := sqldb.Ping(); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported row store driver %q", driver)
	}
}

// Init creates the table and writes the header row into an empty sheet.
func (s *SQLStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*SheetRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create sheet_rows table: %w", err)
	}

	count, err := s.db.NewSelect().Model((*SheetRow)(nil)).Where("sheet = ?", s.sheet).Count(ctx)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	if count > 0 || len(s.header) == 0 {
		return nil
	}

	header := &SheetRow{Sheet: s.sheet, Cells: s.header, CreatedAt: time.Now()}
	if _, err := s.db.NewInsert().Model(header).Exec(ctx); err != nil {
		return fmt.Errorf("seed header row: %w", err)
	}
	s.logger.Info("ROWSTORE", fmt.Sprintf("Seeded header row for sheet %s", s.sheet))
	return nil
}

func (s *SQLStore) ReadColumn(ctx context.Context, column string) ([]string, error) {
	idx, err := columnIndex(column)
	if err != nil {
		return nil, err
	}

	var rows []SheetRow
	err = s.db.NewSelect().
		Model(&rows).
		Where("sheet = ?", s.sheet).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, &RemoteError{Op: "read column " + column, Err: err}
	}

	cells := make([]string, len(rows))
	for i, row := range rows {
		if idx < len(row.Cells) {
			cells[i] = row.Cells[idx]
		}
	}
	return cells, nil
}

func (s *SQLStore) AppendRow(ctx context.Context, values []any) (AppendResult, error) {
	cells := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			cells[i] = fmt.Sprint(v)
		}
	}

	row := &SheetRow{Sheet: s.sheet, Cells: cells, CreatedAt: time.Now()}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return AppendResult{}, &RemoteError{Op: "append row", Err: err}
	}

	position, err := s.db.NewSelect().
		Model((*SheetRow)(nil)).
		Where("sheet = ?", s.sheet).
		Where("id <= ?", row.ID).
		Count(ctx)
	if err != nil {
		// written, position unknown
		s.logger.Warn("ROWSTORE", fmt.Sprintf("Row %d written but position lookup failed: %v", row.ID, err))
		return AppendResult{}, nil
	}

	return AppendResult{
		Row:   position,
		Range: fmt.Sprintf("%s!A%d:%s%d", s.sheet, position, s.lastColumn, position),
	}, nil
}

// columnIndex maps "A" to 0, "Z" to 25, "AA" to 26.
func columnIndex(column string) (int, error) {
	column = strings.ToUpper(strings.TrimSpace(column))
	if column == "" {
		return 0, fmt.Errorf("empty column name")
	}
	n := 0
	for _, r := range column {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column name %q", column)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// columnName is the inverse of columnIndex for a 1-based column count.
func columnName(n int) string {
	if n <= 0 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
