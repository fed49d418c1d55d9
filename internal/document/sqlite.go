package document

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/divVerent/staffmerger/internal/score"
)

const schema = `
CREATE TABLE IF NOT EXISTS measures (
	number INTEGER PRIMARY KEY,
	num INTEGER NOT NULL,
	denom INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS staffs (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS timelines (
	staff INTEGER NOT NULL,
	slot INTEGER NOT NULL,
	measure INTEGER NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (staff, slot, measure)
);
`

type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// store implements the document operations on a database or a
// transaction.
type store struct {
	q    querier
	bars score.Bars
}

// SQLite is a document stored in an SQLite database. Every timeline is one
// row holding its entries as YAML. Writes made through it are committed
// one by one; use Begin to group them.
type SQLite struct {
	store
	db *sql.DB
}

// SQLiteTx is a document whose writes only become visible on Commit.
type SQLiteTx struct {
	store
	tx *sql.Tx
}

// Begin starts a transaction. The SQLite must not be used until the
// transaction is committed or rolled back.
func (s *SQLite) Begin() (*SQLiteTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	return &SQLiteTx{store: store{q: tx, bars: s.bars}, tx: tx}, nil
}

func (t *SQLiteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("could not commit: %w", err)
	}
	return nil
}

func (t *SQLiteTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("could not roll back: %w", err)
	}
	return nil
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", path, err)
	}
	// Keep the whole document on one connection; ":memory:" databases are
	// per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create tables: %w", err)
	}
	s := &SQLite{store: store{q: db}, db: db}
	if err := s.loadBars(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) loadBars() error {
	rows, err := s.q.Query(`SELECT num, denom FROM measures ORDER BY number`)
	if err != nil {
		return fmt.Errorf("could not read measures: %w", err)
	}
	defer rows.Close()
	var sigs []score.TimeSig
	for rows.Next() {
		var sig score.TimeSig
		if err := rows.Scan(&sig.Num, &sig.Denom); err != nil {
			return fmt.Errorf("could not read measures: %w", err)
		}
		sigs = append(sigs, sig)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("could not read measures: %w", err)
	}
	bars, err := score.NewBars(sigs)
	if err != nil {
		return err
	}
	s.bars = bars
	return nil
}

func (s *store) Bars() (score.Bars, error) {
	return s.bars, nil
}

// Import replaces the contents of the database with m.
func (s *SQLite) Import(m *Memory) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	for _, stmt := range []string{`DELETE FROM timelines`, `DELETE FROM staffs`, `DELETE FROM measures`} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("could not clear database: %w", err)
		}
	}
	for _, bar := range m.bars {
		if _, err := tx.Exec(`INSERT INTO measures (number, num, denom) VALUES (?, ?, ?)`, bar.Number, bar.Num, bar.Denom); err != nil {
			return fmt.Errorf("could not write measure %d: %w", bar.Number, err)
		}
	}
	for _, st := range m.staffs {
		if _, err := tx.Exec(`INSERT INTO staffs (id, name) VALUES (?, ?)`, st.ID, st.Name); err != nil {
			return fmt.Errorf("could not write staff %d: %w", st.ID, err)
		}
		for _, t := range st.cells {
			if err := saveTimeline(tx, t); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit: %w", err)
	}
	s.bars = m.bars
	return nil
}

// Export reads the whole database into memory.
func (s *SQLite) Export() (*Memory, error) {
	m := &Memory{bars: s.bars}
	rows, err := s.q.Query(`SELECT id, name FROM staffs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("could not read staffs: %w", err)
	}
	type staffRow struct {
		id   score.StaffID
		name string
	}
	var staffs []staffRow
	for rows.Next() {
		var r staffRow
		if err := rows.Scan(&r.id, &r.name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("could not read staffs: %w", err)
		}
		staffs = append(staffs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read staffs: %w", err)
	}
	for _, r := range staffs {
		if _, err := m.AddStaff(r.id, r.name); err != nil {
			return nil, err
		}
		for _, bar := range s.bars {
			for _, slot := range score.Slots() {
				t, err := s.LoadTimeline(r.id, slot, bar.Number)
				if err != nil {
					return nil, err
				}
				if err := m.SetTimeline(t); err != nil {
					return nil, err
				}
			}
		}
	}
	return m, nil
}

func (s *store) staffExists(staff score.StaffID) error {
	var n int
	if err := s.q.QueryRow(`SELECT COUNT(*) FROM staffs WHERE id = ?`, staff).Scan(&n); err != nil {
		return fmt.Errorf("could not look up staff %d: %w", staff, err)
	}
	if n == 0 {
		return fmt.Errorf("no staff %d", staff)
	}
	return nil
}

func (s *store) LoadTimeline(staff score.StaffID, slot score.VoiceSlot, measure int) (*score.Timeline, error) {
	bar, ok := s.bars.Bar(measure)
	if !ok {
		return nil, fmt.Errorf("no measure %d", measure)
	}
	if err := s.staffExists(staff); err != nil {
		return nil, err
	}
	addr := score.Address{Staff: staff, Slot: slot, Measure: measure}
	var id, body string
	err := s.q.QueryRow(`SELECT id, body FROM timelines WHERE staff = ? AND slot = ? AND measure = ?`, staff, slot, measure).Scan(&id, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return score.New(addr, bar.Length()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %v: %w", addr, err)
	}
	return unmarshalBody([]byte(body), id, addr, bar.Length())
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func saveTimeline(db execer, t *score.Timeline) error {
	a := t.Address
	if t.IsEmpty() {
		if _, err := db.Exec(`DELETE FROM timelines WHERE staff = ? AND slot = ? AND measure = ?`, a.Staff, a.Slot, a.Measure); err != nil {
			return fmt.Errorf("could not clear %v: %w", a, err)
		}
		return nil
	}
	body, err := marshalBody(t)
	if err != nil {
		return fmt.Errorf("could not encode %v: %w", a, err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO timelines (staff, slot, measure, id, body) VALUES (?, ?, ?, ?, ?)`,
		a.Staff, a.Slot, a.Measure, t.ID.String(), string(body)); err != nil {
		return fmt.Errorf("could not write %v: %w", a, err)
	}
	return nil
}

func (s *store) SaveTimeline(t *score.Timeline) error {
	bar, ok := s.bars.Bar(t.Address.Measure)
	if !ok {
		return fmt.Errorf("no measure %d", t.Address.Measure)
	}
	if !t.Address.Slot.Valid() {
		return fmt.Errorf("invalid layer %d", t.Address.Slot)
	}
	if t.Length != bar.Length() {
		return fmt.Errorf("%v: length %d does not match measure length %d", t.Address, t.Length, bar.Length())
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.staffExists(t.Address.Staff); err != nil {
		return err
	}
	return saveTimeline(s.q, t)
}

func (s *store) AppendStaff() (score.StaffID, error) {
	res, err := s.q.Exec(`INSERT INTO staffs (id, name) VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM staffs), '')`)
	if err != nil {
		return 0, fmt.Errorf("could not add staff: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("could not add staff: %w", err)
	}
	return score.StaffID(id), nil
}

func (s *store) DeleteStaff(staff score.StaffID) error {
	if err := s.staffExists(staff); err != nil {
		return err
	}
	if _, err := s.q.Exec(`DELETE FROM timelines WHERE staff = ?`, staff); err != nil {
		return fmt.Errorf("could not delete staff %d: %w", staff, err)
	}
	if _, err := s.q.Exec(`DELETE FROM staffs WHERE id = ?`, staff); err != nil {
		return fmt.Errorf("could not delete staff %d: %w", staff, err)
	}
	return nil
}

func (s *store) RebarMeasure(staff score.StaffID, measure int) error {
	for _, slot := range score.Slots() {
		t, err := s.LoadTimeline(staff, slot, measure)
		if err != nil {
			return err
		}
		if !t.Rebar() {
			continue
		}
		if err := saveTimeline(s.q, t); err != nil {
			return err
		}
	}
	return nil
}
