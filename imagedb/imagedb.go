// Package imagedb persists the configurations labeled by the parent
// calculator to an SQLite database, mirroring the queried_images.db artifact
// of the original workflow. The driver is modernc.org/sqlite, so the store
// is pure Go and needs no cgo.
package imagedb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS queried_images (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	iteration   INTEGER NOT NULL,
	fingerprint INTEGER NOT NULL,
	natoms      INTEGER NOT NULL,
	energy      REAL    NOT NULL,
	fmax        REAL    NOT NULL,
	numbers     BLOB    NOT NULL,
	positions   BLOB    NOT NULL,
	queried_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queried_images_iteration ON queried_images(iteration);
`

// Store is an append-only record of queried images.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "imagedb.Open %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "imagedb.Open %s: schema", path)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "imagedb.Close")
}

// Insert records one labeled image for the given round.
func (s *Store) Insert(ctx context.Context, iteration int, img atoms.Image) error {
	return s.insert(ctx, s.db, iteration, img)
}

// InsertBatch records a full round batch in one transaction.
func (s *Store) InsertBatch(ctx context.Context, iteration int, imgs []atoms.Image) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "imagedb.InsertBatch")
	}
	for _, img := range imgs {
		if err := s.insert(ctx, tx, iteration, img); err != nil {
			tx.Rollback()
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "imagedb.InsertBatch")
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, ex execer, iteration int, img atoms.Image) error {
	a, res := img.Atoms, img.Result
	_, err := ex.ExecContext(ctx,
		`INSERT INTO queried_images
		 (iteration, fingerprint, natoms, energy, fmax, numbers, positions, queried_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		iteration,
		int64(atoms.Fingerprint(a)),
		a.NumAtoms(),
		res.Energy,
		res.Fmax(),
		encodeNumbers(a.Numbers()),
		encodePositions(a.Positions()),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrap(err, "imagedb.insert")
}

// Count returns the total number of stored images.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queried_images`).Scan(&n)
	return n, errors.Wrap(err, "imagedb.Count")
}

// ByIteration returns the images stored for one round, in insertion order.
// Forces are not persisted; the returned results carry energy only.
func (s *Store) ByIteration(ctx context.Context, iteration int) ([]atoms.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT energy, numbers, positions FROM queried_images
		 WHERE iteration = ? ORDER BY id`, iteration)
	if err != nil {
		return nil, errors.Wrap(err, "imagedb.ByIteration")
	}
	defer rows.Close()

	var out []atoms.Image
	for rows.Next() {
		var energy float64
		var numBlob, posBlob []byte
		if err := rows.Scan(&energy, &numBlob, &posBlob); err != nil {
			return nil, errors.Wrap(err, "imagedb.ByIteration")
		}
		numbers := decodeNumbers(numBlob)
		positions, err := decodePositions(posBlob, len(numbers))
		if err != nil {
			return nil, err
		}
		a, err := atoms.New(numbers, positions)
		if err != nil {
			return nil, err
		}
		out = append(out, atoms.Image{Atoms: a, Result: &atoms.Result{Energy: energy}})
	}
	return out, errors.Wrap(rows.Err(), "imagedb.ByIteration")
}

func encodeNumbers(numbers []int) []byte {
	buf := make([]byte, 8*len(numbers))
	for i, z := range numbers {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(int64(z)))
	}
	return buf
}

func decodeNumbers(buf []byte) []int {
	out := make([]int, len(buf)/8)
	for i := range out {
		out[i] = int(int64(binary.LittleEndian.Uint64(buf[i*8:])))
	}
	return out
}

func encodePositions(p *mat.Dense) []byte {
	r, c := p.Dims()
	buf := make([]byte, 8*r*c)
	idx := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			binary.LittleEndian.PutUint64(buf[idx*8:], math.Float64bits(p.At(i, j)))
			idx++
		}
	}
	return buf
}

func decodePositions(buf []byte, n int) (*mat.Dense, error) {
	if len(buf) != 8*n*3 {
		return nil, errors.Newf("imagedb: position blob has %d bytes, want %d", len(buf), 8*n*3)
	}
	p := mat.NewDense(n, 3, nil)
	idx := 0
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			p.Set(i, j, math.Float64frombits(binary.LittleEndian.Uint64(buf[idx*8:])))
			idx++
		}
	}
	return p, nil
}
