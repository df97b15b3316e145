package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
)

// Store is a SQLite-backed repository.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ service.Repository = (*Store)(nil)

// Open opens (and creates if needed) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlstore: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlstore: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: schema: %w", err)
	}

	logger.Info("sqlite store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bulletins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			board TEXT NOT NULL,
			sender_short_name TEXT NOT NULL,
			date TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			unique_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS mail (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			sender_short_name TEXT NOT NULL,
			recipient TEXT NOT NULL,
			date TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			unique_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS channels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			url TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bulletins_board ON bulletins(board COLLATE NOCASE);`,
		`CREATE INDEX IF NOT EXISTS idx_mail_recipient ON mail(recipient);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func formatDate(t time.Time) string {
	return domain.FormatDate(t.In(time.Local))
}

// CreateBulletin inserts b and returns the new row id.
func (s *Store) CreateBulletin(ctx context.Context, b *domain.Bulletin) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bulletins (board, sender_short_name, date, subject, content, unique_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.Board, b.SenderShortName, formatDate(b.Date), b.Subject, b.Content, b.UniqueID)
	if err != nil {
		return 0, fmt.Errorf("insert bulletin: %w", err)
	}
	return res.LastInsertId()
}

const bulletinColumns = `id, board, sender_short_name, date, subject, content, unique_id`

func scanBulletin(row interface{ Scan(...any) error }) (*domain.Bulletin, error) {
	var (
		b    domain.Bulletin
		date string
	)
	if err := row.Scan(&b.ID, &b.Board, &b.SenderShortName, &date, &b.Subject, &b.Content, &b.UniqueID); err != nil {
		return nil, err
	}
	b.Date = domain.ParseDate(date)
	return &b, nil
}

func (s *Store) queryBulletins(ctx context.Context, query string, args ...any) ([]*domain.Bulletin, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bulletins: %w", err)
	}
	defer rows.Close()

	var out []*domain.Bulletin
	for rows.Next() {
		b, err := scanBulletin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bulletin: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBulletins returns the bulletins on board in id order.
func (s *Store) ListBulletins(ctx context.Context, board string) ([]*domain.Bulletin, error) {
	return s.queryBulletins(ctx,
		`SELECT `+bulletinColumns+` FROM bulletins WHERE board = ? COLLATE NOCASE ORDER BY id`, board)
}

// GetBulletin returns a bulletin by id.
func (s *Store) GetBulletin(ctx context.Context, id int64) (*domain.Bulletin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bulletinColumns+` FROM bulletins WHERE id = ?`, id)
	b, err := scanBulletin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBulletinNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bulletin: %w", err)
	}
	return b, nil
}

// DeleteBulletinByUniqueID removes every bulletin carrying uid.
func (s *Store) DeleteBulletinByUniqueID(ctx context.Context, uid string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bulletins WHERE unique_id = ?`, uid)
	if err != nil {
		return 0, fmt.Errorf("delete bulletin: %w", err)
	}
	return affected(res)
}

// AllBulletins returns every bulletin in id order.
func (s *Store) AllBulletins(ctx context.Context) ([]*domain.Bulletin, error) {
	return s.queryBulletins(ctx, `SELECT `+bulletinColumns+` FROM bulletins ORDER BY id`)
}

// CreateMail inserts m and returns the new row id.
func (s *Store) CreateMail(ctx context.Context, m *domain.Mail) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mail (sender, sender_short_name, recipient, date, subject, content, unique_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(m.Sender), m.SenderShortName, string(m.Recipient), formatDate(m.Date), m.Subject, m.Content, m.UniqueID)
	if err != nil {
		return 0, fmt.Errorf("insert mail: %w", err)
	}
	return res.LastInsertId()
}

const mailColumns = `id, sender, sender_short_name, recipient, date, subject, content, unique_id`

func scanMail(row interface{ Scan(...any) error }) (*domain.Mail, error) {
	var (
		m                 domain.Mail
		sender, recipient string
		date              string
	)
	if err := row.Scan(&m.ID, &sender, &m.SenderShortName, &recipient, &date, &m.Subject, &m.Content, &m.UniqueID); err != nil {
		return nil, err
	}
	m.Sender = domain.NodeID(sender)
	m.Recipient = domain.NodeID(recipient)
	m.Date = domain.ParseDate(date)
	return &m, nil
}

func (s *Store) queryMail(ctx context.Context, query string, args ...any) ([]*domain.Mail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mail: %w", err)
	}
	defer rows.Close()

	var out []*domain.Mail
	for rows.Next() {
		m, err := scanMail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mail: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMail returns the recipient's mail in id order.
func (s *Store) ListMail(ctx context.Context, recipient domain.NodeID) ([]*domain.Mail, error) {
	return s.queryMail(ctx, `SELECT `+mailColumns+` FROM mail WHERE recipient = ? ORDER BY id`, string(recipient))
}

// GetMail returns mail id if it is addressed to recipient.
func (s *Store) GetMail(ctx context.Context, id int64, recipient domain.NodeID) (*domain.Mail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mailColumns+` FROM mail WHERE id = ? AND recipient = ?`, id, string(recipient))
	m, err := scanMail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mail: %w", err)
	}
	return m, nil
}

// MailSender returns the sender of mail id.
func (s *Store) MailSender(ctx context.Context, id int64) (domain.NodeID, error) {
	var sender string
	err := s.db.QueryRowContext(ctx, `SELECT sender FROM mail WHERE id = ?`, id).Scan(&sender)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrMailNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get mail sender: %w", err)
	}
	return domain.NodeID(sender), nil
}

// MailRecipient returns the recipient of the lowest-id mail carrying uid.
func (s *Store) MailRecipient(ctx context.Context, uid string) (domain.NodeID, error) {
	var recipient string
	err := s.db.QueryRowContext(ctx,
		`SELECT recipient FROM mail WHERE unique_id = ? ORDER BY id LIMIT 1`, uid).Scan(&recipient)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrMailNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get mail recipient: %w", err)
	}
	return domain.NodeID(recipient), nil
}

// DeleteMailByUniqueID removes the recipient's mail carrying uid.
func (s *Store) DeleteMailByUniqueID(ctx context.Context, uid string, recipient domain.NodeID) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM mail WHERE unique_id = ? AND recipient = ?`, uid, string(recipient))
	if err != nil {
		return 0, fmt.Errorf("delete mail: %w", err)
	}
	return affected(res)
}

// AllMail returns every mail in id order.
func (s *Store) AllMail(ctx context.Context) ([]*domain.Mail, error) {
	return s.queryMail(ctx, `SELECT `+mailColumns+` FROM mail ORDER BY id`)
}

// CreateChannel inserts c and returns the new row id.
func (s *Store) CreateChannel(ctx context.Context, c *domain.Channel) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO channels (name, url) VALUES (?, ?)`, c.Name, c.URL)
	if err != nil {
		return 0, fmt.Errorf("insert channel: %w", err)
	}
	return res.LastInsertId()
}

// ListChannels returns the directory in id order.
func (s *Store) ListChannels(ctx context.Context) ([]*domain.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, url FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var out []*domain.Channel
	for rows.Next() {
		var c domain.Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.URL); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// DeleteChannel removes a directory entry.
func (s *Store) DeleteChannel(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
