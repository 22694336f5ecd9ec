package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/eventpix/internal/config"
	"github.com/your-org/eventpix/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Events ---

func (s *PostgresStore) CreateEvent(ctx context.Context, name, pinHash string) (*models.Event, error) {
	ev := &models.Event{
		ID:      uuid.New(),
		Name:    name,
		PINHash: pinHash,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (id, name, pin_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		ev.ID, ev.Name, ev.PINHash,
	).Scan(&ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	ev := &models.Event{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, pin_hash, created_at FROM events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.Name, &ev.PINHash, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, pin_hash, created_at FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.PINHash, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// --- Photos ---

func (s *PostgresStore) CreatePhoto(ctx context.Context, p *models.Photo) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO photos (id, event_id, object_key, content_type, size_bytes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING uploaded_at`,
		p.ID, p.EventID, p.ObjectKey, p.ContentType, p.SizeBytes,
	).Scan(&p.UploadedAt)
	if err != nil {
		return fmt.Errorf("create photo: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	p := &models.Photo{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, event_id, object_key, content_type, size_bytes, descriptor_count, uploaded_at
		 FROM photos WHERE id = $1`, id,
	).Scan(&p.ID, &p.EventID, &p.ObjectKey, &p.ContentType, &p.SizeBytes, &p.DescriptorCount, &p.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get photo: %w", err)
	}

	p.Descriptors, err = s.LoadPhotoDescriptors(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPhotosForEvent returns all photos of an event in upload order, with
// stored descriptors attached.
func (s *PostgresStore) GetPhotosForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, object_key, content_type, size_bytes, descriptor_count, uploaded_at
		 FROM photos WHERE event_id = $1 ORDER BY uploaded_at, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.EventID, &p.ObjectKey, &p.ContentType, &p.SizeBytes,
			&p.DescriptorCount, &p.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	descRows, err := s.pool.Query(ctx,
		`SELECT pd.photo_id, pd.embedding
		 FROM photo_descriptors pd
		 JOIN photos p ON p.id = pd.photo_id
		 WHERE p.event_id = $1
		 ORDER BY pd.photo_id, pd.face_index`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event descriptors: %w", err)
	}
	defer descRows.Close()

	byPhoto := make(map[uuid.UUID][]models.Descriptor)
	for descRows.Next() {
		var photoID uuid.UUID
		var vec pgvector.Vector
		if err := descRows.Scan(&photoID, &vec); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		byPhoto[photoID] = append(byPhoto[photoID], models.Descriptor(vec.Slice()))
	}
	if err := descRows.Err(); err != nil {
		return nil, fmt.Errorf("load event descriptors: %w", err)
	}

	for i := range photos {
		photos[i].Descriptors = byPhoto[photos[i].ID]
	}
	return photos, nil
}

func (s *PostgresStore) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("photo not found")
	}
	return nil
}

// --- Descriptor store ---

// ErrDescriptorsAlreadySet is returned when a second extraction result
// arrives for a photo. A photo's descriptor list is written once and never
// updated.
var ErrDescriptorsAlreadySet = errors.New("photo descriptors already set")

// SavePhotoDescriptors records the outcome of one extraction attempt.
// A nil or empty list marks the terminal no-face state (descriptor_count 0,
// no rows). Rows hold float32 vectors, so values round-trip exactly.
func (s *PostgresStore) SavePhotoDescriptors(ctx context.Context, photoID uuid.UUID, descriptors []models.Descriptor) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE photos SET descriptor_count = $2 WHERE id = $1 AND descriptor_count IS NULL`,
		photoID, len(descriptors))
	if err != nil {
		return fmt.Errorf("mark photo extracted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDescriptorsAlreadySet
	}

	for i, d := range descriptors {
		if _, err := tx.Exec(ctx,
			`INSERT INTO photo_descriptors (photo_id, face_index, embedding) VALUES ($1, $2, $3)`,
			photoID, i, pgvector.NewVector(d)); err != nil {
			return fmt.Errorf("insert descriptor %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadPhotoDescriptors returns the stored descriptor list for a photo, or
// nil when extraction never ran or found no face.
func (s *PostgresStore) LoadPhotoDescriptors(ctx context.Context, photoID uuid.UUID) ([]models.Descriptor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT embedding FROM photo_descriptors WHERE photo_id = $1 ORDER BY face_index`, photoID)
	if err != nil {
		return nil, fmt.Errorf("load descriptors: %w", err)
	}
	defer rows.Close()

	var descriptors []models.Descriptor
	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		descriptors = append(descriptors, models.Descriptor(vec.Slice()))
	}
	return descriptors, rows.Err()
}

// --- Photo history ---

func (s *PostgresStore) CreateHistoryRecord(ctx context.Context, userID string, photoID, eventID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO photo_history (id, user_id, photo_id, event_id) VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, photoID, eventID)
	if err != nil {
		return fmt.Errorf("create history record: %w", err)
	}
	return nil
}

// ListHistoryForUser returns a user's match history within an event, newest
// first.
func (s *PostgresStore) ListHistoryForUser(ctx context.Context, userID string, eventID uuid.UUID) ([]models.PhotoHistory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, photo_id, event_id, created_at
		 FROM photo_history WHERE user_id = $1 AND event_id = $2 ORDER BY created_at DESC`,
		userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []models.PhotoHistory
	for rows.Next() {
		var h models.PhotoHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.PhotoID, &h.EventID, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		records = append(records, h)
	}
	return records, rows.Err()
}
