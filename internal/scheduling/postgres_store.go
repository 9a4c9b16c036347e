package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists doctors and appointments in Postgres. Availability is
// a JSONB document rewritten whole inside the transaction that locks the
// doctor row, so Reserve and AddSlots serialize per doctor.
type PostgresStore struct {
	db   pgxDB
	opts storeOptions
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &PostgresStore{db: pool, opts: buildOptions(opts)}
}

func newPostgresStoreWithDB(db pgxDB, opts ...Option) *PostgresStore {
	if db == nil {
		panic("scheduling: db required")
	}
	return &PostgresStore{db: db, opts: buildOptions(opts)}
}

// CreateDoctor inserts a doctor row with an empty availability document.
func (s *PostgresStore) CreateDoctor(ctx context.Context, name, ownerEmail string) (*Doctor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidDoctorName
	}

	doc := &Doctor{
		ID:           uuid.NewString(),
		Name:         name,
		OwnerEmail:   ownerEmail,
		Availability: Availability{},
		CreatedAt:    s.opts.now(),
	}
	query := `
		INSERT INTO doctors (id, name, owner_email, availability, created_at)
		VALUES ($1, $2, NULLIF($3, ''), '{}'::jsonb, $4)
	`
	if _, err := s.db.Exec(ctx, query, doc.ID, doc.Name, doc.OwnerEmail, doc.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDoctorExists
		}
		return nil, fmt.Errorf("scheduling: insert doctor: %w", err)
	}
	return doc, nil
}

// DoctorByName looks a doctor up by exact name.
func (s *PostgresStore) DoctorByName(ctx context.Context, name string) (*Doctor, error) {
	return s.loadDoctor(ctx, "name", name)
}

// DoctorByOwner returns the doctor linked to a user email.
func (s *PostgresStore) DoctorByOwner(ctx context.Context, email string) (*Doctor, error) {
	return s.loadDoctor(ctx, "owner_email", email)
}

func (s *PostgresStore) loadDoctor(ctx context.Context, column, value string) (*Doctor, error) {
	query := `
		SELECT id::text, name, COALESCE(owner_email, ''), availability, created_at
		FROM doctors
		WHERE ` + column + ` = $1
	`
	var (
		doc Doctor
		raw []byte
	)
	if err := s.db.QueryRow(ctx, query, value).Scan(&doc.ID, &doc.Name, &doc.OwnerEmail, &raw, &doc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("scheduling: select doctor: %w", err)
	}
	availability, err := decodeAvailability(raw)
	if err != nil {
		return nil, err
	}
	doc.Availability = availability
	return &doc, nil
}

// SlotsFor returns the open slots for a date. Unknown doctors or dates yield an empty set.
func (s *PostgresStore) SlotsFor(ctx context.Context, doctorID, date string) ([]string, error) {
	if !validDoctorID(doctorID) {
		return []string{}, nil
	}
	query := `SELECT COALESCE(availability -> $2, '[]'::jsonb) FROM doctors WHERE id = $1::uuid`
	var raw []byte
	if err := s.db.QueryRow(ctx, query, doctorID, date).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("scheduling: select slots: %w", err)
	}
	slots := []string{}
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("scheduling: decode slots: %w", err)
	}
	return slots, nil
}

// Availability returns the doctor's full availability document.
func (s *PostgresStore) Availability(ctx context.Context, doctorID string) (Availability, error) {
	if !validDoctorID(doctorID) {
		return nil, ErrDoctorNotFound
	}
	var raw []byte
	if err := s.db.QueryRow(ctx, `SELECT availability FROM doctors WHERE id = $1::uuid`, doctorID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("scheduling: select availability: %w", err)
	}
	return decodeAvailability(raw)
}

// AddSlots unions labels into availability inside one transaction.
func (s *PostgresStore) AddSlots(ctx context.Context, doctorID string, slots Availability) (*AddSlotsResult, error) {
	if err := validateAdditions(slots); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin add slots: %w", err)
	}
	defer tx.Rollback(ctx)

	_, current, err := lockDoctor(ctx, tx, doctorID)
	if err != nil {
		return nil, err
	}
	booked, err := bookedSlots(ctx, tx, doctorID)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	skipped := map[string][]string{}
	for _, date := range sortedDates(slots) {
		merged, refused := UnionSlots(next[date], slots[date], booked[date])
		next[date] = merged
		if len(refused) > 0 {
			skipped[date] = refused
		}
	}
	if err := writeAvailability(ctx, tx, doctorID, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit add slots: %w", err)
	}

	result := &AddSlotsResult{Availability: next}
	if len(skipped) > 0 {
		result.Skipped = skipped
	}
	return result, nil
}

// RemoveSlot drops one open slot or fails with ErrSlotNotFound.
func (s *PostgresStore) RemoveSlot(ctx context.Context, doctorID, date, slot string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin remove slot: %w", err)
	}
	defer tx.Rollback(ctx)

	_, current, err := lockDoctor(ctx, tx, doctorID)
	if err != nil {
		return err
	}
	remaining, found := WithoutSlot(current[date], slot)
	if !found {
		return ErrSlotNotFound
	}
	next := current.Clone()
	next[date] = remaining
	if err := writeAvailability(ctx, tx, doctorID, next); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit remove slot: %w", err)
	}
	return nil
}

// Reserve removes the slot and inserts the appointment in one transaction.
func (s *PostgresStore) Reserve(ctx context.Context, appt Appointment) (*Appointment, error) {
	if err := validateReservation(appt); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	name, current, err := lockDoctor(ctx, tx, appt.DoctorID)
	if err != nil {
		return nil, err
	}
	remaining, found := WithoutSlot(current[appt.Date], appt.Slot)
	if !found {
		return nil, ErrSlotNotFound
	}
	next := current.Clone()
	next[appt.Date] = remaining
	if err := writeAvailability(ctx, tx, appt.DoctorID, next); err != nil {
		return nil, err
	}

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	appt.DoctorName = name
	appt.CreatedAt = s.opts.now()
	insert := `
		INSERT INTO appointments (id, doctor_id, patient_email, patient_name, date, slot, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`
	if err := tx.QueryRow(ctx, insert,
		appt.ID,
		appt.DoctorID,
		appt.Patient.Email,
		appt.Patient.Name,
		appt.Date,
		appt.Slot,
		appt.Reason,
		appt.CreatedAt,
	).Scan(&appt.Seq); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("scheduling: insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit reserve: %w", err)
	}
	return &appt, nil
}

// Appointments lists matching appointments ordered by creation.
func (s *PostgresStore) Appointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error) {
	query := `
		SELECT a.id::text, a.doctor_id::text, d.name, a.patient_email, a.patient_name,
		       a.date, a.slot, a.reason, a.seq, a.created_at
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
	`
	var (
		conditions []string
		args       []any
	)
	add := func(column, value, cast string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, column+" = $"+strconv.Itoa(len(args))+cast)
	}
	if filter.DoctorID != "" && !validDoctorID(filter.DoctorID) {
		return []Appointment{}, nil
	}
	add("a.doctor_id", filter.DoctorID, "::uuid")
	add("a.date", filter.Date, "")
	add("a.patient_email", filter.PatientEmail, "")
	add("a.patient_name", filter.PatientName, "")
	add("a.reason", filter.Reason, "")
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.seq"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scheduling: select appointments: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.DoctorID,
			&appt.DoctorName,
			&appt.Patient.Email,
			&appt.Patient.Name,
			&appt.Date,
			&appt.Slot,
			&appt.Reason,
			&appt.Seq,
			&appt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate appointments: %w", err)
	}
	return out, nil
}

func lockDoctor(ctx context.Context, tx pgx.Tx, doctorID string) (string, Availability, error) {
	var (
		name string
		raw  []byte
	)
	if !validDoctorID(doctorID) {
		return "", nil, ErrDoctorNotFound
	}
	query := `SELECT name, availability FROM doctors WHERE id = $1::uuid FOR UPDATE`
	if err := tx.QueryRow(ctx, query, doctorID).Scan(&name, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrDoctorNotFound
		}
		return "", nil, fmt.Errorf("scheduling: lock doctor: %w", err)
	}
	availability, err := decodeAvailability(raw)
	if err != nil {
		return "", nil, err
	}
	return name, availability, nil
}

func bookedSlots(ctx context.Context, tx pgx.Tx, doctorID string) (map[string]map[string]struct{}, error) {
	rows, err := tx.Query(ctx, `SELECT date, slot FROM appointments WHERE doctor_id = $1::uuid`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: select booked slots: %w", err)
	}
	defer rows.Close()

	booked := map[string]map[string]struct{}{}
	for rows.Next() {
		var date, slot string
		if err := rows.Scan(&date, &slot); err != nil {
			return nil, fmt.Errorf("scheduling: scan booked slot: %w", err)
		}
		if booked[date] == nil {
			booked[date] = map[string]struct{}{}
		}
		booked[date][slot] = struct{}{}
	}
	return booked, rows.Err()
}

func writeAvailability(ctx context.Context, tx pgx.Tx, doctorID string, availability Availability) error {
	raw, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("scheduling: encode availability: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE doctors SET availability = $2 WHERE id = $1::uuid`, doctorID, raw); err != nil {
		return fmt.Errorf("scheduling: update availability: %w", err)
	}
	return nil
}

// validDoctorID reports whether id can match a doctors.id uuid.
func validDoctorID(id string) bool {
	return uuid.Validate(id) == nil
}

func decodeAvailability(raw []byte) (Availability, error) {
	availability := Availability{}
	if len(raw) == 0 {
		return availability, nil
	}
	if err := json.Unmarshal(raw, &availability); err != nil {
		return nil, fmt.Errorf("scheduling: decode availability: %w", err)
	}
	return availability, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
