package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultRedisPrefix = "sched"

// createDoctorScript claims the name and owner indexes before writing the doctor hash.
var createDoctorScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[2], ARGV[1]) == 0 then
  return 0
end
if ARGV[3] ~= '' then
  if redis.call('HSETNX', KEYS[2], ARGV[3], ARGV[1]) == 0 then
    redis.call('HDEL', KEYS[1], ARGV[2])
    return 0
  end
end
redis.call('HSET', KEYS[3], 'id', ARGV[1], 'name', ARGV[2], 'owner_email', ARGV[3], 'created_at', ARGV[4])
return 1
`)

// reserveScript removes the slot from the open list and records the appointment.
// It returns -1 without writing anything when the slot is not open.
var reserveScript = redis.NewScript(`
if redis.call('LREM', KEYS[1], 1, ARGV[1]) == 0 then
  return -1
end
local seq = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[3],
  'id', ARGV[2], 'doctor_id', ARGV[3], 'doctor_name', ARGV[4],
  'patient_email', ARGV[5], 'patient_name', ARGV[6],
  'date', ARGV[7], 'slot', ARGV[1], 'reason', ARGV[8],
  'created_at', ARGV[9], 'seq', seq)
redis.call('RPUSH', KEYS[4], ARGV[2])
redis.call('RPUSH', KEYS[5], ARGV[2])
redis.call('SADD', KEYS[6], ARGV[1])
return seq
`)

// addSlotsScript appends labels that are neither open nor booked and returns the booked ones.
var addSlotsScript = redis.NewScript(`
local present = {}
for _, s in ipairs(redis.call('LRANGE', KEYS[1], 0, -1)) do
  present[s] = true
end
local skipped = {}
for i = 2, #ARGV do
  local s = ARGV[i]
  if not present[s] then
    if redis.call('SISMEMBER', KEYS[2], s) == 1 then
      table.insert(skipped, s)
    else
      redis.call('RPUSH', KEYS[1], s)
      present[s] = true
    end
  end
end
redis.call('SADD', KEYS[3], ARGV[1])
return skipped
`)

// RedisStore keeps the schedule in Redis. Open slots for a (doctor, date) are a
// list; Reserve and AddSlots run as scripts so their read-check-write is atomic.
type RedisStore struct {
	redis  redis.Cmdable
	prefix string
	tracer trace.Tracer
	opts   storeOptions
}

// NewRedisStore builds a store on the given client. An empty prefix uses "sched".
func NewRedisStore(client redis.Cmdable, prefix string, opts ...Option) *RedisStore {
	if client == nil {
		panic("scheduling: redis client cannot be nil")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		tracer: otel.Tracer("dobbe.internal.scheduling.redis"),
		opts:   buildOptions(opts),
	}
}

func (s *RedisStore) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

// CreateDoctor registers a doctor; names and owner emails are unique.
func (s *RedisStore) CreateDoctor(ctx context.Context, name, ownerEmail string) (*Doctor, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.redis.create_doctor")
	defer span.End()

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
	keys := []string{s.key("doctors", "by_name"), s.key("doctors", "by_owner"), s.key("doctor", doc.ID)}
	created, err := createDoctorScript.Run(ctx, s.redis, keys,
		doc.ID, doc.Name, doc.OwnerEmail, doc.CreatedAt.Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: create doctor: %w", err)
	}
	if created == 0 {
		return nil, ErrDoctorExists
	}
	return doc, nil
}

// DoctorByName looks a doctor up by exact name.
func (s *RedisStore) DoctorByName(ctx context.Context, name string) (*Doctor, error) {
	return s.doctorByIndex(ctx, "by_name", name)
}

// DoctorByOwner returns the doctor linked to a user email.
func (s *RedisStore) DoctorByOwner(ctx context.Context, email string) (*Doctor, error) {
	return s.doctorByIndex(ctx, "by_owner", email)
}

func (s *RedisStore) doctorByIndex(ctx context.Context, index, value string) (*Doctor, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.redis.load_doctor")
	defer span.End()

	if value == "" {
		return nil, ErrDoctorNotFound
	}
	id, err := s.redis.HGet(ctx, s.key("doctors", index), value).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDoctorNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: resolve doctor: %w", err)
	}
	return s.loadDoctor(ctx, id)
}

func (s *RedisStore) loadDoctor(ctx context.Context, id string) (*Doctor, error) {
	fields, err := s.redis.HGetAll(ctx, s.key("doctor", id)).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduling: load doctor: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrDoctorNotFound
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	availability, err := s.availability(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Doctor{
		ID:           fields["id"],
		Name:         fields["name"],
		OwnerEmail:   fields["owner_email"],
		Availability: availability,
		CreatedAt:    createdAt,
	}, nil
}

func (s *RedisStore) doctorExists(ctx context.Context, id string) error {
	n, err := s.redis.Exists(ctx, s.key("doctor", id)).Result()
	if err != nil {
		return fmt.Errorf("scheduling: check doctor: %w", err)
	}
	if n == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

// SlotsFor returns the open slots for a date. Unknown keys yield an empty set.
func (s *RedisStore) SlotsFor(ctx context.Context, doctorID, date string) ([]string, error) {
	slots, err := s.redis.LRange(ctx, s.key("slots", doctorID, date), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduling: read slots: %w", err)
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

// Availability returns every date the doctor has offered with its open slots.
func (s *RedisStore) Availability(ctx context.Context, doctorID string) (Availability, error) {
	if err := s.doctorExists(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.availability(ctx, doctorID)
}

func (s *RedisStore) availability(ctx context.Context, doctorID string) (Availability, error) {
	dates, err := s.redis.SMembers(ctx, s.key("dates", doctorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduling: read dates: %w", err)
	}
	out := make(Availability, len(dates))
	if len(dates) == 0 {
		return out, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make(map[string]*redis.StringSliceCmd, len(dates))
	for _, date := range dates {
		cmds[date] = pipe.LRange(ctx, s.key("slots", doctorID, date), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("scheduling: read availability: %w", err)
	}
	for date, cmd := range cmds {
		slots := cmd.Val()
		if slots == nil {
			slots = []string{}
		}
		out[date] = slots
	}
	return out, nil
}

// AddSlots unions labels into availability. Each date is applied atomically.
func (s *RedisStore) AddSlots(ctx context.Context, doctorID string, slots Availability) (*AddSlotsResult, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.redis.add_slots")
	defer span.End()

	if err := validateAdditions(slots); err != nil {
		return nil, err
	}
	if err := s.doctorExists(ctx, doctorID); err != nil {
		return nil, err
	}

	skipped := map[string][]string{}
	for _, date := range sortedDates(slots) {
		labels := NormalizeSlots(slots[date])
		args := make([]any, 0, len(labels)+1)
		args = append(args, date)
		for _, label := range labels {
			args = append(args, label)
		}
		keys := []string{
			s.key("slots", doctorID, date),
			s.key("booked", doctorID, date),
			s.key("dates", doctorID),
		}
		refused, err := addSlotsScript.Run(ctx, s.redis, keys, args...).StringSlice()
		if err != nil && !errors.Is(err, redis.Nil) {
			span.RecordError(err)
			return nil, fmt.Errorf("scheduling: add slots %s: %w", date, err)
		}
		if len(refused) > 0 {
			skipped[date] = refused
		}
	}

	availability, err := s.availability(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	result := &AddSlotsResult{Availability: availability}
	if len(skipped) > 0 {
		result.Skipped = skipped
	}
	return result, nil
}

// RemoveSlot drops one open slot or fails with ErrSlotNotFound.
func (s *RedisStore) RemoveSlot(ctx context.Context, doctorID, date, slot string) error {
	if err := s.doctorExists(ctx, doctorID); err != nil {
		return err
	}
	removed, err := s.redis.LRem(ctx, s.key("slots", doctorID, date), 1, slot).Result()
	if err != nil {
		return fmt.Errorf("scheduling: remove slot: %w", err)
	}
	if removed == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// Reserve consumes the slot and records the appointment in one script call.
func (s *RedisStore) Reserve(ctx context.Context, appt Appointment) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.redis.reserve")
	defer span.End()

	if err := validateReservation(appt); err != nil {
		return nil, err
	}
	name, err := s.redis.HGet(ctx, s.key("doctor", appt.DoctorID), "name").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDoctorNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: reserve: %w", err)
	}

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	appt.DoctorName = name
	appt.CreatedAt = s.opts.now()

	keys := []string{
		s.key("slots", appt.DoctorID, appt.Date),
		s.key("seq"),
		s.key("appt", appt.ID),
		s.key("appts"),
		s.key("appts", appt.DoctorID),
		s.key("booked", appt.DoctorID, appt.Date),
	}
	seq, err := reserveScript.Run(ctx, s.redis, keys,
		appt.Slot,
		appt.ID,
		appt.DoctorID,
		appt.DoctorName,
		appt.Patient.Email,
		appt.Patient.Name,
		appt.Date,
		appt.Reason,
		appt.CreatedAt.Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: reserve: %w", err)
	}
	if seq < 0 {
		return nil, ErrSlotNotFound
	}
	appt.Seq = seq
	return &appt, nil
}

// Appointments returns matching appointments in creation order.
func (s *RedisStore) Appointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.redis.appointments")
	defer span.End()

	listKey := s.key("appts")
	if filter.DoctorID != "" {
		listKey = s.key("appts", filter.DoctorID)
	}
	ids, err := s.redis.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: list appointments: %w", err)
	}
	out := []Appointment{}
	if len(ids) == 0 {
		return out, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.key("appt", id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: load appointments: %w", err)
	}
	for _, cmd := range cmds {
		appt, ok := decodeAppointment(cmd.Val())
		if ok && filter.Matches(appt) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func decodeAppointment(fields map[string]string) (Appointment, bool) {
	if len(fields) == 0 {
		return Appointment{}, false
	}
	seq, _ := strconv.ParseInt(fields["seq"], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	return Appointment{
		ID:         fields["id"],
		DoctorID:   fields["doctor_id"],
		DoctorName: fields["doctor_name"],
		Patient: Patient{
			Name:  fields["patient_name"],
			Email: fields["patient_email"],
		},
		Date:      fields["date"],
		Slot:      fields["slot"],
		Reason:    fields["reason"],
		Seq:       seq,
		CreatedAt: createdAt,
	}, true
}

var _ Store = (*RedisStore)(nil)
