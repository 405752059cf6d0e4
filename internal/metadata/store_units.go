package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrUnitNotFound reports a save against a unit that was removed concurrently.
var ErrUnitNotFound = errors.New("unit not found")

// Filter narrows List results. Zero value lists everything.
type Filter struct {
	Kind        string
	Statuses    []SourceStatus
	TrackedOnly bool
	Limit       int
}

// Create inserts an untracked unit and assigns its ID.
func (s *Store) Create(ctx context.Context, unit *Unit) error {
	ctx = ensureContext(ctx)
	if unit == nil {
		return errors.New("create unit: unit is nil")
	}
	if err := unit.Ref.Validate(); err != nil {
		return fmt.Errorf("create unit: %w", err)
	}
	if unit.SourceStatus == "" {
		unit.SourceStatus = SourceUntracked
	}
	now := time.Now().UTC()
	query := s.db.Rebind(`INSERT INTO units (
		entity_kind, entity_id, revision_id, document_id, profile_id, job_id,
		source_status, source_locale, imported_once, reimport, last_error, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowxContext(ctx, query,
			unit.Ref.Kind,
			unit.Ref.ID,
			nullableString(unit.RevisionID),
			nullableString(unit.DocumentID),
			nullableString(unit.ProfileID),
			nullableString(unit.JobID),
			string(unit.SourceStatus),
			nullableString(unit.SourceLocale),
			boolToInt(unit.ImportedOnce),
			boolToInt(unit.Reimport),
			nullableString(unit.LastError),
			formatTime(now),
			formatTime(now),
		).Scan(&id)
	})
	if err != nil {
		if isUniqueViolation(err) && unit.DocumentID != "" {
			return fmt.Errorf("create unit %s: %w", unit.Ref, ErrDocumentConflict)
		}
		return fmt.Errorf("create unit %s: %w", unit.Ref, err)
	}
	unit.ID = id
	unit.CreatedAt = now
	unit.UpdatedAt = now
	if unit.Targets == nil {
		unit.Targets = map[string]*Target{}
	}
	return nil
}

// Ensure returns the unit for ref, creating an untracked one when none exists.
// The boolean reports whether a row was created.
func (s *Store) Ensure(ctx context.Context, ref Ref, profileID string) (*Unit, bool, error) {
	existing, err := s.FindByRef(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	unit := NewUnit(ref, profileID)
	if err := s.Create(ctx, unit); err != nil {
		if !isUniqueViolation(err) {
			return nil, false, err
		}
		// Lost a creation race; the winner's row is authoritative.
		existing, findErr := s.FindByRef(ctx, ref)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing == nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return unit, true, nil
}

// GetByID fetches a unit with its targets. Returns (nil, nil) when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Unit, error) {
	return s.findOne(ctx, "id = ?", id)
}

// FindByRef fetches the unit for a host resource. Returns (nil, nil) when absent.
func (s *Store) FindByRef(ctx context.Context, ref Ref) (*Unit, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return s.findOne(ctx, "entity_kind = ? AND entity_id = ?", ref.Kind, ref.ID)
}

// FindByDocumentID routes a TMS document id to its unit. Returns (nil, nil) when absent.
func (s *Store) FindByDocumentID(ctx context.Context, documentID string) (*Unit, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, nil
	}
	return s.findOne(ctx, "document_id = ?", documentID)
}

func (s *Store) findOne(ctx context.Context, where string, args ...any) (*Unit, error) {
	ctx = ensureContext(ctx)
	query := s.db.Rebind("SELECT " + unitColumns + " FROM units WHERE " + where)
	unit, err := scanUnit(s.db.QueryRowxContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	targets, err := s.loadTargets(ctx, s.db, []int64{unit.ID})
	if err != nil {
		return nil, err
	}
	if ts, ok := targets[unit.ID]; ok {
		unit.Targets = ts
	}
	return unit, nil
}

// List returns units matching filter ordered by id, each with its targets.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Unit, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		clauses = append(clauses, "entity_kind = ?")
		args = append(args, kind)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		clauses = append(clauses, "source_status IN (?)")
		args = append(args, statuses)
	}
	if filter.TrackedOnly {
		clauses = append(clauses, "document_id IS NOT NULL")
	}

	query := "SELECT " + unitColumns + " FROM units"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(expanded), expandedArgs...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	var (
		units []*Unit
		ids   []int64
	)
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, unit)
		ids = append(ids, unit.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	rows.Close()

	targets, err := s.loadTargets(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for _, unit := range units {
		if ts, ok := targets[unit.ID]; ok {
			unit.Targets = ts
		}
	}
	return units, nil
}

// TrackedIDs returns the ids of every unit holding a document id, ascending.
func (s *Store) TrackedIDs(ctx context.Context) ([]int64, error) {
	ctx = ensureContext(ctx)
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, "SELECT id FROM units WHERE document_id IS NOT NULL ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list tracked units: %w", err)
	}
	return ids, nil
}

func (s *Store) loadTargets(ctx context.Context, q sqlx.QueryerContext, ids []int64) (map[int64]map[string]*Target, error) {
	out := make(map[int64]map[string]*Target, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT unit_id, locale, status, prior_status, progress,
		intermediate_fetched, last_error, updated_at
		FROM targets WHERE unit_id IN (?) ORDER BY unit_id, locale`, ids)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	var rows []targetRow
	if err := sqlx.SelectContext(ctx, q, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	for _, row := range rows {
		byLocale, ok := out[row.UnitID]
		if !ok {
			byLocale = map[string]*Target{}
			out[row.UnitID] = byLocale
		}
		byLocale[row.Locale] = row.target()
	}
	return out, nil
}

// Save writes the unit row and replaces its targets in one transaction.
// Targets with a zero UpdatedAt are stamped with the current time.
func (s *Store) Save(ctx context.Context, unit *Unit) error {
	ctx = ensureContext(ctx)
	if unit == nil || unit.ID == 0 {
		return errors.New("save unit: unit has no id")
	}
	now := time.Now().UTC()
	err := retryOnBusy(ctx, func() error {
		return s.saveTx(ctx, unit, now)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save unit %s: %w", unit.Ref, ErrDocumentConflict)
		}
		return err
	}
	unit.UpdatedAt = now
	for _, target := range unit.Targets {
		if target.UpdatedAt.IsZero() {
			target.UpdatedAt = now
		}
	}
	return nil
}

func (s *Store) saveTx(ctx context.Context, unit *Unit, now time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE units SET
		revision_id = ?, document_id = ?, profile_id = ?, job_id = ?, source_status = ?,
		source_locale = ?, imported_once = ?, reimport = ?, last_error = ?, updated_at = ?
		WHERE id = ?`),
		nullableString(unit.RevisionID),
		nullableString(unit.DocumentID),
		nullableString(unit.ProfileID),
		nullableString(unit.JobID),
		string(unit.SourceStatus),
		nullableString(unit.SourceLocale),
		boolToInt(unit.ImportedOnce),
		boolToInt(unit.Reimport),
		nullableString(unit.LastError),
		formatTime(now),
		unit.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("save unit %d: %w", unit.ID, ErrUnitNotFound)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM targets WHERE unit_id = ?"), unit.ID); err != nil {
		return fmt.Errorf("clear targets: %w", err)
	}
	insert := tx.Rebind(`INSERT INTO targets (
		unit_id, locale, status, prior_status, progress, intermediate_fetched, last_error, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, locale := range unit.Locales() {
		target := unit.Targets[locale]
		updated := target.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		if _, err := tx.ExecContext(ctx, insert,
			unit.ID,
			locale,
			string(target.Status),
			nullableString(string(target.PriorStatus)),
			target.Progress,
			boolToInt(target.IntermediateFetched),
			nullableString(target.LastError),
			formatTime(updated),
		); err != nil {
			return fmt.Errorf("insert target %s: %w", locale, err)
		}
	}
	return tx.Commit()
}

// Delete removes a unit and, through the foreign key, its targets.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	affected, err := s.exec(ctx, "DELETE FROM units WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete unit: %w", err)
	}
	return affected > 0, nil
}

// Counts aggregates units per source status.
func (s *Store) Counts(ctx context.Context) (map[SourceStatus]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT source_status, COUNT(1) FROM units GROUP BY source_status")
	if err != nil {
		return nil, fmt.Errorf("count units: %w", err)
	}
	defer rows.Close()
	counts := make(map[SourceStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[SourceStatus(status)] = count
	}
	return counts, rows.Err()
}

// TargetCounts aggregates targets per status.
func (s *Store) TargetCounts(ctx context.Context) (map[TargetStatus]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM targets GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count targets: %w", err)
	}
	defer rows.Close()
	counts := make(map[TargetStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[TargetStatus(status)] = count
	}
	return counts, rows.Err()
}
