// Package repository provides PostgreSQL persistence for patient records,
// prevention plans and screening tracking.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
)

// PatientRepository handles patient record persistence. It implements
// domain.PatientRecordStore.
type PatientRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *pgxpool.Pool, logger *logrus.Logger) *PatientRepository {
	return &PatientRepository{
		db:  db,
		log: logger,
	}
}

// GetDemographics retrieves the demographics slice of a patient record.
func (r *PatientRepository) GetDemographics(ctx context.Context, patientID string) (*domain.Demographics, error) {
	query := `
		SELECT id, gender, birth_date, pregnant
		FROM patients
		WHERE id = $1`

	var demo domain.Demographics
	var gender string

	err := r.db.QueryRow(ctx, query, patientID).Scan(
		&demo.PatientID,
		&gender,
		&demo.BirthDate,
		&demo.Pregnant,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to get patient demographics")
		return nil, fmt.Errorf("getting demographics: %w", err)
	}

	demo.Gender = domain.Gender(gender)
	return &demo, nil
}

// GetPatientFacts assembles the fact view used by protocol applicability
// and screening eligibility: demographics, risk factors, the latest value
// per lab analyte and the screening performance history.
func (r *PatientRepository) GetPatientFacts(ctx context.Context, patientID string) (*domain.PatientFacts, error) {
	query := `
		SELECT id, gender, birth_date, pregnant, bmi, tobacco_use, family_history
		FROM patients
		WHERE id = $1`

	facts := &domain.PatientFacts{}
	var gender string
	var birthDate time.Time
	var bmi *float64

	err := r.db.QueryRow(ctx, query, patientID).Scan(
		&facts.PatientID,
		&gender,
		&birthDate,
		&facts.Pregnant,
		&bmi,
		&facts.TobaccoUse,
		&facts.FamilyHistory,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to get patient facts")
		return nil, fmt.Errorf("getting patient facts: %w", err)
	}

	facts.Gender = domain.Gender(gender)
	facts.BMI = bmi
	facts.Age = (&domain.Demographics{BirthDate: birthDate}).Age(time.Now().UTC())

	facts.Labs, err = r.latestLabs(ctx, patientID)
	if err != nil {
		return nil, err
	}
	facts.LastScreened, err = r.screeningHistory(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return facts, nil
}

// latestLabs returns the most recent numeric value per analyte.
func (r *PatientRepository) latestLabs(ctx context.Context, patientID string) (map[string]float64, error) {
	query := `
		SELECT DISTINCT ON (analyte) analyte, value
		FROM lab_observations
		WHERE patient_id = $1
		ORDER BY analyte, observed_at DESC`

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying latest labs: %w", err)
	}
	defer rows.Close()

	labs := make(map[string]float64)
	for rows.Next() {
		var analyte string
		var value float64
		if err := rows.Scan(&analyte, &value); err != nil {
			return nil, fmt.Errorf("scanning lab row: %w", err)
		}
		labs[analyte] = value
	}
	return labs, rows.Err()
}

func (r *PatientRepository) screeningHistory(ctx context.Context, patientID string) (map[string]time.Time, error) {
	query := `
		SELECT screening_type, performed_at
		FROM screening_tracking
		WHERE patient_id = $1`

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying screening history: %w", err)
	}
	defer rows.Close()

	history := make(map[string]time.Time)
	for rows.Next() {
		var screeningType string
		var performedAt time.Time
		if err := rows.Scan(&screeningType, &performedAt); err != nil {
			return nil, fmt.Errorf("scanning screening row: %w", err)
		}
		history[screeningType] = performedAt
	}
	return history, rows.Err()
}

// ListRoster returns the IDs of every active patient, ordered for a
// deterministic sweep.
func (r *PatientRepository) ListRoster(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM patients WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing roster: %w", err)
	}
	defer rows.Close()

	var roster []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning roster row: %w", err)
		}
		roster = append(roster, id)
	}
	return roster, rows.Err()
}

// CreatePreventionPlan persists a new prevention plan. Plan content is
// stored as JSONB; plans are append-only, never updated in place.
func (r *PatientRepository) CreatePreventionPlan(ctx context.Context, plan *domain.PreventionPlan) error {
	goals, err := json.Marshal(plan.Goals)
	if err != nil {
		return fmt.Errorf("marshaling plan goals: %w", err)
	}
	recommendations, err := json.Marshal(plan.Recommendations)
	if err != nil {
		return fmt.Errorf("marshaling plan recommendations: %w", err)
	}
	schedule, err := json.Marshal(plan.ScreeningSchedule)
	if err != nil {
		return fmt.Errorf("marshaling screening schedule: %w", err)
	}

	query := `
		INSERT INTO prevention_plans (
			id, patient_id, plan_type, goals, recommendations,
			screening_schedule, status, guideline_source, evidence_level, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.db.Exec(ctx, query,
		plan.ID,
		plan.PatientID,
		plan.PlanType,
		goals,
		recommendations,
		schedule,
		string(plan.Status),
		plan.GuidelineSource,
		string(plan.EvidenceLevel),
		plan.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"plan_id":    plan.ID,
			"patient_id": plan.PatientID,
			"error":      err,
		}).Error("Failed to create prevention plan")
		return fmt.Errorf("creating prevention plan: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"plan_id":    plan.ID,
		"patient_id": plan.PatientID,
		"plan_type":  plan.PlanType,
	}).Info("Prevention plan created")

	return nil
}

// UpdateScreeningTracking records that a screening was performed, replacing
// any earlier performance date for the same screening type.
func (r *PatientRepository) UpdateScreeningTracking(ctx context.Context, patientID, screeningType string, performedAt time.Time) error {
	query := `
		INSERT INTO screening_tracking (patient_id, screening_type, performed_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (patient_id, screening_type) DO UPDATE SET
			performed_at = EXCLUDED.performed_at,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query, patientID, screeningType, performedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id":     patientID,
			"screening_type": screeningType,
			"error":          err,
		}).Error("Failed to update screening tracking")
		return fmt.Errorf("updating screening tracking: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id":     patientID,
		"screening_type": screeningType,
		"performed_at":   performedAt.Format("2006-01-02"),
	}).Info("Screening tracking updated")

	return nil
}

// ListPlansByPatient returns prevention plans for a patient, newest first.
func (r *PatientRepository) ListPlansByPatient(ctx context.Context, patientID string) ([]*domain.PreventionPlan, error) {
	query := `
		SELECT id, patient_id, plan_type, goals, recommendations,
			screening_schedule, status, guideline_source, evidence_level, created_at
		FROM prevention_plans
		WHERE patient_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("listing prevention plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.PreventionPlan
	for rows.Next() {
		plan := &domain.PreventionPlan{}
		var goals, recommendations, schedule []byte
		var status, evidence string

		err := rows.Scan(
			&plan.ID,
			&plan.PatientID,
			&plan.PlanType,
			&goals,
			&recommendations,
			&schedule,
			&status,
			&plan.GuidelineSource,
			&evidence,
			&plan.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}

		if err := json.Unmarshal(goals, &plan.Goals); err != nil {
			return nil, fmt.Errorf("decoding plan goals: %w", err)
		}
		if err := json.Unmarshal(recommendations, &plan.Recommendations); err != nil {
			return nil, fmt.Errorf("decoding plan recommendations: %w", err)
		}
		if err := json.Unmarshal(schedule, &plan.ScreeningSchedule); err != nil {
			return nil, fmt.Errorf("decoding screening schedule: %w", err)
		}
		plan.Status = domain.PlanStatus(status)
		plan.EvidenceLevel = domain.EvidenceGrade(evidence)
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}
