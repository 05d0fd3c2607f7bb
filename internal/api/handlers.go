package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
)

// DetectConditionsRequest carries the chart inputs for condition detection.
type DetectConditionsRequest struct {
	NoteText       string   `json:"note_text"`
	Medications    []string `json:"medications"`
	DiagnosisCodes []string `json:"diagnosis_codes"`
}

// EvaluateRulesRequest pairs an authored rule catalog with one patient
// state snapshot.
type EvaluateRulesRequest struct {
	Rules []domain.ClinicalProtocolRule `json:"rules" binding:"required"`
	State *domain.PatientState          `json:"state" binding:"required"`
}

// ScreeningPerformedRequest records a completed screening.
type ScreeningPerformedRequest struct {
	ScreeningType string     `json:"screening_type" binding:"required"`
	PerformedAt   *time.Time `json:"performed_at"`
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString("correlation_id")))
}

// handleDetectConditions runs condition detection over free text,
// medication lists and diagnosis codes.
func (s *Server) handleDetectConditions(c *gin.Context) {
	var req DetectConditionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}

	conditions := s.services.Detector.Detect(req.NoteText, req.Medications, req.DiagnosisCodes)
	c.JSON(http.StatusOK, gin.H{
		"conditions": conditions,
		"count":      len(conditions),
	})
}

// handleEvaluateRules validates the submitted rule catalog and evaluates
// it against the snapshot.
func (s *Server) handleEvaluateRules(c *gin.Context) {
	var req EvaluateRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}

	if err := s.services.Engine.LoadRules(req.Rules); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrRuleEvaluation, "rule catalog validation failed", err.Error())
		return
	}

	output := s.services.Engine.EvaluateAll(req.Rules, req.State)
	c.JSON(http.StatusOK, output)
}

// handleMonitorLab routes a single lab observation through the monitor.
func (s *Server) handleMonitorLab(c *gin.Context) {
	var result domain.LabResult
	if err := c.ShouldBindJSON(&result); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}
	if result.PatientID == "" || result.TestName == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "patient_id and test_name are required", "")
		return
	}

	outcome, err := s.services.Monitor.Process(c.Request.Context(), &result)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNonNumericLabValue):
			s.respondError(c, http.StatusBadRequest, domain.ErrLabParsing, "lab value is not numeric", result.Value)
		case errors.Is(err, domain.ErrMissingGender):
			s.respondError(c, http.StatusUnprocessableEntity, domain.ErrValidation, "patient gender is required for this analyte", "")
		case errors.Is(err, domain.ErrNotFound):
			s.respondError(c, http.StatusNotFound, domain.ErrRecordStore, "patient not found", result.PatientID)
		default:
			s.logger.WithFields(logrus.Fields{
				"patient_id": result.PatientID,
				"test_name":  result.TestName,
				"error":      err,
			}).Error("Lab monitoring failed")
			s.respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "lab monitoring failed", "")
		}
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// handleProtocolsForCondition lists protocols for a condition key,
// optionally filtered by patient applicability.
func (s *Server) handleProtocolsForCondition(c *gin.Context) {
	conditionKey := c.Param("condition")

	patientID := c.Query("patient_id")
	if patientID == "" {
		protocols := s.services.Catalog.ProtocolsFor(conditionKey)
		c.JSON(http.StatusOK, gin.H{
			"condition": conditionKey,
			"protocols": protocols,
			"count":     len(protocols),
		})
		return
	}

	facts, err := s.services.Records.GetPatientFacts(c.Request.Context(), patientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrRecordStore, "patient not found", patientID)
			return
		}
		s.respondError(c, http.StatusBadGateway, domain.ErrRecordStore, "patient record store unavailable", "")
		return
	}

	protocols := s.services.Catalog.ApplicableProtocols(conditionKey, facts)
	c.JSON(http.StatusOK, gin.H{
		"condition":  conditionKey,
		"patient_id": patientID,
		"protocols":  protocols,
		"count":      len(protocols),
	})
}

// handleDueScreenings lists due and overdue screenings for a patient.
func (s *Server) handleDueScreenings(c *gin.Context) {
	patientID := c.Param("id")

	facts, err := s.services.Records.GetPatientFacts(c.Request.Context(), patientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrRecordStore, "patient not found", patientID)
			return
		}
		s.respondError(c, http.StatusBadGateway, domain.ErrRecordStore, "patient record store unavailable", "")
		return
	}

	due := s.services.Scheduler.DueScreenings(facts)
	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"due":        due,
		"count":      len(due),
	})
}

// handleRaiseReminders creates reminders for the patient's due screenings.
// Raising is idempotent per (patient, screening type).
func (s *Server) handleRaiseReminders(c *gin.Context) {
	patientID := c.Param("id")

	facts, err := s.services.Records.GetPatientFacts(c.Request.Context(), patientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrRecordStore, "patient not found", patientID)
			return
		}
		s.respondError(c, http.StatusBadGateway, domain.ErrRecordStore, "patient record store unavailable", "")
		return
	}

	created, err := s.services.Scheduler.RaiseReminders(c.Request.Context(), facts)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Raising reminders failed")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "raising reminders failed", "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"patient_id": patientID,
		"created":    created,
		"count":      len(created),
	})
}

// handleScreeningPerformed closes the open reminder and updates the
// screening history in the record store.
func (s *Server) handleScreeningPerformed(c *gin.Context) {
	patientID := c.Param("id")

	var req ScreeningPerformedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}

	performedAt := time.Now().UTC()
	if req.PerformedAt != nil {
		performedAt = *req.PerformedAt
	}

	if err := s.services.Scheduler.RecordPerformed(c.Request.Context(), patientID, req.ScreeningType, performedAt); err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "recording screening failed", "")
		return
	}
	if err := s.services.Records.UpdateScreeningTracking(c.Request.Context(), patientID, req.ScreeningType, performedAt); err != nil {
		s.respondError(c, http.StatusBadGateway, domain.ErrRecordStore, "updating screening history failed", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id":     patientID,
		"screening_type": req.ScreeningType,
		"performed_at":   performedAt,
	})
}

// handleListReminders returns the patient's reminders, newest first.
func (s *Server) handleListReminders(c *gin.Context) {
	patientID := c.Param("id")

	reminders, err := s.services.Reminders.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "listing reminders failed", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"reminders":  reminders,
		"count":      len(reminders),
	})
}

// handleListPlans returns the patient's prevention plans, newest first.
func (s *Server) handleListPlans(c *gin.Context) {
	patientID := c.Param("id")

	lister, ok := s.services.Records.(domain.PreventionPlanLister)
	if !ok {
		s.respondError(c, http.StatusNotImplemented, domain.ErrRecordStore, "plan listing not supported by record store", "")
		return
	}

	plans, err := lister.ListPlansByPatient(c.Request.Context(), patientID)
	if err != nil {
		s.respondError(c, http.StatusBadGateway, domain.ErrRecordStore, "listing plans failed", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"plans":      plans,
		"count":      len(plans),
	})
}
